package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// OrderHandler coordinación de órdenes contra el stock (protegido).
type OrderHandler struct {
	engine *inventory.Engine
}

func NewOrderHandler(engine *inventory.Engine) *OrderHandler {
	return &OrderHandler{engine: engine}
}

// Confirm godoc
// @Summary      Confirmar orden
// @Description  Reserva todos los ítems o ninguno. Con stock insuficiente la orden queda failed (409).
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID de la orden"
// @Param        body  body  dto.ConfirmOrderRequest  true  "items[product_id, variant_id, quantity]"
// @Success      200   {object}  dto.OrderResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/confirm [post]
func (h *OrderHandler) Confirm(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	var in dto.ConfirmOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	items := make([]entity.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, entity.OrderItem{ProductID: it.ProductID, VariantID: it.VariantID, Quantity: it.Quantity})
	}
	res, err := h.engine.ConfirmOrder(c.Context(), inventory.ConfirmOrderInput{
		OrderID: c.Params("id"), StoreID: storeID, Items: items,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toOrderResponse(res.Order, res.Reservations, nil))
}

func (h *OrderHandler) Get(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	res, err := h.engine.GetOrder(c.Context(), storeID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toOrderResponse(res.Order, res.Reservations, nil))
}

// Fulfill consume las reservas de la orden (salidas del ledger) y la completa.
func (h *OrderHandler) Fulfill(c *fiber.Ctx) error {
	storeID, userID, ok := storeAndUser(c)
	if !ok {
		return unauthorized(c)
	}
	res, err := h.engine.FulfillOrder(c.Context(), storeID, c.Params("id"), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toOrderResponse(res.Order, nil, res.Movements))
}

func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	res, err := h.engine.CancelOrder(c.Context(), storeID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toOrderResponse(res.Order, res.Reservations, nil))
}
