package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

// ReservationHandler reservas de stock (protegido).
type ReservationHandler struct {
	engine *inventory.Engine
}

func NewReservationHandler(engine *inventory.Engine) *ReservationHandler {
	return &ReservationHandler{engine: engine}
}

// Reserve godoc
// @Summary      Reservar stock para una orden
// @Tags         reservations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReserveRequest  true  "sku, quantity, order_id"
// @Success      201   {object}  dto.ReservationResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/reservations [post]
func (h *ReservationHandler) Reserve(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	var in dto.ReserveRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	r, err := h.engine.ReserveStock(c.Context(), storeID, in.SKU, in.Quantity, in.OrderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toReservationResponse(r))
}

// Consume convierte la reserva en una salida del ledger.
func (h *ReservationHandler) Consume(c *fiber.Ctx) error {
	storeID, userID, ok := storeAndUser(c)
	if !ok {
		return unauthorized(c)
	}
	m, err := h.engine.ConsumeReservation(c.Context(), storeID, c.Params("id"), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toMovementResponse(m))
}

func (h *ReservationHandler) Release(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	if err := h.engine.ReleaseReservation(c.Context(), storeID, c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ReleaseExpired barrido manual de reservas vencidas (todas las tiendas). ?limit= acota el lote.
func (h *ReservationHandler) ReleaseExpired(c *fiber.Ctx) error {
	n, err := h.engine.ReleaseExpiredReservations(c.Context(), c.QueryInt("limit", 100))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ExpireReservationsResponse{Released: n})
}
