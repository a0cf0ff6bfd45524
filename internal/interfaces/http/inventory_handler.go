package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

// InventoryHandler niveles de stock, ledger y reposición (protegido).
type InventoryHandler struct {
	engine *inventory.Engine
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(engine *inventory.Engine) *InventoryHandler {
	return &InventoryHandler{engine: engine}
}

// GetStock godoc
// @Summary      Nivel de stock de un SKU
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        sku  path  string  true  "SKU"
// @Success      200  {object}  dto.StockResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/{sku} [get]
func (h *InventoryHandler) GetStock(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	s, err := h.engine.GetStockLevel(c.Context(), storeID, c.Params("sku"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toStockResponse(s))
}

// ConfigureStock crea el registro si no existe y fija producto y umbrales.
func (h *InventoryHandler) ConfigureStock(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	var in dto.StockSettingsRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	s, err := h.engine.ConfigureStock(c.Context(), inventory.StockSettingsInput{
		StoreID:       storeID,
		SKU:           c.Params("sku"),
		ProductID:     in.ProductID,
		VariantID:     in.VariantID,
		ReorderLevel:  in.ReorderLevel,
		MaxStockLevel: in.MaxStockLevel,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toStockResponse(s))
}

// RecordMovement godoc
// @Summary      Registrar movimiento de inventario
// @Description  Idempotente por (reference_type, reference_id, sku, movement_type): un reintento devuelve la entrada original.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RecordMovementRequest  true  "sku, reference_type, reference_id, movement_type, quantity, unit_cost (entradas)"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) RecordMovement(c *fiber.Ctx) error {
	storeID, userID, ok := storeAndUser(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.RecordMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	unitCost := decimal.Zero
	if in.UnitCost != nil {
		unitCost = *in.UnitCost
	}
	m, err := h.engine.RecordMovement(c.Context(), inventory.MovementInput{
		StoreID:       storeID,
		SKU:           in.SKU,
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		MovementType:  in.MovementType,
		Quantity:      in.Quantity,
		UnitCost:      unitCost,
		Reason:        in.Reason,
		UserID:        userID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(m))
}

// ListMovements entradas del ledger del SKU en orden de secuencia; ?since= filtra las posteriores.
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	list, err := h.engine.ListMovements(c.Context(), storeID, c.Params("sku"), int64(c.QueryInt("since", 0)))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"total": len(list), "movements": toMovementList(list)})
}

func (h *InventoryHandler) Verify(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	v, err := h.engine.VerifyStock(c.Context(), storeID, c.Params("sku"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toVerificationResponse(v))
}

// Rebuild recalcula on_hand desde el ledger.
func (h *InventoryHandler) Rebuild(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	s, err := h.engine.RebuildStock(c.Context(), storeID, c.Params("sku"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toStockResponse(s))
}

// GetReplenishmentList godoc
// @Summary      Lista de reposición
// @Description  SKUs por debajo del punto de reorden con la cantidad sugerida de pedido, ordenados por urgencia.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   dto.ReplenishmentSuggestionDTO
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/inventory/replenishment-list [get]
func (h *InventoryHandler) GetReplenishmentList(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	list, err := h.engine.ReplenishmentList(c.Context(), storeID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"total":          len(list),
		"replenishments": toReplenishmentList(list),
	})
}
