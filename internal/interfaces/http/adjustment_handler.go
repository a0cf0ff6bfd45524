package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

// AdjustmentHandler ajustes de stock y conteos físicos (protegido).
// Aprobar, rechazar y publicar requieren rol admin (ver Router).
type AdjustmentHandler struct {
	engine *inventory.Engine
}

func NewAdjustmentHandler(engine *inventory.Engine) *AdjustmentHandler {
	return &AdjustmentHandler{engine: engine}
}

// Create godoc
// @Summary      Crear ajuste de stock (pending)
// @Tags         adjustments
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateAdjustmentRequest  true  "reason, items[sku, actual_quantity]"
// @Success      201   {object}  dto.AdjustmentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/adjustments [post]
func (h *AdjustmentHandler) Create(c *fiber.Ctx) error {
	storeID, userID, ok := storeAndUser(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.CreateAdjustmentRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	items := make([]inventory.AdjustmentItemInput, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, inventory.AdjustmentItemInput{SKU: it.SKU, ExpectedQuantity: it.ExpectedQuantity, ActualQuantity: it.ActualQuantity})
	}
	adj, err := h.engine.CreateAdjustment(c.Context(), inventory.CreateAdjustmentInput{
		StoreID: storeID, UserID: userID, Reason: in.Reason, Items: items,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toAdjustmentResponse(adj))
}

func (h *AdjustmentHandler) Get(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	adj, err := h.engine.GetAdjustment(c.Context(), storeID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toAdjustmentResponse(adj))
}

// Approve aprueba y publica las diferencias en el ledger. Repetirlo devuelve los mismos movimientos.
func (h *AdjustmentHandler) Approve(c *fiber.Ctx) error {
	storeID, userID, ok := storeAndUser(c)
	if !ok {
		return unauthorized(c)
	}
	movements, err := h.engine.ApproveAdjustment(c.Context(), storeID, c.Params("id"), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"movements": toMovementList(movements)})
}

func (h *AdjustmentHandler) Reject(c *fiber.Ctx) error {
	storeID, userID, ok := storeAndUser(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.engine.RejectAdjustment(c.Context(), storeID, c.Params("id"), userID); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Post reintenta publicar las líneas pendientes de un ajuste ya aprobado.
func (h *AdjustmentHandler) Post(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	movements, err := h.engine.PostAdjustment(c.Context(), storeID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"movements": toMovementList(movements)})
}

// StartCount abre un conteo físico sobre los SKUs indicados.
func (h *AdjustmentHandler) StartCount(c *fiber.Ctx) error {
	storeID, userID, ok := storeAndUser(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.StartCountRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	count, err := h.engine.StartCount(c.Context(), inventory.StartCountInput{
		StoreID: storeID, UserID: userID, Notes: in.Notes, SKUs: in.SKUs,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toCountResponse(count))
}

func (h *AdjustmentHandler) GetCount(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	count, err := h.engine.GetCount(c.Context(), storeID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toCountResponse(count))
}

func (h *AdjustmentHandler) RecordCount(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	var in dto.RecordCountRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := h.engine.RecordCount(c.Context(), storeID, c.Params("id"), c.Params("sku"), in.CountedQuantity); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CompleteCount cierra el conteo y devuelve las discrepancias propuestas.
func (h *AdjustmentHandler) CompleteCount(c *fiber.Ctx) error {
	storeID, userID, ok := storeAndUser(c)
	if !ok {
		return unauthorized(c)
	}
	proposed, err := h.engine.CompleteCount(c.Context(), storeID, c.Params("id"), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"proposed": toProposedList(proposed)})
}

func (h *AdjustmentHandler) CreateAdjustmentFromCount(c *fiber.Ctx) error {
	storeID, userID, ok := storeAndUser(c)
	if !ok {
		return unauthorized(c)
	}
	var in dto.CountFromAdjustmentRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	adj, err := h.engine.CreateAdjustmentFromCount(c.Context(), storeID, c.Params("id"), userID, in.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toAdjustmentResponse(adj))
}
