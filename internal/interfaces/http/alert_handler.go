package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

// AlertHandler alertas de stock bajo (protegido).
type AlertHandler struct {
	engine *inventory.Engine
}

func NewAlertHandler(engine *inventory.Engine) *AlertHandler {
	return &AlertHandler{engine: engine}
}

// ListOpen alertas sin reconocer de la tienda del token, paginadas con ?limit=&offset=.
func (h *AlertHandler) ListOpen(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return unauthorized(c)
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badBody(c)
	}
	page.DefaultPage()
	list, err := h.engine.ListOpenAlerts(c.Context(), storeID)
	if err != nil {
		return writeError(c, err)
	}
	total := len(list)
	start, end := page.Window(total)
	out := make([]dto.LowStockAlertResponse, 0, end-start)
	for _, a := range list[start:end] {
		out = append(out, toAlertResponse(a))
	}
	return c.JSON(fiber.Map{
		"total":  total,
		"alerts": out,
		"page":   dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	})
}

func (h *AlertHandler) Acknowledge(c *fiber.Ctx) error {
	storeID, userID, ok := storeAndUser(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.engine.AcknowledgeAlert(c.Context(), storeID, c.Params("id"), userID); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
