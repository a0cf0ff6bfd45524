package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Engine      *inventory.Engine
	JWTSecret   string
	ServiceName string
	// Ready comprueba dependencias externas (BD, Redis); nil = siempre listo.
	Ready func(ctx context.Context) error
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		if deps.Ready != nil {
			if err := deps.Ready(c.Context()); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "error": err.Error()})
			}
		}
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	anyRole := RequireRole(RoleAdmin, RoleBodeguero, RoleVendedor)
	warehouse := RequireRole(RoleAdmin, RoleBodeguero)
	admin := RequireRole(RoleAdmin)

	// Inventory (replenishment-list y movements antes de /:sku)
	inv := protected.Group("/inventory")
	invHandler := NewInventoryHandler(deps.Engine)
	inv.Get("/replenishment-list", anyRole, invHandler.GetReplenishmentList)
	inv.Post("/movements", warehouse, invHandler.RecordMovement)
	inv.Get("/:sku", anyRole, invHandler.GetStock)
	inv.Put("/:sku", warehouse, invHandler.ConfigureStock)
	inv.Get("/:sku/movements", anyRole, invHandler.ListMovements)
	inv.Get("/:sku/verify", warehouse, invHandler.Verify)
	inv.Post("/:sku/rebuild", admin, invHandler.Rebuild)

	// Reservations
	res := protected.Group("/reservations")
	resHandler := NewReservationHandler(deps.Engine)
	res.Post("/", anyRole, resHandler.Reserve)
	res.Post("/expire", admin, resHandler.ReleaseExpired)
	res.Post("/:id/consume", anyRole, resHandler.Consume)
	res.Post("/:id/release", anyRole, resHandler.Release)

	// Adjustments y conteos físicos
	adjHandler := NewAdjustmentHandler(deps.Engine)
	adj := protected.Group("/adjustments")
	adj.Post("/", warehouse, adjHandler.Create)
	adj.Get("/:id", warehouse, adjHandler.Get)
	adj.Post("/:id/approve", admin, adjHandler.Approve)
	adj.Post("/:id/reject", admin, adjHandler.Reject)
	adj.Post("/:id/post", admin, adjHandler.Post)

	counts := protected.Group("/counts")
	counts.Post("/", warehouse, adjHandler.StartCount)
	counts.Get("/:id", warehouse, adjHandler.GetCount)
	counts.Put("/:id/items/:sku", warehouse, adjHandler.RecordCount)
	counts.Post("/:id/complete", warehouse, adjHandler.CompleteCount)
	counts.Post("/:id/adjustment", warehouse, adjHandler.CreateAdjustmentFromCount)

	// Orders
	orders := protected.Group("/orders")
	orderHandler := NewOrderHandler(deps.Engine)
	orders.Get("/:id", anyRole, orderHandler.Get)
	orders.Post("/:id/confirm", anyRole, orderHandler.Confirm)
	orders.Post("/:id/fulfill", warehouse, orderHandler.Fulfill)
	orders.Post("/:id/cancel", anyRole, orderHandler.Cancel)

	// Low-stock alerts
	alerts := protected.Group("/alerts")
	alertHandler := NewAlertHandler(deps.Engine)
	alerts.Get("/", anyRole, alertHandler.ListOpen)
	alerts.Post("/:id/acknowledge", warehouse, alertHandler.Acknowledge)
}
