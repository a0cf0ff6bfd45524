package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

// LowStockMonitor evalúa un StockRecord contra su punto de reorden después de cada escritura.
// Corre inline dentro de la misma transacción; no hay tareas en segundo plano.
type LowStockMonitor struct {
	now func() time.Time
}

// NewLowStockMonitor construye el monitor.
func NewLowStockMonitor(now func() time.Time) *LowStockMonitor {
	if now == nil {
		now = time.Now
	}
	return &LowStockMonitor{now: now}
}

// Evaluate crea una alerta si el disponible está bajo el punto de reorden y no hay otra abierta.
// Las alertas abiertas no se cierran solas aunque el stock se recupere.
func (m *LowStockMonitor) Evaluate(ctx context.Context, repos Repos, stock *entity.StockRecord) (*entity.LowStockAlert, error) {
	level := inventory.AlertLevelFor(stock)
	if level == "" {
		return nil, nil
	}
	open, err := repos.Alerts.FindOpen(ctx, stock.ID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, nil
	}
	alert := &entity.LowStockAlert{
		ID:                uuid.New().String(),
		StoreID:           stock.StoreID,
		InventoryID:       stock.ID,
		SKU:               stock.SKU,
		AlertLevel:        level,
		QuantityAvailable: stock.QuantityAvailable,
		ReorderLevel:      stock.ReorderLevel,
		CreatedAt:         m.now(),
	}
	if err := repos.Alerts.Create(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

// Acknowledge marca la alerta como reconocida. Un segundo reconocimiento falla con ErrAlreadyAcknowledged.
func (m *LowStockMonitor) Acknowledge(ctx context.Context, repos Repos, storeID, alertID, userID string) (*entity.LowStockAlert, error) {
	if alertID == "" || userID == "" {
		return nil, domain.ErrInvalidInput
	}
	alert, err := repos.Alerts.GetForUpdate(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if alert == nil || alert.StoreID != storeID {
		return nil, domain.ErrNotFound
	}
	if alert.Acknowledged {
		return nil, domain.ErrAlreadyAcknowledged
	}
	now := m.now()
	alert.Acknowledged = true
	alert.AcknowledgedBy = userID
	alert.AcknowledgedAt = &now
	if err := repos.Alerts.Update(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}
