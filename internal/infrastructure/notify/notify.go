// Package notify difunde alertas de stock bajo a sistemas externos (SNS, Kafka).
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// EventLowStock tipo de evento publicado por los notificadores.
const EventLowStock = "LowStockAlert"

// AlertEvent mensaje JSON publicado por cada alerta.
type AlertEvent struct {
	EventType         string    `json:"event_type"`
	AlertID           string    `json:"alert_id"`
	StoreID           string    `json:"store_id"`
	InventoryID       string    `json:"inventory_id"`
	SKU               string    `json:"sku"`
	AlertLevel        string    `json:"alert_level"`
	QuantityAvailable int64     `json:"quantity_available"`
	ReorderLevel      int64     `json:"reorder_level"`
	CreatedAt         time.Time `json:"created_at"`
}

// NewAlertEvent arma el mensaje a partir de la alerta.
func NewAlertEvent(a *entity.LowStockAlert) AlertEvent {
	return AlertEvent{
		EventType:         EventLowStock,
		AlertID:           a.ID,
		StoreID:           a.StoreID,
		InventoryID:       a.InventoryID,
		SKU:               a.SKU,
		AlertLevel:        a.AlertLevel,
		QuantityAvailable: a.QuantityAvailable,
		ReorderLevel:      a.ReorderLevel,
		CreatedAt:         a.CreatedAt,
	}
}

func encode(a *entity.LowStockAlert) ([]byte, error) {
	return json.Marshal(NewAlertEvent(a))
}

// Fanout envía la alerta a todos los notificadores; los errores se acumulan.
type Fanout []inventory.AlertNotifier

var _ inventory.AlertNotifier = Fanout(nil)

func (f Fanout) Notify(ctx context.Context, a *entity.LowStockAlert) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
