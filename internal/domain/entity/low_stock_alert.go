package entity

import "time"

// Niveles de alerta.
const (
	AlertLevelLow      = "low"
	AlertLevelCritical = "critical"
)

// LowStockAlert alerta derivada (no autoritativa). A lo sumo una abierta por StockRecord.
type LowStockAlert struct {
	ID                string
	StoreID           string
	InventoryID       string
	SKU               string
	AlertLevel        string
	QuantityAvailable int64
	ReorderLevel      int64
	Acknowledged      bool
	AcknowledgedBy    string
	AcknowledgedAt    *time.Time
	CreatedAt         time.Time
}

// Clone devuelve una copia independiente.
func (a *LowStockAlert) Clone() *LowStockAlert {
	c := *a
	if a.AcknowledgedAt != nil {
		t := *a.AcknowledgedAt
		c.AcknowledgedAt = &t
	}
	return &c
}
