package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de un conteo físico.
const (
	CountInProgress = "in_progress"
	CountCompleted  = "completed"
)

// InventoryCount sesión de conteo físico. Nunca escribe en StockRecord directamente.
type InventoryCount struct {
	ID           string
	StoreID      string
	Status       string
	Notes        string
	AdjustmentID *string // ajuste creado a partir de las discrepancias
	StartedBy    string
	CompletedBy  string
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Items        []*InventoryCountItem
}

// InventoryCountItem esperado (on_hand al iniciar) vs. contado.
type InventoryCountItem struct {
	ID               string
	CountID          string
	InventoryID      string
	SKU              string
	ExpectedQuantity int64
	CountedQuantity  *int64
	Difference       *int64
	UnitCost         decimal.Decimal
}

// ProposedAdjustmentItem discrepancia detectada al completar un conteo.
type ProposedAdjustmentItem struct {
	InventoryID      string
	SKU              string
	ExpectedQuantity int64
	ActualQuantity   int64
	Difference       int64
	UnitCost         decimal.Decimal
	CostImpact       decimal.Decimal
}

// ItemBySKU busca la línea del conteo por SKU.
func (c *InventoryCount) ItemBySKU(sku string) *InventoryCountItem {
	for _, it := range c.Items {
		if it.SKU == sku {
			return it
		}
	}
	return nil
}

// Clone devuelve una copia profunda.
func (c *InventoryCount) Clone() *InventoryCount {
	cp := *c
	if c.CompletedAt != nil {
		t := *c.CompletedAt
		cp.CompletedAt = &t
	}
	if c.AdjustmentID != nil {
		v := *c.AdjustmentID
		cp.AdjustmentID = &v
	}
	cp.Items = make([]*InventoryCountItem, len(c.Items))
	for i, it := range c.Items {
		ci := *it
		if it.CountedQuantity != nil {
			v := *it.CountedQuantity
			ci.CountedQuantity = &v
		}
		if it.Difference != nil {
			v := *it.Difference
			ci.Difference = &v
		}
		cp.Items[i] = &ci
	}
	return &cp
}
