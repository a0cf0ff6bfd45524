package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de un ajuste de stock.
const (
	AdjustmentPending  = "pending"
	AdjustmentApproved = "approved"
	AdjustmentRejected = "rejected"
)

// StockAdjustment lote de correcciones; solo publica movimientos después de aprobado.
type StockAdjustment struct {
	ID        string
	StoreID   string
	CountID   *string // conteo que originó el ajuste, si aplica
	Reason    string
	Status    string
	CreatedBy string
	DecidedBy string
	DecidedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	Items     []*StockAdjustmentItem
}

// StockAdjustmentItem línea de ajuste: esperado vs. real.
type StockAdjustmentItem struct {
	ID               string
	AdjustmentID     string
	InventoryID      string
	SKU              string
	ExpectedQuantity int64
	ActualQuantity   int64
	Difference       int64 // = Actual - Expected
	UnitCost         decimal.Decimal
	CostImpact       decimal.Decimal // = Difference * UnitCost
	Posted           bool
	MovementID       *string
}

// NewAdjustmentItem construye una línea calculando diferencia e impacto de costo.
func NewAdjustmentItem(inventoryID, sku string, expected, actual int64, unitCost decimal.Decimal) *StockAdjustmentItem {
	diff := actual - expected
	return &StockAdjustmentItem{
		InventoryID:      inventoryID,
		SKU:              sku,
		ExpectedQuantity: expected,
		ActualQuantity:   actual,
		Difference:       diff,
		UnitCost:         unitCost,
		CostImpact:       decimal.NewFromInt(diff).Mul(unitCost),
	}
}

// FullyPosted indica si todas las líneas ya publicaron su movimiento.
func (a *StockAdjustment) FullyPosted() bool {
	for _, it := range a.Items {
		if !it.Posted {
			return false
		}
	}
	return true
}

// TotalCostImpact suma el impacto de costo de todas las líneas.
func (a *StockAdjustment) TotalCostImpact() decimal.Decimal {
	total := decimal.Zero
	for _, it := range a.Items {
		total = total.Add(it.CostImpact)
	}
	return total
}

// Clone devuelve una copia profunda (incluye líneas).
func (a *StockAdjustment) Clone() *StockAdjustment {
	c := *a
	if a.CountID != nil {
		v := *a.CountID
		c.CountID = &v
	}
	if a.DecidedAt != nil {
		t := *a.DecidedAt
		c.DecidedAt = &t
	}
	c.Items = make([]*StockAdjustmentItem, len(a.Items))
	for i, it := range a.Items {
		ci := *it
		if it.MovementID != nil {
			m := *it.MovementID
			ci.MovementID = &m
		}
		c.Items[i] = &ci
	}
	return &c
}
