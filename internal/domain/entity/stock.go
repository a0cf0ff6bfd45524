package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockRecord vista materializada del stock de un SKU en una tienda (tabla inventory).
// Es una caché del ledger: solo la modifican el aplicador de movimientos y el gestor de reservas.
type StockRecord struct {
	ID                string // inventory_id
	StoreID           string
	SKU               string
	ProductID         string
	VariantID         *string
	QuantityOnHand    int64
	QuantityReserved  int64
	QuantityAvailable int64 // = OnHand - Reserved
	ReorderLevel      int64
	MaxStockLevel     *int64
	UnitCost          decimal.Decimal // costo promedio ponderado
	TotalValue        decimal.Decimal // = OnHand * UnitCost
	LastMovementDate  *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Recalculate recalcula los campos derivados (disponible y valor total).
func (s *StockRecord) Recalculate() {
	s.QuantityAvailable = s.QuantityOnHand - s.QuantityReserved
	s.TotalValue = decimal.NewFromInt(s.QuantityOnHand).Mul(s.UnitCost)
}

// Consistent indica si se cumplen los invariantes de cantidades.
func (s *StockRecord) Consistent() bool {
	return s.QuantityOnHand >= 0 &&
		s.QuantityReserved >= 0 &&
		s.QuantityReserved <= s.QuantityOnHand &&
		s.QuantityAvailable == s.QuantityOnHand-s.QuantityReserved
}

// Clone devuelve una copia independiente del registro.
func (s *StockRecord) Clone() *StockRecord {
	c := *s
	if s.VariantID != nil {
		v := *s.VariantID
		c.VariantID = &v
	}
	if s.MaxStockLevel != nil {
		m := *s.MaxStockLevel
		c.MaxStockLevel = &m
	}
	if s.LastMovementDate != nil {
		t := *s.LastMovementDate
		c.LastMovementDate = &t
	}
	return &c
}
