package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento del ledger.
const (
	MovementTypeIn         = "in"         // entrada
	MovementTypeOut        = "out"        // salida
	MovementTypeAdjustment = "adjustment" // ajuste (diferencia con signo)
)

// Tipos de referencia que originan un movimiento.
const (
	ReferenceOrder      = "order"
	ReferenceAdjustment = "adjustment"
	ReferenceTransfer   = "transfer"
	ReferenceReturn     = "return"
	ReferencePurchase   = "purchase"
)

// ValidMovementType valida el tipo de movimiento.
func ValidMovementType(t string) bool {
	switch t {
	case MovementTypeIn, MovementTypeOut, MovementTypeAdjustment:
		return true
	}
	return false
}

// ValidReferenceType valida el tipo de referencia.
func ValidReferenceType(t string) bool {
	switch t {
	case ReferenceOrder, ReferenceAdjustment, ReferenceTransfer, ReferenceReturn, ReferencePurchase:
		return true
	}
	return false
}

// MovementEntry registro inmutable del ledger (tabla inventory_movements).
// Para in/out Quantity es la magnitud (> 0); para adjustment es la diferencia con signo.
type MovementEntry struct {
	ID            string
	Sequence      int64 // orden de inserción = orden causal
	StoreID       string
	InventoryID   string
	ReferenceType string
	ReferenceID   string
	MovementType  string
	Quantity      int64
	UnitCost      decimal.Decimal
	Reason        string
	CreatedBy     string
	CreatedAt     time.Time
}

// Effect devuelve el efecto con signo del movimiento sobre quantity_on_hand.
func (m *MovementEntry) Effect() int64 {
	switch m.MovementType {
	case MovementTypeIn:
		return m.Quantity
	case MovementTypeOut:
		return -m.Quantity
	default:
		return m.Quantity
	}
}

// ReferenceKey clave de idempotencia del ledger.
type ReferenceKey struct {
	ReferenceType string
	ReferenceID   string
	InventoryID   string
	MovementType  string
}

// Key devuelve la clave de idempotencia del movimiento.
func (m *MovementEntry) Key() ReferenceKey {
	return ReferenceKey{
		ReferenceType: m.ReferenceType,
		ReferenceID:   m.ReferenceID,
		InventoryID:   m.InventoryID,
		MovementType:  m.MovementType,
	}
}
