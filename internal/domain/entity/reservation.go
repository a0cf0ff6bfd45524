package entity

import "time"

// Estados de una reserva.
const (
	ReservationActive   = "active"
	ReservationConsumed = "consumed"
	ReservationReleased = "released"
)

// Reservation retención de cantidad sobre quantity_reserved para una orden.
// Única activa por (OrderID, InventoryID).
type Reservation struct {
	ID          string
	StoreID     string
	InventoryID string
	SKU         string
	OrderID     string
	Quantity    int64
	Status      string
	MovementID  *string // movimiento out generado al consumir
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsActive indica si la reserva sigue reteniendo stock.
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationActive
}

// Clone devuelve una copia independiente.
func (r *Reservation) Clone() *Reservation {
	c := *r
	if r.MovementID != nil {
		m := *r.MovementID
		c.MovementID = &m
	}
	return &c
}
