package entity

import "time"

// Estados de una orden vistos por el motor de inventario.
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderFailed    = "failed"
	OrderCompleted = "completed"
	OrderCancelled = "cancelled"
)

// Order copia de coordinación de la orden externa (orders/order_items).
type Order struct {
	ID        string
	StoreID   string
	Status    string
	Items     []OrderItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem línea de orden; se resuelve a un StockRecord por (ProductID, VariantID).
type OrderItem struct {
	ProductID string
	VariantID *string
	Quantity  int64
}

// Clone devuelve una copia profunda.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = make([]OrderItem, len(o.Items))
	for i, it := range o.Items {
		c.Items[i] = it
		if it.VariantID != nil {
			v := *it.VariantID
			c.Items[i].VariantID = &v
		}
	}
	return &c
}
