package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordMovementRequest body para POST /api/inventory/movements.
type RecordMovementRequest struct {
	SKU           string           `json:"sku"`
	ReferenceType string           `json:"reference_type"` // order | adjustment | transfer | return | purchase
	ReferenceID   string           `json:"reference_id"`
	MovementType  string           `json:"movement_type"` // in | out | adjustment
	Quantity      int64            `json:"quantity"`
	UnitCost      *decimal.Decimal `json:"unit_cost,omitempty"`
	Reason        string           `json:"reason,omitempty"`
}

// StockSettingsRequest body para PUT /api/inventory/:sku.
type StockSettingsRequest struct {
	ProductID     string  `json:"product_id"`
	VariantID     *string `json:"variant_id,omitempty"`
	ReorderLevel  int64   `json:"reorder_level"`
	MaxStockLevel *int64  `json:"max_stock_level,omitempty"`
}

// StockResponse nivel de stock de un SKU.
type StockResponse struct {
	InventoryID       string          `json:"inventory_id"`
	StoreID           string          `json:"store_id"`
	SKU               string          `json:"sku"`
	ProductID         string          `json:"product_id"`
	VariantID         *string         `json:"variant_id,omitempty"`
	QuantityOnHand    int64           `json:"quantity_on_hand"`
	QuantityReserved  int64           `json:"quantity_reserved"`
	QuantityAvailable int64           `json:"quantity_available"`
	ReorderLevel      int64           `json:"reorder_level"`
	MaxStockLevel     *int64          `json:"max_stock_level,omitempty"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	TotalValue        decimal.Decimal `json:"total_value"`
	LastMovementDate  *time.Time      `json:"last_movement_date,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// MovementResponse entrada del ledger.
type MovementResponse struct {
	ID            string          `json:"id"`
	Sequence      int64           `json:"sequence"`
	InventoryID   string          `json:"inventory_id"`
	ReferenceType string          `json:"reference_type"`
	ReferenceID   string          `json:"reference_id"`
	MovementType  string          `json:"movement_type"`
	Quantity      int64           `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	Reason        string          `json:"reason,omitempty"`
	CreatedBy     string          `json:"created_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// VerificationResponse caché vs. replay del ledger.
type VerificationResponse struct {
	InventoryID    string `json:"inventory_id"`
	CachedOnHand   int64  `json:"cached_on_hand"`
	ReplayedOnHand int64  `json:"replayed_on_hand"`
	Entries        int    `json:"entries"`
	Consistent     bool   `json:"consistent"`
}

// ReserveRequest body para POST /api/reservations.
type ReserveRequest struct {
	SKU      string `json:"sku"`
	Quantity int64  `json:"quantity"`
	OrderID  string `json:"order_id"`
}

// ReservationResponse reserva de stock.
type ReservationResponse struct {
	ID          string    `json:"id"`
	InventoryID string    `json:"inventory_id"`
	SKU         string    `json:"sku"`
	OrderID     string    `json:"order_id"`
	Quantity    int64     `json:"quantity"`
	Status      string    `json:"status"`
	MovementID  *string   `json:"movement_id,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// AdjustmentItemRequest línea de ajuste; expected_quantity vacío = on_hand actual.
type AdjustmentItemRequest struct {
	SKU              string `json:"sku"`
	ExpectedQuantity *int64 `json:"expected_quantity,omitempty"`
	ActualQuantity   int64  `json:"actual_quantity"`
}

// CreateAdjustmentRequest body para POST /api/adjustments.
type CreateAdjustmentRequest struct {
	Reason string                  `json:"reason"`
	Items  []AdjustmentItemRequest `json:"items"`
}

// AdjustmentItemResponse línea de ajuste.
type AdjustmentItemResponse struct {
	SKU              string          `json:"sku"`
	ExpectedQuantity int64           `json:"expected_quantity"`
	ActualQuantity   int64           `json:"actual_quantity"`
	Difference       int64           `json:"difference"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	CostImpact       decimal.Decimal `json:"cost_impact"`
	Posted           bool            `json:"posted"`
	MovementID       *string         `json:"movement_id,omitempty"`
}

// AdjustmentResponse ajuste con sus líneas.
type AdjustmentResponse struct {
	ID              string                   `json:"id"`
	CountID         *string                  `json:"count_id,omitempty"`
	Reason          string                   `json:"reason"`
	Status          string                   `json:"status"`
	CreatedBy       string                   `json:"created_by"`
	DecidedBy       string                   `json:"decided_by,omitempty"`
	DecidedAt       *time.Time               `json:"decided_at,omitempty"`
	TotalCostImpact decimal.Decimal          `json:"total_cost_impact"`
	Items           []AdjustmentItemResponse `json:"items"`
	CreatedAt       time.Time                `json:"created_at"`
}

// StartCountRequest body para POST /api/counts.
type StartCountRequest struct {
	Notes string   `json:"notes"`
	SKUs  []string `json:"skus"`
}

// RecordCountRequest body para PUT /api/counts/:id/items/:sku.
type RecordCountRequest struct {
	CountedQuantity int64 `json:"counted_quantity"`
}

// CountFromAdjustmentRequest body para POST /api/counts/:id/adjustment.
type CountFromAdjustmentRequest struct {
	Reason string `json:"reason"`
}

// CountItemResponse línea de conteo.
type CountItemResponse struct {
	SKU              string `json:"sku"`
	ExpectedQuantity int64  `json:"expected_quantity"`
	CountedQuantity  *int64 `json:"counted_quantity,omitempty"`
	Difference       *int64 `json:"difference,omitempty"`
}

// CountResponse conteo físico.
type CountResponse struct {
	ID           string              `json:"id"`
	Status       string              `json:"status"`
	Notes        string              `json:"notes,omitempty"`
	AdjustmentID *string             `json:"adjustment_id,omitempty"`
	StartedBy    string              `json:"started_by"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
	Items        []CountItemResponse `json:"items"`
}

// ProposedAdjustmentResponse discrepancia detectada al completar un conteo.
type ProposedAdjustmentResponse struct {
	SKU              string          `json:"sku"`
	ExpectedQuantity int64           `json:"expected_quantity"`
	ActualQuantity   int64           `json:"actual_quantity"`
	Difference       int64           `json:"difference"`
	CostImpact       decimal.Decimal `json:"cost_impact"`
}

// LowStockAlertResponse alerta de stock bajo.
type LowStockAlertResponse struct {
	ID                string     `json:"id"`
	InventoryID       string     `json:"inventory_id"`
	SKU               string     `json:"sku"`
	AlertLevel        string     `json:"alert_level"`
	QuantityAvailable int64      `json:"quantity_available"`
	ReorderLevel      int64      `json:"reorder_level"`
	Acknowledged      bool       `json:"acknowledged"`
	AcknowledgedBy    string     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt    *time.Time `json:"acknowledged_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// OrderItemRequest línea de orden.
type OrderItemRequest struct {
	ProductID string  `json:"product_id"`
	VariantID *string `json:"variant_id,omitempty"`
	Quantity  int64   `json:"quantity"`
}

// ConfirmOrderRequest body para POST /api/orders/:id/confirm.
type ConfirmOrderRequest struct {
	Items []OrderItemRequest `json:"items"`
}

// OrderResponse orden con sus reservas y, si se completó, sus salidas.
type OrderResponse struct {
	ID           string                `json:"id"`
	Status       string                `json:"status"`
	Items        []OrderItemRequest    `json:"items"`
	Reservations []ReservationResponse `json:"reservations"`
	Movements    []MovementResponse    `json:"movements,omitempty"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// ReplenishmentSuggestionDTO sugerencia de reposición para un SKU bajo su punto de reorden.
type ReplenishmentSuggestionDTO struct {
	InventoryID        string          `json:"inventory_id"`
	SKU                string          `json:"sku"`
	ProductID          string          `json:"product_id"`
	VariantID          *string         `json:"variant_id,omitempty"`
	QuantityOnHand     int64           `json:"quantity_on_hand"`
	QuantityAvailable  int64           `json:"quantity_available"`
	ReorderLevel       int64           `json:"reorder_level"`
	TargetStock        int64           `json:"target_stock"`         // max_stock_level o 1.5 × reorder_level
	SuggestedOrderQty  int64           `json:"suggested_order_qty"`  // TargetStock - QuantityOnHand
	UnitCost           decimal.Decimal `json:"unit_cost"`            // costo promedio ponderado
	EstimatedOrderCost decimal.Decimal `json:"estimated_order_cost"` // SuggestedOrderQty * UnitCost
	Priority           int             `json:"priority"`             // 1 = más urgente
}

// ExpireReservationsResponse resultado del barrido de reservas vencidas.
type ExpireReservationsResponse struct {
	Released int `json:"released"`
}
