package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ReservationManager retiene y libera cantidad contra quantity_reserved.
// Reservar no genera movimiento (es una retención); consumir la convierte en una salida del ledger.
type ReservationManager struct {
	applier *MovementApplier
	monitor *LowStockMonitor
	ttl     time.Duration
	now     func() time.Time
}

// NewReservationManager construye el gestor. ttl es la vida de una reserva antes de que el reaper pueda liberarla.
func NewReservationManager(applier *MovementApplier, monitor *LowStockMonitor, ttl time.Duration, now func() time.Time) *ReservationManager {
	if now == nil {
		now = time.Now
	}
	return &ReservationManager{applier: applier, monitor: monitor, ttl: ttl, now: now}
}

// ReserveResult resultado de una reserva.
type ReserveResult struct {
	Reservation *entity.Reservation
	Record      *entity.StockRecord
	Alert       *entity.LowStockAlert
}

// Reserve retiene quantity del SKU para la orden. Solo tiene éxito si quantity_available >= quantity.
// Reintentar la misma reserva (misma orden, SKU y cantidad) devuelve la reserva existente.
func (m *ReservationManager) Reserve(ctx context.Context, repos Repos, storeID, sku string, quantity int64, orderID string) (*ReserveResult, error) {
	if strings.TrimSpace(storeID) == "" || strings.TrimSpace(sku) == "" || strings.TrimSpace(orderID) == "" || quantity <= 0 {
		return nil, domain.ErrInvalidInput
	}
	stock, err := repos.Stock.GetForUpdate(ctx, storeID, sku)
	if err != nil {
		return nil, err
	}
	if stock == nil {
		return nil, fmt.Errorf("sku %s: %w", sku, domain.ErrNotFound)
	}

	existing, err := repos.Reservations.FindActive(ctx, orderID, stock.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Quantity == quantity {
			return &ReserveResult{Reservation: existing, Record: stock}, nil
		}
		return nil, fmt.Errorf("orden %s ya tiene una reserva de %d para %s: %w", orderID, existing.Quantity, sku, domain.ErrInvalidReservationState)
	}

	if stock.QuantityAvailable < quantity {
		return nil, fmt.Errorf("sku %s: disponible %d, solicitado %d: %w", sku, stock.QuantityAvailable, quantity, domain.ErrInsufficientStock)
	}

	now := m.now()
	next := stock.Clone()
	next.QuantityReserved += quantity
	next.Recalculate()
	next.UpdatedAt = now
	if err := repos.Stock.Upsert(ctx, next); err != nil {
		return nil, err
	}

	res := &entity.Reservation{
		ID:          uuid.New().String(),
		StoreID:     storeID,
		InventoryID: next.ID,
		SKU:         sku,
		OrderID:     orderID,
		Quantity:    quantity,
		Status:      entity.ReservationActive,
		ExpiresAt:   now.Add(m.ttl),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repos.Reservations.Create(ctx, res); err != nil {
		return nil, err
	}

	alert, err := m.monitor.Evaluate(ctx, repos, next)
	if err != nil {
		return nil, err
	}
	return &ReserveResult{Reservation: res, Record: next, Alert: alert}, nil
}

// Consume convierte la retención en una salida (reference_type=order): on_hand y reserved bajan
// en la misma cantidad. La reserva debe venir bloqueada (GetForUpdate) por el caller.
func (m *ReservationManager) Consume(ctx context.Context, repos Repos, res *entity.Reservation, userID string) (*ApplyResult, error) {
	if !res.IsActive() {
		return nil, fmt.Errorf("reserva %s en estado %s: %w", res.ID, res.Status, domain.ErrInvalidReservationState)
	}
	result, err := m.applier.Apply(ctx, repos, MovementInput{
		StoreID:         res.StoreID,
		SKU:             res.SKU,
		ReferenceType:   entity.ReferenceOrder,
		ReferenceID:     res.OrderID,
		MovementType:    entity.MovementTypeOut,
		Quantity:        res.Quantity,
		Reason:          "consumo de reserva " + res.ID,
		UserID:          userID,
		ReleaseReserved: res.Quantity,
	})
	if err != nil {
		return nil, err
	}
	if result.Duplicate {
		// La orden ya tuvo una salida para este SKU con otra reserva
		return nil, fmt.Errorf("orden %s ya consumió %s (movimiento %s): %w", res.OrderID, res.SKU, result.Entry.ID, domain.ErrInvalidReservationState)
	}

	movementID := result.Entry.ID
	res.Status = entity.ReservationConsumed
	res.MovementID = &movementID
	res.UpdatedAt = m.now()
	if err := repos.Reservations.Update(ctx, res); err != nil {
		return nil, err
	}
	return result, nil
}

// Release libera la retención (reserved baja, on_hand no cambia). Usado en cancelación o expiración.
func (m *ReservationManager) Release(ctx context.Context, repos Repos, res *entity.Reservation) (*entity.StockRecord, error) {
	if !res.IsActive() {
		return nil, fmt.Errorf("reserva %s en estado %s: %w", res.ID, res.Status, domain.ErrInvalidReservationState)
	}
	stock, err := repos.Stock.GetForUpdate(ctx, res.StoreID, res.SKU)
	if err != nil {
		return nil, err
	}
	if stock == nil {
		return nil, fmt.Errorf("sku %s: %w", res.SKU, domain.ErrNotFound)
	}
	if stock.QuantityReserved < res.Quantity {
		return nil, fmt.Errorf("sku %s: reservado %d menor que la reserva %d: %w", res.SKU, stock.QuantityReserved, res.Quantity, domain.ErrInvalidReservationState)
	}

	now := m.now()
	next := stock.Clone()
	next.QuantityReserved -= res.Quantity
	next.Recalculate()
	next.UpdatedAt = now
	if err := repos.Stock.Upsert(ctx, next); err != nil {
		return nil, err
	}
	res.Status = entity.ReservationReleased
	res.UpdatedAt = now
	if err := repos.Reservations.Update(ctx, res); err != nil {
		return nil, err
	}
	return next, nil
}
