package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ConfirmOrderInput orden a confirmar contra el stock disponible.
type ConfirmOrderInput struct {
	OrderID string
	StoreID string
	Items   []entity.OrderItem
}

// OrderResult estado de la orden y sus reservas.
type OrderResult struct {
	Order        *entity.Order
	Reservations []*entity.Reservation
}

// FulfillResult orden completada y las salidas que generó.
type FulfillResult struct {
	Order     *entity.Order
	Movements []*entity.MovementEntry
}

// orderLine ítem de orden resuelto a su StockRecord (ítems repetidos se suman).
type orderLine struct {
	sku      string
	quantity int64
}

func (in ConfirmOrderInput) validate() error {
	if strings.TrimSpace(in.OrderID) == "" || strings.TrimSpace(in.StoreID) == "" || len(in.Items) == 0 {
		return domain.ErrInvalidInput
	}
	for _, it := range in.Items {
		if strings.TrimSpace(it.ProductID) == "" || it.Quantity <= 0 {
			return domain.ErrInvalidInput
		}
	}
	return nil
}

// ConfirmOrder reserva todos los ítems de la orden o ninguno.
// Los SKUs se bloquean en orden y las reservas se toman en una sola transacción: si una falla,
// el rollback deshace las anteriores y la orden queda failed. Con ErrLockTimeout la orden sigue
// pending para que el caller reintente. Confirmar dos veces devuelve las reservas existentes.
func (e *Engine) ConfirmOrder(ctx context.Context, in ConfirmOrderInput) (*OrderResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var (
		existing   *OrderResult
		lines      []orderLine
		resolveErr error
	)
	err := e.exec.read(ctx, func(repos Repos) error {
		order, err := repos.Orders.Get(ctx, in.OrderID)
		if err != nil {
			return err
		}
		if order != nil {
			if order.StoreID != in.StoreID {
				return domain.ErrNotFound
			}
			switch order.Status {
			case entity.OrderConfirmed:
				existing, err = orderResult(ctx, repos, order)
				return err
			case entity.OrderPending:
			default:
				return fmt.Errorf("orden %s en estado %s: %w", order.ID, order.Status, domain.ErrInvalidTransition)
			}
		}
		lines, resolveErr = resolveOrderLines(ctx, repos, in.StoreID, in.Items)
		return resolveErr
	})
	if existing != nil {
		return existing, nil
	}
	if err != nil {
		if resolveErr != nil && rejectsOrder(resolveErr) {
			e.failOrder(ctx, in, resolveErr)
		}
		return nil, err
	}

	keys := make([]string, 0, len(lines))
	for _, l := range lines {
		keys = append(keys, StockLockKey(in.StoreID, l.sku))
	}

	var (
		result     *OrderResult
		alerts     []*entity.LowStockAlert
		reserveErr error
	)
	err = e.exec.run(ctx, keys, func(repos Repos) error {
		order, err := repos.Orders.GetForUpdate(ctx, in.OrderID)
		if err != nil {
			return err
		}
		now := e.now()
		if order == nil {
			order = &entity.Order{ID: in.OrderID, StoreID: in.StoreID, Items: in.Items, CreatedAt: now}
		} else if order.Status == entity.OrderConfirmed {
			result, err = orderResult(ctx, repos, order)
			return err
		} else if order.Status != entity.OrderPending {
			return fmt.Errorf("orden %s en estado %s: %w", order.ID, order.Status, domain.ErrInvalidTransition)
		}

		reservations := make([]*entity.Reservation, 0, len(lines))
		for _, l := range lines {
			r, err := e.reservations.Reserve(ctx, repos, in.StoreID, l.sku, l.quantity, in.OrderID)
			if err != nil {
				reserveErr = fmt.Errorf("orden %s: %w", in.OrderID, err)
				return reserveErr
			}
			reservations = append(reservations, r.Reservation)
			if r.Alert != nil {
				alerts = append(alerts, r.Alert)
			}
		}
		order.Status = entity.OrderConfirmed
		order.UpdatedAt = now
		if err := repos.Orders.Save(ctx, order); err != nil {
			return err
		}
		result = &OrderResult{Order: order, Reservations: reservations}
		return nil
	})
	if err != nil {
		if reserveErr != nil && rejectsOrder(reserveErr) {
			e.failOrder(ctx, in, reserveErr)
		}
		e.log.Warn().Err(err).Str("store_id", in.StoreID).Str("order_id", in.OrderID).Msg("confirmación de orden rechazada")
		return nil, err
	}
	e.notify(ctx, alerts...)
	e.log.Info().Str("store_id", in.StoreID).Str("order_id", in.OrderID).Int("reservations", len(result.Reservations)).Msg("orden confirmada")
	return result, nil
}

// rejectsOrder indica si err es un rechazo de negocio que deja la orden failed.
// Timeouts de bloqueo y fallos de infraestructura la dejan pending para que se reintente.
func rejectsOrder(err error) bool {
	if errors.Is(err, domain.ErrLockTimeout) {
		return false
	}
	return errors.Is(err, domain.ErrInsufficientStock) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrInvalidReservationState) ||
		errors.Is(err, domain.ErrInvalidInput)
}

// failOrder deja la orden en failed en una transacción aparte (las reservas ya se revirtieron).
func (e *Engine) failOrder(ctx context.Context, in ConfirmOrderInput, cause error) {
	err := e.exec.read(ctx, func(repos Repos) error {
		order, err := repos.Orders.GetForUpdate(ctx, in.OrderID)
		if err != nil {
			return err
		}
		now := e.now()
		if order == nil {
			order = &entity.Order{ID: in.OrderID, StoreID: in.StoreID, Items: in.Items, CreatedAt: now}
		} else if order.Status != entity.OrderPending {
			return nil
		}
		order.Status = entity.OrderFailed
		order.UpdatedAt = now
		return repos.Orders.Save(ctx, order)
	})
	if err != nil {
		e.log.Error().Err(err).Str("order_id", in.OrderID).Msg("marcar orden como failed")
		return
	}
	e.log.Info().Err(cause).Str("order_id", in.OrderID).Msg("orden fallida")
}

// resolveOrderLines mapea (producto, variante) a SKU y suma cantidades por SKU, ordenado por SKU.
func resolveOrderLines(ctx context.Context, repos Repos, storeID string, items []entity.OrderItem) ([]orderLine, error) {
	bySKU := make(map[string]int64, len(items))
	for _, it := range items {
		stock, err := repos.Stock.FindByProduct(ctx, storeID, it.ProductID, it.VariantID)
		if err != nil {
			return nil, err
		}
		if stock == nil {
			return nil, fmt.Errorf("producto %s sin registro de stock: %w", it.ProductID, domain.ErrNotFound)
		}
		bySKU[stock.SKU] += it.Quantity
	}
	lines := make([]orderLine, 0, len(bySKU))
	for sku, qty := range bySKU {
		lines = append(lines, orderLine{sku: sku, quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].sku < lines[j].sku })
	return lines, nil
}

func orderResult(ctx context.Context, repos Repos, order *entity.Order) (*OrderResult, error) {
	reservations, err := repos.Reservations.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order, Reservations: reservations}, nil
}

// GetOrder devuelve la orden y sus reservas.
func (e *Engine) GetOrder(ctx context.Context, storeID, orderID string) (*OrderResult, error) {
	var result *OrderResult
	err := e.exec.read(ctx, func(repos Repos) error {
		order, err := repos.Orders.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil || order.StoreID != storeID {
			return domain.ErrNotFound
		}
		result, err = orderResult(ctx, repos, order)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// reservationKeys claves de bloqueo ordenadas de las reservas de una orden.
func reservationKeys(reservations []*entity.Reservation) []string {
	seen := make(map[string]bool, len(reservations))
	keys := make([]string, 0, len(reservations))
	for _, r := range reservations {
		k := StockLockKey(r.StoreID, r.SKU)
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// lockedOrderReservations relee la orden y sus reservas con bloqueo de fila, ordenadas por SKU.
func lockedOrderReservations(ctx context.Context, repos Repos, storeID, orderID string) (*entity.Order, []*entity.Reservation, error) {
	order, err := repos.Orders.GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order == nil || order.StoreID != storeID {
		return nil, nil, domain.ErrNotFound
	}
	listed, err := repos.Reservations.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	locked := make([]*entity.Reservation, 0, len(listed))
	for _, r := range listed {
		res, err := lockedReservation(ctx, repos, r.ID)
		if err != nil {
			return nil, nil, err
		}
		locked = append(locked, res)
	}
	sort.Slice(locked, func(i, j int) bool { return locked[i].SKU < locked[j].SKU })
	return order, locked, nil
}

// FulfillOrder consume todas las reservas de una orden confirmada y la pasa a completed.
// Si alguna reserva ya no está activa (liberada por expiración) falla con ErrInvalidReservationState
// y no se consume ninguna. Completar una orden ya completada devuelve sus movimientos.
func (e *Engine) FulfillOrder(ctx context.Context, storeID, orderID, userID string) (*FulfillResult, error) {
	if strings.TrimSpace(orderID) == "" || strings.TrimSpace(userID) == "" {
		return nil, domain.ErrInvalidInput
	}
	current, err := e.GetOrder(ctx, storeID, orderID)
	if err != nil {
		return nil, err
	}

	var (
		result *FulfillResult
		alerts []*entity.LowStockAlert
	)
	err = e.exec.run(ctx, reservationKeys(current.Reservations), func(repos Repos) error {
		order, reservations, err := lockedOrderReservations(ctx, repos, storeID, orderID)
		if err != nil {
			return err
		}
		switch order.Status {
		case entity.OrderCompleted:
			movements, err := consumedMovements(ctx, repos, reservations)
			if err != nil {
				return err
			}
			result = &FulfillResult{Order: order, Movements: movements}
			return nil
		case entity.OrderConfirmed:
		default:
			return fmt.Errorf("orden %s en estado %s: %w", order.ID, order.Status, domain.ErrInvalidTransition)
		}

		for _, res := range reservations {
			if !res.IsActive() {
				return fmt.Errorf("orden %s: reserva %s en estado %s: %w", orderID, res.ID, res.Status, domain.ErrInvalidReservationState)
			}
		}
		movements := make([]*entity.MovementEntry, 0, len(reservations))
		for _, res := range reservations {
			applied, err := e.reservations.Consume(ctx, repos, res, userID)
			if err != nil {
				return err
			}
			movements = append(movements, applied.Entry)
			if applied.Alert != nil {
				alerts = append(alerts, applied.Alert)
			}
		}
		order.Status = entity.OrderCompleted
		order.UpdatedAt = e.now()
		if err := repos.Orders.Save(ctx, order); err != nil {
			return err
		}
		result = &FulfillResult{Order: order, Movements: movements}
		return nil
	})
	if err != nil {
		e.log.Warn().Err(err).Str("order_id", orderID).Msg("despacho de orden rechazado")
		return nil, err
	}
	e.notify(ctx, alerts...)
	e.log.Info().Str("order_id", orderID).Int("movements", len(result.Movements)).Msg("orden completada")
	return result, nil
}

func consumedMovements(ctx context.Context, repos Repos, reservations []*entity.Reservation) ([]*entity.MovementEntry, error) {
	movements := make([]*entity.MovementEntry, 0, len(reservations))
	for _, res := range reservations {
		if res.MovementID == nil {
			continue
		}
		m, err := repos.Movements.GetByID(ctx, *res.MovementID)
		if err != nil {
			return nil, err
		}
		if m != nil {
			movements = append(movements, m)
		}
	}
	return movements, nil
}

// CancelOrder libera las reservas activas de la orden y la pasa a cancelled.
// Cancelar una orden completada falla con ErrInvalidTransition; cancelar dos veces es un no-op.
func (e *Engine) CancelOrder(ctx context.Context, storeID, orderID string) (*OrderResult, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, domain.ErrInvalidInput
	}
	current, err := e.GetOrder(ctx, storeID, orderID)
	if err != nil {
		return nil, err
	}

	var result *OrderResult
	err = e.exec.run(ctx, reservationKeys(current.Reservations), func(repos Repos) error {
		order, reservations, err := lockedOrderReservations(ctx, repos, storeID, orderID)
		if err != nil {
			return err
		}
		switch order.Status {
		case entity.OrderCancelled:
			result = &OrderResult{Order: order, Reservations: reservations}
			return nil
		case entity.OrderCompleted:
			return fmt.Errorf("orden %s en estado %s: %w", order.ID, order.Status, domain.ErrInvalidTransition)
		}
		for _, res := range reservations {
			// Las expiradas ya las liberó el reaper
			if !res.IsActive() {
				continue
			}
			if _, err := e.reservations.Release(ctx, repos, res); err != nil {
				return err
			}
		}
		order.Status = entity.OrderCancelled
		order.UpdatedAt = e.now()
		if err := repos.Orders.Save(ctx, order); err != nil {
			return err
		}
		result = &OrderResult{Order: order, Reservations: reservations}
		return nil
	})
	if err != nil {
		e.log.Warn().Err(err).Str("order_id", orderID).Msg("cancelación de orden rechazada")
		return nil, err
	}
	e.log.Info().Str("order_id", orderID).Msg("orden cancelada")
	return result, nil
}
