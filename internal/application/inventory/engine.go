package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// EngineConfig parámetros del motor.
type EngineConfig struct {
	LockTimeout    time.Duration    // espera máxima por el bloqueo de un SKU
	ReservationTTL time.Duration    // vida de una reserva antes de que el reaper pueda liberarla
	Now            func() time.Time // reloj (inyectable en tests)
}

// Engine fachada del motor de inventario: bloqueo por SKU + transacción + componentes.
// Es la interfaz que consumen la capa de órdenes y la de compras/recepción.
type Engine struct {
	exec         *executor
	notifier     AlertNotifier
	log          *logger.Logger
	now          func() time.Time
	applier      *MovementApplier
	reservations *ReservationManager
	reconciler   *AdjustmentReconciler
	monitor      *LowStockMonitor
}

// NewEngine construye el motor. notifier y log pueden ser nil.
func NewEngine(tx TxRunner, locker Locker, notifier AlertNotifier, log *logger.Logger, cfg EngineConfig) *Engine {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 5 * time.Second
	}
	if cfg.ReservationTTL <= 0 {
		cfg.ReservationTTL = 30 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	} else {
		log = log.Component("inventory")
	}
	monitor := NewLowStockMonitor(cfg.Now)
	applier := NewMovementApplier(monitor, cfg.Now)
	return &Engine{
		exec:         &executor{tx: tx, locker: locker, timeout: cfg.LockTimeout},
		notifier:     notifier,
		log:          log,
		now:          cfg.Now,
		applier:      applier,
		reservations: NewReservationManager(applier, monitor, cfg.ReservationTTL, cfg.Now),
		reconciler:   NewAdjustmentReconciler(applier, cfg.Now),
		monitor:      monitor,
	}
}

// notify difunde las alertas creadas, después del commit. Un fallo del notificador no revierte nada.
func (e *Engine) notify(ctx context.Context, alerts ...*entity.LowStockAlert) {
	for _, a := range alerts {
		if a == nil {
			continue
		}
		e.log.Warn().
			Str("store_id", a.StoreID).
			Str("sku", a.SKU).
			Str("alert_id", a.ID).
			Str("level", a.AlertLevel).
			Int64("available", a.QuantityAvailable).
			Int64("reorder_level", a.ReorderLevel).
			Msg("alerta de stock bajo")
		if e.notifier == nil {
			continue
		}
		if err := e.notifier.Notify(ctx, a); err != nil {
			e.log.Error().Err(err).Str("alert_id", a.ID).Msg("notificar alerta de stock bajo")
		}
	}
}

// ReserveStock retiene qty del SKU para la orden orderRef.
func (e *Engine) ReserveStock(ctx context.Context, storeID, sku string, qty int64, orderRef string) (*entity.Reservation, error) {
	var result *ReserveResult
	err := e.exec.run(ctx, []string{StockLockKey(storeID, sku)}, func(repos Repos) error {
		var err error
		result, err = e.reservations.Reserve(ctx, repos, storeID, sku, qty, orderRef)
		return err
	})
	if err != nil {
		e.log.Warn().Err(err).Str("store_id", storeID).Str("sku", sku).Str("order_id", orderRef).Int64("quantity", qty).Msg("reserva rechazada")
		return nil, err
	}
	e.notify(ctx, result.Alert)
	e.log.Info().Str("store_id", storeID).Str("sku", sku).Str("order_id", orderRef).Str("reservation_id", result.Reservation.ID).Msg("stock reservado")
	return result.Reservation, nil
}

// loadReservation lee la reserva fuera del bloqueo para conocer su SKU.
func (e *Engine) loadReservation(ctx context.Context, storeID, reservationID string) (*entity.Reservation, error) {
	if strings.TrimSpace(reservationID) == "" {
		return nil, domain.ErrInvalidInput
	}
	var res *entity.Reservation
	err := e.exec.read(ctx, func(repos Repos) error {
		var err error
		res, err = repos.Reservations.Get(ctx, reservationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res == nil || res.StoreID != storeID {
		return nil, domain.ErrNotFound
	}
	return res, nil
}

// lockedReservation relee la reserva con bloqueo de fila dentro de la transacción.
func lockedReservation(ctx context.Context, repos Repos, id string) (*entity.Reservation, error) {
	res, err := repos.Reservations.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, domain.ErrNotFound
	}
	return res, nil
}

// ConsumeReservation convierte la reserva en una salida del ledger y devuelve el movimiento.
func (e *Engine) ConsumeReservation(ctx context.Context, storeID, reservationID, userID string) (*entity.MovementEntry, error) {
	res, err := e.loadReservation(ctx, storeID, reservationID)
	if err != nil {
		return nil, err
	}
	var result *ApplyResult
	err = e.exec.run(ctx, []string{StockLockKey(res.StoreID, res.SKU)}, func(repos Repos) error {
		locked, err := lockedReservation(ctx, repos, reservationID)
		if err != nil {
			return err
		}
		result, err = e.reservations.Consume(ctx, repos, locked, userID)
		return err
	})
	if err != nil {
		e.log.Warn().Err(err).Str("reservation_id", reservationID).Msg("consumo de reserva rechazado")
		return nil, err
	}
	e.notify(ctx, result.Alert)
	e.log.Info().Str("reservation_id", reservationID).Str("movement_id", result.Entry.ID).Msg("reserva consumida")
	return result.Entry, nil
}

// ReleaseReservation libera la reserva (cancelación o expiración).
func (e *Engine) ReleaseReservation(ctx context.Context, storeID, reservationID string) error {
	res, err := e.loadReservation(ctx, storeID, reservationID)
	if err != nil {
		return err
	}
	err = e.exec.run(ctx, []string{StockLockKey(res.StoreID, res.SKU)}, func(repos Repos) error {
		locked, err := lockedReservation(ctx, repos, reservationID)
		if err != nil {
			return err
		}
		_, err = e.reservations.Release(ctx, repos, locked)
		return err
	})
	if err != nil {
		e.log.Warn().Err(err).Str("reservation_id", reservationID).Msg("liberación de reserva rechazada")
		return err
	}
	e.log.Info().Str("reservation_id", reservationID).Msg("reserva liberada")
	return nil
}

// ReleaseExpiredReservations libera hasta limit reservas activas cuyo TTL venció.
// Lo invoca un reaper externo (cmd/reaper); el motor no programa tareas propias.
func (e *Engine) ReleaseExpiredReservations(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	now := e.now()
	var expired []*entity.Reservation
	err := e.exec.read(ctx, func(repos Repos) error {
		var err error
		expired, err = repos.Reservations.ListExpired(ctx, now, limit)
		return err
	})
	if err != nil {
		return 0, err
	}
	released := 0
	var errs []error
	for _, res := range expired {
		err := e.exec.run(ctx, []string{StockLockKey(res.StoreID, res.SKU)}, func(repos Repos) error {
			locked, err := lockedReservation(ctx, repos, res.ID)
			if err != nil {
				return err
			}
			// Consumida o liberada mientras tanto
			if !locked.IsActive() || locked.ExpiresAt.After(now) {
				return domain.ErrInvalidReservationState
			}
			_, err = e.reservations.Release(ctx, repos, locked)
			return err
		})
		switch {
		case err == nil:
			released++
			e.log.Info().Str("reservation_id", res.ID).Str("order_id", res.OrderID).Msg("reserva expirada liberada")
		case errors.Is(err, domain.ErrInvalidReservationState):
		default:
			errs = append(errs, fmt.Errorf("reserva %s: %w", res.ID, err))
		}
	}
	return released, errors.Join(errs...)
}

// RecordMovement registra un movimiento directo (recepción de compras, devoluciones, traslados).
// Reintentar la misma referencia devuelve el movimiento original sin volver a aplicar.
func (e *Engine) RecordMovement(ctx context.Context, in MovementInput) (*entity.MovementEntry, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	in.ReleaseReserved = 0
	var result *ApplyResult
	err := e.exec.run(ctx, []string{StockLockKey(in.StoreID, in.SKU)}, func(repos Repos) error {
		var err error
		result, err = e.applier.Apply(ctx, repos, in)
		return err
	})
	if errors.Is(err, domain.ErrDuplicateReference) {
		// Carrera con otro reintento que ganó el append: se trata como éxito
		return e.findMovement(ctx, in)
	}
	if err != nil {
		e.log.Warn().Err(err).Str("store_id", in.StoreID).Str("sku", in.SKU).Str("reference_id", in.ReferenceID).Msg("movimiento rechazado")
		return nil, err
	}
	if result.Duplicate {
		e.log.Info().Str("movement_id", result.Entry.ID).Str("reference_id", in.ReferenceID).Msg("movimiento duplicado ignorado")
		return result.Entry, nil
	}
	e.notify(ctx, result.Alert)
	e.log.Info().
		Str("store_id", in.StoreID).
		Str("sku", in.SKU).
		Str("type", in.MovementType).
		Int64("quantity", in.Quantity).
		Str("movement_id", result.Entry.ID).
		Msg("movimiento registrado")
	return result.Entry, nil
}

func (e *Engine) findMovement(ctx context.Context, in MovementInput) (*entity.MovementEntry, error) {
	var entry *entity.MovementEntry
	err := e.exec.read(ctx, func(repos Repos) error {
		stock, err := repos.Stock.Get(ctx, in.StoreID, in.SKU)
		if err != nil {
			return err
		}
		if stock == nil {
			return domain.ErrNotFound
		}
		entry, err = repos.Movements.FindByReference(ctx, entity.ReferenceKey{
			ReferenceType: in.ReferenceType,
			ReferenceID:   in.ReferenceID,
			InventoryID:   stock.ID,
			MovementType:  in.MovementType,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, domain.ErrNotFound
	}
	return entry, nil
}

// StockSettingsInput configuración de un StockRecord (mapeo a producto y umbrales).
type StockSettingsInput struct {
	StoreID       string
	SKU           string
	ProductID     string
	VariantID     *string
	ReorderLevel  int64
	MaxStockLevel *int64
}

// ConfigureStock crea o actualiza el mapeo y los umbrales de un SKU sin tocar cantidades.
func (e *Engine) ConfigureStock(ctx context.Context, in StockSettingsInput) (*entity.StockRecord, error) {
	if strings.TrimSpace(in.StoreID) == "" || strings.TrimSpace(in.SKU) == "" || strings.TrimSpace(in.ProductID) == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.ReorderLevel < 0 || (in.MaxStockLevel != nil && *in.MaxStockLevel < in.ReorderLevel) {
		return nil, domain.ErrInvalidInput
	}
	var stock *entity.StockRecord
	var alert *entity.LowStockAlert
	err := e.exec.run(ctx, []string{StockLockKey(in.StoreID, in.SKU)}, func(repos Repos) error {
		current, err := repos.Stock.GetForUpdate(ctx, in.StoreID, in.SKU)
		if err != nil {
			return err
		}
		now := e.now()
		if current == nil {
			current = &entity.StockRecord{ID: uuid.New().String(), StoreID: in.StoreID, SKU: in.SKU, CreatedAt: now}
		}
		stock = current.Clone()
		stock.ProductID = in.ProductID
		stock.VariantID = in.VariantID
		stock.ReorderLevel = in.ReorderLevel
		stock.MaxStockLevel = in.MaxStockLevel
		stock.Recalculate()
		stock.UpdatedAt = now
		if err := repos.Stock.Upsert(ctx, stock); err != nil {
			return err
		}
		alert, err = e.monitor.Evaluate(ctx, repos, stock)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.notify(ctx, alert)
	return stock, nil
}

// GetStockLevel instantánea de solo lectura de un StockRecord.
func (e *Engine) GetStockLevel(ctx context.Context, storeID, sku string) (*entity.StockRecord, error) {
	var stock *entity.StockRecord
	err := e.exec.read(ctx, func(repos Repos) error {
		var err error
		stock, err = repos.Stock.Get(ctx, storeID, sku)
		return err
	})
	if err != nil {
		return nil, err
	}
	if stock == nil {
		return nil, domain.ErrNotFound
	}
	return stock, nil
}

// ListMovements movimientos de un SKU con Sequence > sinceSequence, en orden causal (auditoría/replay).
func (e *Engine) ListMovements(ctx context.Context, storeID, sku string, sinceSequence int64) ([]*entity.MovementEntry, error) {
	var list []*entity.MovementEntry
	err := e.exec.read(ctx, func(repos Repos) error {
		stock, err := repos.Stock.Get(ctx, storeID, sku)
		if err != nil {
			return err
		}
		if stock == nil {
			return domain.ErrNotFound
		}
		list, err = repos.Movements.ListFor(ctx, stock.ID, sinceSequence)
		return err
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// VerifyStock compara el on_hand en caché con el resultado de reproducir el ledger desde cero.
func (e *Engine) VerifyStock(ctx context.Context, storeID, sku string) (*inventory.Verification, error) {
	var v *inventory.Verification
	err := e.exec.read(ctx, func(repos Repos) error {
		stock, err := repos.Stock.Get(ctx, storeID, sku)
		if err != nil {
			return err
		}
		if stock == nil {
			return domain.ErrNotFound
		}
		v, err = verify(ctx, repos, stock)
		return err
	})
	return v, err
}

func verify(ctx context.Context, repos Repos, stock *entity.StockRecord) (*inventory.Verification, error) {
	entries, err := repos.Movements.ListFor(ctx, stock.ID, 0)
	if err != nil {
		return nil, err
	}
	replayed, err := inventory.Replay(entries)
	if err != nil {
		return nil, err
	}
	return &inventory.Verification{
		InventoryID:    stock.ID,
		CachedOnHand:   stock.QuantityOnHand,
		ReplayedOnHand: replayed,
		Entries:        len(entries),
	}, nil
}

// RebuildStock restaura el on_hand en caché desde el ledger (recuperación tras fallo).
func (e *Engine) RebuildStock(ctx context.Context, storeID, sku string) (*entity.StockRecord, error) {
	var stock *entity.StockRecord
	err := e.exec.run(ctx, []string{StockLockKey(storeID, sku)}, func(repos Repos) error {
		current, err := repos.Stock.GetForUpdate(ctx, storeID, sku)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrNotFound
		}
		v, err := verify(ctx, repos, current)
		if err != nil {
			return err
		}
		if v.ReplayedOnHand < current.QuantityReserved {
			return fmt.Errorf("sku %s: ledger %d menor que lo reservado %d: %w", sku, v.ReplayedOnHand, current.QuantityReserved, domain.ErrInsufficientStock)
		}
		stock = current.Clone()
		stock.QuantityOnHand = v.ReplayedOnHand
		stock.Recalculate()
		stock.UpdatedAt = e.now()
		if v.Consistent() {
			return nil
		}
		e.log.Warn().Str("store_id", storeID).Str("sku", sku).Int64("cached", v.CachedOnHand).Int64("ledger", v.ReplayedOnHand).Msg("reconstruyendo stock desde el ledger")
		return repos.Stock.Upsert(ctx, stock)
	})
	if err != nil {
		return nil, err
	}
	return stock, nil
}

// AcknowledgeAlert reconoce una alerta de stock bajo.
func (e *Engine) AcknowledgeAlert(ctx context.Context, storeID, alertID, userID string) error {
	return e.exec.read(ctx, func(repos Repos) error {
		_, err := e.monitor.Acknowledge(ctx, repos, storeID, alertID, userID)
		return err
	})
}

// ListOpenAlerts alertas sin reconocer de la tienda.
func (e *Engine) ListOpenAlerts(ctx context.Context, storeID string) ([]*entity.LowStockAlert, error) {
	var list []*entity.LowStockAlert
	err := e.exec.read(ctx, func(repos Repos) error {
		var err error
		list, err = repos.Alerts.ListOpen(ctx, storeID)
		return err
	})
	return list, err
}
