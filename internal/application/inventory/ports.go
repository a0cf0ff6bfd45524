package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// Repos repositorios atados a una misma transacción.
type Repos struct {
	Stock        repository.StockRecordRepository
	Movements    repository.MovementRepository
	Reservations repository.ReservationRepository
	Adjustments  repository.AdjustmentRepository
	Counts       repository.CountRepository
	Alerts       repository.AlertRepository
	Orders       repository.OrderRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad entre el ledger y la vista materializada: si fn falla no queda nada aplicado.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos Repos) error) error
}

// Locker exclusión mutua por clave (un StockRecord = una clave).
// Lock adquiere todas las claves en orden fijo (ordenadas) y espera como máximo timeout;
// si no lo logra devuelve domain.ErrLockTimeout sin retener ninguna.
type Locker interface {
	Lock(ctx context.Context, keys []string, timeout time.Duration) (unlock func(), err error)
}

// AlertNotifier difunde alertas de stock bajo ya confirmadas (después del commit).
type AlertNotifier interface {
	Notify(ctx context.Context, alert *entity.LowStockAlert) error
}

// StockLockKey clave de bloqueo de un StockRecord.
func StockLockKey(storeID, sku string) string {
	return "stock:" + storeID + ":" + sku
}

// executor combina el bloqueo por SKU con la transacción.
type executor struct {
	tx      TxRunner
	locker  Locker
	timeout time.Duration
}

// run bloquea las claves (si hay) y ejecuta fn en una transacción.
func (x *executor) run(ctx context.Context, keys []string, fn func(repos Repos) error) error {
	if len(keys) > 0 {
		unlock, err := x.locker.Lock(ctx, keys, x.timeout)
		if err != nil {
			return err
		}
		defer unlock()
	}
	return x.tx.Run(ctx, fn)
}

// read ejecuta una lectura transaccional sin bloqueos de aplicación.
func (x *executor) read(ctx context.Context, fn func(repos Repos) error) error {
	return x.tx.Run(ctx, fn)
}
