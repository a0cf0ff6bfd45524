package inventory_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
)

func orderInput(id string, items ...entity.OrderItem) inventory.ConfirmOrderInput {
	return inventory.ConfirmOrderInput{OrderID: id, StoreID: testStore, Items: items}
}

func item(sku string, qty int64) entity.OrderItem {
	return entity.OrderItem{ProductID: "prod-" + sku, Quantity: qty}
}

func TestOrder_ConfirmarYCompletar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "SKU-A", 10, 0)
	f.seed(t, "SKU-B", 5, 0)

	confirmed, err := f.engine.ConfirmOrder(ctx, orderInput("o-1", item("SKU-B", 2), item("SKU-A", 3), item("SKU-A", 1)))
	require.NoError(t, err)
	assert.Equal(t, entity.OrderConfirmed, confirmed.Order.Status)
	require.Len(t, confirmed.Reservations, 2)
	assert.Equal(t, int64(4), f.stock(t, "SKU-A").QuantityReserved) // ítems repetidos se suman
	assert.Equal(t, int64(2), f.stock(t, "SKU-B").QuantityReserved)

	// Confirmar de nuevo devuelve las mismas reservas
	again, err := f.engine.ConfirmOrder(ctx, orderInput("o-1", item("SKU-A", 4), item("SKU-B", 2)))
	require.NoError(t, err)
	assert.Len(t, again.Reservations, 2)
	assert.Equal(t, int64(4), f.stock(t, "SKU-A").QuantityReserved)

	done, err := f.engine.FulfillOrder(ctx, testStore, "o-1", testUser)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderCompleted, done.Order.Status)
	require.Len(t, done.Movements, 2)
	for _, m := range done.Movements {
		assert.Equal(t, entity.MovementTypeOut, m.MovementType)
		assert.Equal(t, "o-1", m.ReferenceID)
	}
	a := f.stock(t, "SKU-A")
	assert.Equal(t, int64(6), a.QuantityOnHand)
	assert.Equal(t, int64(0), a.QuantityReserved)
	assert.Equal(t, int64(3), f.stock(t, "SKU-B").QuantityOnHand)

	// Reintento: no-op con los mismos movimientos
	retry, err := f.engine.FulfillOrder(ctx, testStore, "o-1", testUser)
	require.NoError(t, err)
	assert.ElementsMatch(t, movementIDs(done.Movements), movementIDs(retry.Movements))
	assert.Equal(t, int64(6), f.stock(t, "SKU-A").QuantityOnHand)
	f.assertLedgerMatches(t, "SKU-A")
	f.assertLedgerMatches(t, "SKU-B")

	_, err = f.engine.CancelOrder(ctx, testStore, "o-1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func movementIDs(list []*entity.MovementEntry) []string {
	ids := make([]string, 0, len(list))
	for _, m := range list {
		ids = append(ids, m.ID)
	}
	return ids
}

// Caso: si un ítem no alcanza, ninguna reserva de la orden queda tomada.
func TestOrder_ConfirmacionParcialSeRevierte(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "SKU-A", 10, 0)
	f.seed(t, "SKU-B", 1, 0)

	_, err := f.engine.ConfirmOrder(ctx, orderInput("o-1", item("SKU-A", 3), item("SKU-B", 2)))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.Equal(t, int64(0), f.stock(t, "SKU-A").QuantityReserved)
	assert.Equal(t, int64(0), f.stock(t, "SKU-B").QuantityReserved)

	got, err := f.engine.GetOrder(ctx, testStore, "o-1")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderFailed, got.Order.Status)
	assert.Empty(t, got.Reservations)

	_, err = f.engine.ConfirmOrder(ctx, orderInput("o-1", item("SKU-A", 3)))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestOrder_ProductoSinRegistro(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "SKU-A", 10, 0)

	_, err := f.engine.ConfirmOrder(ctx, orderInput("o-1", item("SKU-A", 1), entity.OrderItem{ProductID: "desconocido", Quantity: 1}))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	got, err := f.engine.GetOrder(ctx, testStore, "o-1")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderFailed, got.Order.Status)
	assert.Equal(t, int64(0), f.stock(t, "SKU-A").QuantityReserved)

	_, err = f.engine.ConfirmOrder(ctx, inventory.ConfirmOrderInput{OrderID: "o-2", StoreID: testStore})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOrder_Cancelar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "SKU-A", 10, 0)

	_, err := f.engine.ConfirmOrder(ctx, orderInput("o-1", item("SKU-A", 7)))
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.stock(t, "SKU-A").QuantityAvailable)

	cancelled, err := f.engine.CancelOrder(ctx, testStore, "o-1")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderCancelled, cancelled.Order.Status)
	require.Len(t, cancelled.Reservations, 1)
	assert.Equal(t, entity.ReservationReleased, cancelled.Reservations[0].Status)
	s := f.stock(t, "SKU-A")
	assert.Equal(t, int64(10), s.QuantityAvailable)
	assert.Equal(t, int64(10), s.QuantityOnHand)

	// Cancelar dos veces es un no-op
	_, err = f.engine.CancelOrder(ctx, testStore, "o-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), f.stock(t, "SKU-A").QuantityAvailable)

	_, err = f.engine.FulfillOrder(ctx, testStore, "o-1", testUser)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	movements, err := f.engine.ListMovements(ctx, testStore, "SKU-A", 0)
	require.NoError(t, err)
	assert.Len(t, movements, 1) // solo la recepción: liberar no genera movimiento

	_, err = f.engine.CancelOrder(ctx, testStore, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Caso: una reserva liberada por expiración impide completar la orden sin consumir nada.
func TestOrder_CompletarConReservaExpirada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "SKU-A", 10, 0)
	f.seed(t, "SKU-B", 10, 0)

	_, err := f.engine.ConfirmOrder(ctx, orderInput("o-1", item("SKU-A", 2), item("SKU-B", 2)))
	require.NoError(t, err)
	f.clock.Advance(31 * time.Minute)
	n, err := f.engine.ReleaseExpiredReservations(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = f.engine.FulfillOrder(ctx, testStore, "o-1", testUser)
	assert.ErrorIs(t, err, domain.ErrInvalidReservationState)
	assert.Equal(t, int64(10), f.stock(t, "SKU-A").QuantityOnHand)
	assert.Equal(t, int64(10), f.stock(t, "SKU-B").QuantityOnHand)

	// Se puede cancelar: las reservas ya están liberadas
	cancelled, err := f.engine.CancelOrder(ctx, testStore, "o-1")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderCancelled, cancelled.Order.Status)
	assert.Equal(t, int64(0), f.stock(t, "SKU-A").QuantityReserved)
}

func TestOrder_OtraTiendaNoLaVe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "SKU-A", 10, 0)
	_, err := f.engine.ConfirmOrder(ctx, orderInput("o-1", item("SKU-A", 1)))
	require.NoError(t, err)

	_, err = f.engine.GetOrder(ctx, "store-2", "o-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.engine.ConfirmOrder(ctx, inventory.ConfirmOrderInput{OrderID: "o-1", StoreID: "store-2", Items: []entity.OrderItem{item("SKU-A", 1)}})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := f.engine.GetOrder(ctx, testStore, "o-1")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderConfirmed, got.Order.Status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Errores reintentables al confirmar
// ──────────────────────────────────────────────────────────────────────────────

// flakyStock hace fallar GetForUpdate mientras failWith tenga un error (bloqueo de fila, caída de BD).
type flakyStock struct {
	repository.StockRecordRepository
	failWith *atomic.Pointer[error]
}

func (s flakyStock) GetForUpdate(ctx context.Context, storeID, sku string) (*entity.StockRecord, error) {
	if errp := s.failWith.Load(); errp != nil {
		return nil, *errp
	}
	return s.StockRecordRepository.GetForUpdate(ctx, storeID, sku)
}

type flakyTx struct {
	store    *memory.Store
	failWith *atomic.Pointer[error]
}

func (x flakyTx) Run(ctx context.Context, fn func(repos inventory.Repos) error) error {
	return x.store.Run(ctx, func(repos inventory.Repos) error {
		repos.Stock = flakyStock{StockRecordRepository: repos.Stock, failWith: x.failWith}
		return fn(repos)
	})
}

// Caso: un timeout de bloqueo de fila o un fallo de infraestructura no marca la orden failed;
// el reintento posterior confirma normalmente.
func TestOrder_ErrorReintentableDejaOrdenPendiente(t *testing.T) {
	cases := []struct {
		name  string
		cause error
	}{
		{"timeout de bloqueo de fila", fmt.Errorf("get stock for update: %w", domain.ErrLockTimeout)},
		{"base de datos caída", errors.New("begin transaction: dial tcp: connection refused")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			failWith := &atomic.Pointer[error]{}
			engine := inventory.NewEngine(flakyTx{store: memory.NewStore(), failWith: failWith}, lock.NewMemoryLocker(), nil, nil,
				inventory.EngineConfig{LockTimeout: time.Second})

			_, err := engine.RecordMovement(ctx, inventory.MovementInput{
				StoreID: testStore, SKU: "SKU-A", ReferenceType: entity.ReferencePurchase, ReferenceID: "po-1",
				MovementType: entity.MovementTypeIn, Quantity: 10, UserID: testUser,
			})
			require.NoError(t, err)
			_, err = engine.ConfigureStock(ctx, inventory.StockSettingsInput{StoreID: testStore, SKU: "SKU-A", ProductID: "prod-SKU-A"})
			require.NoError(t, err)

			cause := tc.cause
			failWith.Store(&cause)
			_, err = engine.ConfirmOrder(ctx, orderInput("o-1", item("SKU-A", 3)))
			require.Error(t, err)
			assert.NotErrorIs(t, err, domain.ErrInvalidTransition)

			_, err = engine.GetOrder(ctx, testStore, "o-1")
			assert.ErrorIs(t, err, domain.ErrNotFound, "la orden no debe quedar persistida como failed")

			failWith.Store(nil)
			got, err := engine.ConfirmOrder(ctx, orderInput("o-1", item("SKU-A", 3)))
			require.NoError(t, err)
			assert.Equal(t, entity.OrderConfirmed, got.Order.Status)
			require.Len(t, got.Reservations, 1)
		})
	}
}
