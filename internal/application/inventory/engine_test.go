package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testStore = "store-1"
	testUser  = "user-1"
)

// fakeClock reloj manual para probar expiraciones.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// recordingNotifier guarda las alertas notificadas.
type recordingNotifier struct {
	mu     sync.Mutex
	alerts []*entity.LowStockAlert
}

func (n *recordingNotifier) Notify(_ context.Context, a *entity.LowStockAlert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

type fixture struct {
	engine   *inventory.Engine
	clock    *fakeClock
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	notifier := &recordingNotifier{}
	engine := inventory.NewEngine(memory.NewStore(), lock.NewMemoryLocker(), notifier, nil, inventory.EngineConfig{
		LockTimeout:    time.Second,
		ReservationTTL: 30 * time.Minute,
		Now:            clock.Now,
	})
	return &fixture{engine: engine, clock: clock, notifier: notifier}
}

// seed crea el SKU con producto asociado, punto de reorden y una recepción inicial.
func (f *fixture) seed(t *testing.T, sku string, onHand, reorder int64) *entity.StockRecord {
	t.Helper()
	ctx := context.Background()
	if onHand > 0 {
		_, err := f.engine.RecordMovement(ctx, inventory.MovementInput{
			StoreID:       testStore,
			SKU:           sku,
			ReferenceType: entity.ReferencePurchase,
			ReferenceID:   "seed-" + sku,
			MovementType:  entity.MovementTypeIn,
			Quantity:      onHand,
			UnitCost:      decimal.NewFromInt(10),
			UserID:        testUser,
		})
		require.NoError(t, err)
	}
	rec, err := f.engine.ConfigureStock(ctx, inventory.StockSettingsInput{
		StoreID:      testStore,
		SKU:          sku,
		ProductID:    "prod-" + sku,
		ReorderLevel: reorder,
	})
	require.NoError(t, err)
	return rec
}

func (f *fixture) stock(t *testing.T, sku string) *entity.StockRecord {
	t.Helper()
	s, err := f.engine.GetStockLevel(context.Background(), testStore, sku)
	require.NoError(t, err)
	require.True(t, s.Consistent(), "invariantes de cantidades")
	return s
}

func (f *fixture) out(t *testing.T, sku, ref string, qty int64) (*entity.MovementEntry, error) {
	t.Helper()
	return f.engine.RecordMovement(context.Background(), inventory.MovementInput{
		StoreID:       testStore,
		SKU:           sku,
		ReferenceType: entity.ReferenceTransfer,
		ReferenceID:   ref,
		MovementType:  entity.MovementTypeOut,
		Quantity:      qty,
		UserID:        testUser,
	})
}

func (f *fixture) assertLedgerMatches(t *testing.T, sku string) {
	t.Helper()
	v, err := f.engine.VerifyStock(context.Background(), testStore, sku)
	require.NoError(t, err)
	assert.True(t, v.Consistent(), "replay %d vs caché %d", v.ReplayedOnHand, v.CachedOnHand)
}

// ──────────────────────────────────────────────────────────────────────────────
// Reservas
// ──────────────────────────────────────────────────────────────────────────────

// Caso: on_hand=10. Reserva 6 (A), reserva 5 (B) falla, consumir A deja on_hand=4 y una salida de 6.
func TestReserveConsume_EjemploBasico(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "SKU-1", 10, 0)

	resA, err := f.engine.ReserveStock(ctx, testStore, "SKU-1", 6, "order-A")
	require.NoError(t, err)
	assert.Equal(t, int64(4), f.stock(t, "SKU-1").QuantityAvailable)

	_, err = f.engine.ReserveStock(ctx, testStore, "SKU-1", 5, "order-B")
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	s := f.stock(t, "SKU-1")
	assert.Equal(t, int64(10), s.QuantityOnHand)
	assert.Equal(t, int64(6), s.QuantityReserved)

	entry, err := f.engine.ConsumeReservation(ctx, testStore, resA.ID, testUser)
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTypeOut, entry.MovementType)
	assert.Equal(t, int64(6), entry.Quantity)
	assert.Equal(t, entity.ReferenceOrder, entry.ReferenceType)
	assert.Equal(t, "order-A", entry.ReferenceID)

	s = f.stock(t, "SKU-1")
	assert.Equal(t, int64(4), s.QuantityOnHand)
	assert.Equal(t, int64(0), s.QuantityReserved)
	assert.Equal(t, int64(4), s.QuantityAvailable)

	movements, err := f.engine.ListMovements(ctx, testStore, "SKU-1", 0)
	require.NoError(t, err)
	require.Len(t, movements, 2) // recepción inicial + salida
	assert.Equal(t, entry.ID, movements[1].ID)
	f.assertLedgerMatches(t, "SKU-1")
}

// Caso: exactamente uno de {consume, release} tiene éxito por reserva.
func TestReservation_ConsumeYReleaseSonExcluyentes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "SKU-1", 10, 0)

	res, err := f.engine.ReserveStock(ctx, testStore, "SKU-1", 3, "order-A")
	require.NoError(t, err)
	_, err = f.engine.ConsumeReservation(ctx, testStore, res.ID, testUser)
	require.NoError(t, err)

	err = f.engine.ReleaseReservation(ctx, testStore, res.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidReservationState)
	_, err = f.engine.ConsumeReservation(ctx, testStore, res.ID, testUser)
	assert.ErrorIs(t, err, domain.ErrInvalidReservationState)

	res2, err := f.engine.ReserveStock(ctx, testStore, "SKU-1", 2, "order-B")
	require.NoError(t, err)
	require.NoError(t, f.engine.ReleaseReservation(ctx, testStore, res2.ID))
	assert.ErrorIs(t, f.engine.ReleaseReservation(ctx, testStore, res2.ID), domain.ErrInvalidReservationState)
	_, err = f.engine.ConsumeReservation(ctx, testStore, res2.ID, testUser)
	assert.ErrorIs(t, err, domain.ErrInvalidReservationState)

	s := f.stock(t, "SKU-1")
	assert.Equal(t, int64(7), s.QuantityOnHand)
	assert.Equal(t, int64(0), s.QuantityReserved)
	f.assertLedgerMatches(t, "SKU-1")
}

func TestReserve_ReintentoIdempotente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "SKU-1", 10, 0)

	r1, err := f.engine.ReserveStock(ctx, testStore, "SKU-1", 4, "order-A")
	require.NoError(t, err)
	r2, err := f.engine.ReserveStock(ctx, testStore, "SKU-1", 4, "order-A")
	require.NoError(t, err)
	assert.Equal(t, r1.ID, r2.ID)
	assert.Equal(t, int64(4), f.stock(t, "SKU-1").QuantityReserved)

	_, err = f.engine.ReserveStock(ctx, testStore, "SKU-1", 5, "order-A")
	assert.ErrorIs(t, err, domain.ErrInvalidReservationState)
}

func TestReserve_Validaciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "SKU-1", 10, 0)

	_, err := f.engine.ReserveStock(ctx, testStore, "SKU-1", 0, "order-A")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.engine.ReserveStock(ctx, testStore, "NO-EXISTE", 1, "order-A")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.engine.ConsumeReservation(ctx, testStore, "no-existe", testUser)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	res, err := f.engine.ReserveStock(ctx, testStore, "SKU-1", 1, "order-A")
	require.NoError(t, err)
	// Otra tienda no ve la reserva
	assert.ErrorIs(t, f.engine.ReleaseReservation(ctx, "store-2", res.ID), domain.ErrNotFound)
}

// Caso: N reservas concurrentes nunca superan el disponible inicial.
func TestReserve_ConcurrenteSinSobreventa(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "SKU-1", 10, 0)

	const callers = 25
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		reserved int64
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			qty := int64(i%3 + 1)
			_, err := f.engine.ReserveStock(ctx, testStore, "SKU-1", qty, "order-"+string(rune('a'+i)))
			if err == nil {
				mu.Lock()
				reserved += qty
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, domain.ErrInsufficientStock)
		}(i)
	}
	wg.Wait()

	s := f.stock(t, "SKU-1")
	assert.LessOrEqual(t, reserved, int64(10))
	assert.Equal(t, reserved, s.QuantityReserved)
	assert.Equal(t, int64(10)-reserved, s.QuantityAvailable)
}

// Caso: el reaper libera solo las reservas vencidas.
func TestReleaseExpiredReservations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "SKU-1", 10, 0)

	old, err := f.engine.ReserveStock(ctx, testStore, "SKU-1", 3, "order-A")
	require.NoError(t, err)
	f.clock.Advance(20 * time.Minute)
	_, err = f.engine.ReserveStock(ctx, testStore, "SKU-1", 2, "order-B")
	require.NoError(t, err)
	f.clock.Advance(15 * time.Minute)

	n, err := f.engine.ReleaseExpiredReservations(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(2), f.stock(t, "SKU-1").QuantityReserved)

	_, err = f.engine.ConsumeReservation(ctx, testStore, old.ID, testUser)
	assert.ErrorIs(t, err, domain.ErrInvalidReservationState)

	n, err = f.engine.ReleaseExpiredReservations(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

// ──────────────────────────────────────────────────────────────────────────────
// Movimientos
// ──────────────────────────────────────────────────────────────────────────────

// Caso: reenviar la misma referencia da un solo movimiento y un solo cambio de stock.
func TestRecordMovement_Idempotente(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "SKU-1", 10, 0)

	first, err := f.out(t, "SKU-1", "tr-1", 3)
	require.NoError(t, err)
	second, err := f.out(t, "SKU-1", "tr-1", 3)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(7), f.stock(t, "SKU-1").QuantityOnHand)

	movements, err := f.engine.ListMovements(context.Background(), testStore, "SKU-1", first.Sequence-1)
	require.NoError(t, err)
	assert.Len(t, movements, 1)
}

func TestRecordMovement_SalidaSinStockNoTocaElLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "SKU-1", 5, 0)
	_, err := f.engine.ReserveStock(ctx, testStore, "SKU-1", 4, "order-A")
	require.NoError(t, err)

	_, err = f.out(t, "SKU-1", "tr-1", 2)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	s := f.stock(t, "SKU-1")
	assert.Equal(t, int64(5), s.QuantityOnHand)
	movements, err := f.engine.ListMovements(ctx, testStore, "SKU-1", 0)
	require.NoError(t, err)
	assert.Len(t, movements, 1)

	// Una salida sobre un SKU inexistente no lo crea
	_, err = f.out(t, "NUEVO", "tr-2", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordMovement_CostoPromedioPonderado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "SKU-1", 10, 0) // 10 a 10

	_, err := f.engine.RecordMovement(ctx, inventory.MovementInput{
		StoreID:       testStore,
		SKU:           "SKU-1",
		ReferenceType: entity.ReferencePurchase,
		ReferenceID:   "po-2",
		MovementType:  entity.MovementTypeIn,
		Quantity:      10,
		UnitCost:      decimal.NewFromInt(20),
		UserID:        testUser,
	})
	require.NoError(t, err)

	s := f.stock(t, "SKU-1")
	assert.True(t, decimal.NewFromInt(15).Equal(s.UnitCost), "costo %s", s.UnitCost)
	assert.True(t, decimal.NewFromInt(300).Equal(s.TotalValue), "valor %s", s.TotalValue)
}

func TestRecordMovement_Validaciones(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.RecordMovement(context.Background(), inventory.MovementInput{
		StoreID:       testStore,
		SKU:           "SKU-1",
		ReferenceType: "invoice",
		ReferenceID:   "x",
		MovementType:  entity.MovementTypeIn,
		Quantity:      1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// Caso: RebuildStock restaura la caché desde el ledger.
func TestVerifyAndRebuildStock(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "SKU-1", 10, 0)
	_, err := f.out(t, "SKU-1", "tr-1", 4)
	require.NoError(t, err)

	v, err := f.engine.VerifyStock(context.Background(), testStore, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, int64(6), v.ReplayedOnHand)
	assert.Equal(t, 2, v.Entries)

	rebuilt, err := f.engine.RebuildStock(context.Background(), testStore, "SKU-1")
	require.NoError(t, err)
	assert.Equal(t, int64(6), rebuilt.QuantityOnHand)
}

// ──────────────────────────────────────────────────────────────────────────────
// Alertas de stock bajo
// ──────────────────────────────────────────────────────────────────────────────

// Caso: reorder=5; 6→4 crea una alerta low; 4→0 no crea una segunda.
func TestLowStock_UnaAlertaAbiertaPorRegistro(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "SKU-1", 6, 5)
	assert.Equal(t, 0, f.notifier.count())

	_, err := f.out(t, "SKU-1", "tr-1", 2)
	require.NoError(t, err)
	alerts, err := f.engine.ListOpenAlerts(ctx, testStore)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, entity.AlertLevelLow, alerts[0].AlertLevel)
	assert.Equal(t, int64(4), alerts[0].QuantityAvailable)

	_, err = f.out(t, "SKU-1", "tr-2", 4)
	require.NoError(t, err)
	alerts, err = f.engine.ListOpenAlerts(ctx, testStore)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, entity.AlertLevelLow, alerts[0].AlertLevel)
	assert.Equal(t, 1, f.notifier.count())

	// Tras reconocerla, la siguiente alerta se evalúa desde cero: critical
	require.NoError(t, f.engine.AcknowledgeAlert(ctx, testStore, alerts[0].ID, testUser))
	assert.ErrorIs(t, f.engine.AcknowledgeAlert(ctx, testStore, alerts[0].ID, testUser), domain.ErrAlreadyAcknowledged)

	// Reevaluar con disponible 0 y sin alerta abierta
	_, err = f.engine.ConfigureStock(ctx, inventory.StockSettingsInput{
		StoreID: testStore, SKU: "SKU-1", ProductID: "prod-SKU-1", ReorderLevel: 5,
	})
	require.NoError(t, err)
	alerts, err = f.engine.ListOpenAlerts(ctx, testStore)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, entity.AlertLevelCritical, alerts[0].AlertLevel)
}

func TestLowStock_NoSeCierraSola(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "SKU-1", 6, 5)
	_, err := f.out(t, "SKU-1", "tr-1", 3)
	require.NoError(t, err)

	_, err = f.engine.RecordMovement(ctx, inventory.MovementInput{
		StoreID: testStore, SKU: "SKU-1", ReferenceType: entity.ReferencePurchase, ReferenceID: "po-9",
		MovementType: entity.MovementTypeIn, Quantity: 20, UserID: testUser,
	})
	require.NoError(t, err)
	alerts, err := f.engine.ListOpenAlerts(ctx, testStore)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func TestReplenishmentList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "SKU-A", 4, 5)  // déficit relativo 0.2
	f.seed(t, "SKU-B", 0, 10) // sin disponible
	f.seed(t, "SKU-C", 20, 5) // sobre el punto de reorden

	list, err := f.engine.ReplenishmentList(ctx, testStore)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "SKU-B", list[0].SKU)
	assert.Equal(t, 1, list[0].Priority)
	assert.Equal(t, int64(15), list[0].SuggestedOrderQty)
	assert.Equal(t, "SKU-A", list[1].SKU)
	assert.Equal(t, int64(3), list[1].SuggestedOrderQty) // 5 + 2 - 4
}
