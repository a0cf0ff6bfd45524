package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes
// ──────────────────────────────────────────────────────────────────────────────

type fakeService struct {
	mu        sync.Mutex
	confirmed []inventory.ConfirmOrderInput
	fulfilled []string
	cancelled []string
	errs      []error // se consumen en orden, uno por llamada
	always    error   // si no es nil, toda llamada falla con él
}

func (f *fakeService) next() error {
	if f.always != nil {
		return f.always
	}
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeService) ConfirmOrder(_ context.Context, in inventory.ConfirmOrderInput) (*inventory.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = append(f.confirmed, in)
	return &inventory.OrderResult{}, f.next()
}

func (f *fakeService) confirmCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.confirmed)
}

func (f *fakeService) setAlways(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.always = err
}

func (f *fakeService) FulfillOrder(_ context.Context, _, orderID, userID string) (*inventory.FulfillResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fulfilled = append(f.fulfilled, orderID+"/"+userID)
	return &inventory.FulfillResult{}, f.next()
}

func (f *fakeService) CancelOrder(_ context.Context, _, orderID string) (*inventory.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, orderID)
	return &inventory.OrderResult{}, f.next()
}

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	drained   chan struct{}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	close(r.drained)
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func (r *fakeReader) Close() error { return nil }

func event(t *testing.T, eventType, orderID string, items ...OrderItemPayload) []byte {
	t.Helper()
	b, err := json.Marshal(OrderEvent{
		EventID:   "ev-" + orderID,
		EventType: eventType,
		Payload:   OrderPayload{ID: orderID, StoreID: "store-1", Items: items},
		Timestamp: time.Now(),
	})
	require.NoError(t, err)
	return b
}

// ──────────────────────────────────────────────────────────────────────────────
// Handle
// ──────────────────────────────────────────────────────────────────────────────

func TestHandle_DespachaPorTipoDeEvento(t *testing.T) {
	svc := &fakeService{}
	l := NewOrderListener(&fakeReader{}, svc, nil, ListenerConfig{})
	ctx := context.Background()

	require.NoError(t, l.Handle(ctx, event(t, EventOrderConfirmed, "o1", OrderItemPayload{ProductID: "p1", Quantity: 2})))
	require.NoError(t, l.Handle(ctx, event(t, EventOrderCompleted, "o1")))
	require.NoError(t, l.Handle(ctx, event(t, EventOrderCancelled, "o2")))
	require.NoError(t, l.Handle(ctx, event(t, "OrderShipped", "o3")))

	require.Len(t, svc.confirmed, 1)
	assert.Equal(t, "store-1", svc.confirmed[0].StoreID)
	assert.Equal(t, int64(2), svc.confirmed[0].Items[0].Quantity)
	assert.Equal(t, []string{"o1/system"}, svc.fulfilled)
	assert.Equal(t, []string{"o2"}, svc.cancelled)
}

// Caso: los rechazos de negocio se registran y no se reintentan.
func TestHandle_ErroresDeNegocioNoSeReintentan(t *testing.T) {
	for _, e := range []error{domain.ErrInsufficientStock, domain.ErrInvalidTransition, domain.ErrNotFound, domain.ErrInvalidInput} {
		svc := &fakeService{errs: []error{e}}
		l := NewOrderListener(&fakeReader{}, svc, nil, ListenerConfig{})
		assert.NoError(t, l.Handle(context.Background(), event(t, EventOrderConfirmed, "o1", OrderItemPayload{ProductID: "p1", Quantity: 1})))
	}
}

func TestHandle_JSONInvalido(t *testing.T) {
	l := NewOrderListener(&fakeReader{}, &fakeService{}, nil, ListenerConfig{})
	assert.ErrorIs(t, l.Handle(context.Background(), []byte("{no-json")), ErrMalformedEvent)
}

func TestHandle_ErrorDeInfraestructuraEsReintentable(t *testing.T) {
	refused := errors.New("begin transaction: dial tcp: connection refused")
	svc := &fakeService{errs: []error{refused}}
	l := NewOrderListener(&fakeReader{}, svc, nil, ListenerConfig{})
	err := l.Handle(context.Background(), event(t, EventOrderConfirmed, "o1", OrderItemPayload{ProductID: "p1", Quantity: 1}))
	assert.ErrorIs(t, err, refused)
	assert.NotErrorIs(t, err, ErrMalformedEvent)
}

func TestHandle_LockTimeoutEsReintentable(t *testing.T) {
	svc := &fakeService{errs: []error{domain.ErrLockTimeout}}
	l := NewOrderListener(&fakeReader{}, svc, nil, ListenerConfig{})
	err := l.Handle(context.Background(), event(t, EventOrderCancelled, "o1"))
	assert.True(t, errors.Is(err, domain.ErrLockTimeout))
}

// ──────────────────────────────────────────────────────────────────────────────
// Start
// ──────────────────────────────────────────────────────────────────────────────

// Caso: un ErrLockTimeout se reintenta con backoff y el offset se confirma una sola vez.
func TestStart_ReintentaYConfirmaOffset(t *testing.T) {
	reader := &fakeReader{
		drained: make(chan struct{}),
		msgs: []kafka.Message{
			{Offset: 7, Value: event(t, EventOrderCancelled, "o1")},
			{Offset: 8, Value: event(t, EventOrderCompleted, "o2")},
		},
	}
	svc := &fakeService{errs: []error{domain.ErrLockTimeout, domain.ErrLockTimeout}}
	l := NewOrderListener(reader, svc, nil, ListenerConfig{Backoff: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Start(ctx) }()

	select {
	case <-reader.drained:
	case <-time.After(2 * time.Second):
		t.Fatal("el listener no consumió los mensajes")
	}
	cancel()
	require.NoError(t, <-done)

	assert.Len(t, svc.cancelled, 3)
	assert.Len(t, svc.fulfilled, 1)
	assert.Equal(t, []int64{7, 8}, reader.committed)
}

// Caso: con la BD caída el evento se reintenta y su offset no se confirma hasta procesarlo.
func TestStart_ErrorDeInfraestructuraNoConfirmaHastaProcesar(t *testing.T) {
	reader := &fakeReader{
		drained: make(chan struct{}),
		msgs:    []kafka.Message{{Offset: 42, Value: event(t, EventOrderConfirmed, "o1", OrderItemPayload{ProductID: "p1", Quantity: 1})}},
	}
	svc := &fakeService{always: errors.New("begin transaction: dial tcp: connection refused")}
	l := NewOrderListener(reader, svc, nil, ListenerConfig{Backoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Start(ctx) }()

	require.Eventually(t, func() bool { return svc.confirmCalls() >= 3 }, 2*time.Second, time.Millisecond)
	assert.Empty(t, reader.commits(), "no se confirma un evento sin procesar")

	svc.setAlways(nil)
	select {
	case <-reader.drained:
	case <-time.After(2 * time.Second):
		t.Fatal("el listener no terminó de procesar el evento")
	}
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []int64{42}, reader.commits())
}

// Caso: si el listener se detiene con el evento aún fallando, el offset queda sin confirmar.
func TestStart_DetenerseConEventoPendienteNoConfirma(t *testing.T) {
	reader := &fakeReader{
		drained: make(chan struct{}),
		msgs:    []kafka.Message{{Offset: 9, Value: event(t, EventOrderCancelled, "o1")}},
	}
	svc := &fakeService{always: domain.ErrLockTimeout}
	l := NewOrderListener(reader, svc, nil, ListenerConfig{Backoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Start(ctx) }()

	require.Eventually(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return len(svc.cancelled) >= 5
	}, 2*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Empty(t, reader.commits())
}

// Caso: un payload malformado se descarta y su offset se confirma para no bloquear la partición.
func TestStart_EventoMalformadoSeConfirma(t *testing.T) {
	reader := &fakeReader{
		drained: make(chan struct{}),
		msgs: []kafka.Message{
			{Offset: 3, Value: []byte("{no-json")},
			{Offset: 4, Value: event(t, EventOrderCancelled, "o1")},
		},
	}
	svc := &fakeService{}
	l := NewOrderListener(reader, svc, nil, ListenerConfig{Backoff: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Start(ctx) }()

	select {
	case <-reader.drained:
	case <-time.After(2 * time.Second):
		t.Fatal("el listener no consumió los mensajes")
	}
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []int64{3, 4}, reader.commits())
	assert.Equal(t, []string{"o1"}, svc.cancelled)
}
