package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes
// ──────────────────────────────────────────────────────────────────────────────

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, in)
	return &sns.PublishOutput{}, f.err
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

type notifierFunc func(ctx context.Context, a *entity.LowStockAlert) error

func (f notifierFunc) Notify(ctx context.Context, a *entity.LowStockAlert) error { return f(ctx, a) }

func sampleAlert() *entity.LowStockAlert {
	return &entity.LowStockAlert{
		ID: "al-1", StoreID: "store-1", InventoryID: "inv-1", SKU: "SKU-1",
		AlertLevel: entity.AlertLevelCritical, QuantityAvailable: 0, ReorderLevel: 5,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// SNS
// ──────────────────────────────────────────────────────────────────────────────

func TestSNSNotifier_PublicaJSONConAtributos(t *testing.T) {
	client := &fakeSNS{}
	n := NewSNSNotifier(client, "arn:aws:sns:us-east-1:000000000000:low-stock")

	require.NoError(t, n.Notify(context.Background(), sampleAlert()))
	require.Len(t, client.inputs, 1)

	in := client.inputs[0]
	assert.Equal(t, "arn:aws:sns:us-east-1:000000000000:low-stock", *in.TopicArn)
	assert.Equal(t, "store-1", *in.MessageAttributes["store_id"].StringValue)
	assert.Equal(t, entity.AlertLevelCritical, *in.MessageAttributes["alert_level"].StringValue)

	var evt AlertEvent
	require.NoError(t, json.Unmarshal([]byte(*in.Message), &evt))
	assert.Equal(t, EventLowStock, evt.EventType)
	assert.Equal(t, "SKU-1", evt.SKU)
	assert.Equal(t, int64(5), evt.ReorderLevel)
}

func TestSNSNotifier_PropagaError(t *testing.T) {
	n := NewSNSNotifier(&fakeSNS{err: errors.New("throttled")}, "arn")
	err := n.Notify(context.Background(), sampleAlert())
	assert.ErrorContains(t, err, "throttled")
}

func TestNewSNSNotifierFromConfig_TopicoVacio(t *testing.T) {
	_, err := NewSNSNotifierFromConfig(context.Background(), SNSConfig{})
	assert.Error(t, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Kafka
// ──────────────────────────────────────────────────────────────────────────────

func TestKafkaNotifier_ClavePorRegistro(t *testing.T) {
	w := &fakeWriter{}
	n := NewKafkaNotifierWithWriter(w)

	require.NoError(t, n.Notify(context.Background(), sampleAlert()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("inv-1"), w.msgs[0].Key)
	assert.Equal(t, "event_type", w.msgs[0].Headers[0].Key)

	require.NoError(t, n.Close())
	assert.True(t, w.closed)
}

// ──────────────────────────────────────────────────────────────────────────────
// Fanout
// ──────────────────────────────────────────────────────────────────────────────

// Caso: un notificador falla, los demás igual reciben la alerta.
func TestFanout_AcumulaErrores(t *testing.T) {
	var calls int
	ok := notifierFunc(func(context.Context, *entity.LowStockAlert) error { calls++; return nil })
	bad := notifierFunc(func(context.Context, *entity.LowStockAlert) error { calls++; return errors.New("caído") })

	f := Fanout([]inventory.AlertNotifier{bad, ok})
	err := f.Notify(context.Background(), sampleAlert())
	assert.ErrorContains(t, err, "caído")
	assert.Equal(t, 2, calls)

	assert.NoError(t, Fanout(nil).Notify(context.Background(), sampleAlert()))
}
