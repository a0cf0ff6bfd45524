package notify

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// MessageWriter subconjunto de *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publica alertas en un tópico; la clave es el inventory_id para mantener el orden por registro.
type KafkaNotifier struct {
	writer MessageWriter
}

// NewKafkaNotifier crea el writer sobre brokers/topic.
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return NewKafkaNotifierWithWriter(&kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	})
}

func NewKafkaNotifierWithWriter(w MessageWriter) *KafkaNotifier {
	return &KafkaNotifier{writer: w}
}

func (n *KafkaNotifier) Notify(ctx context.Context, a *entity.LowStockAlert) error {
	body, err := encode(a)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	if err := n.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(a.InventoryID),
		Value:   body,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(EventLowStock)}},
	}); err != nil {
		return fmt.Errorf("kafka publish alert %s: %w", a.ID, err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
