// Package events consume eventos de órdenes desde Kafka y los traduce a operaciones del motor.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Tipos de evento reconocidos.
const (
	EventOrderConfirmed = "OrderConfirmed"
	EventOrderCompleted = "OrderCompleted"
	EventOrderCancelled = "OrderCancelled"
)

// OrderService operaciones del coordinador de órdenes que dispara el listener.
type OrderService interface {
	ConfirmOrder(ctx context.Context, in inventory.ConfirmOrderInput) (*inventory.OrderResult, error)
	FulfillOrder(ctx context.Context, storeID, orderID, userID string) (*inventory.FulfillResult, error)
	CancelOrder(ctx context.Context, storeID, orderID string) (*inventory.OrderResult, error)
}

var _ OrderService = (*inventory.Engine)(nil)

// MessageReader subconjunto de *kafka.Reader (commit manual).
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OrderEvent struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   OrderPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type OrderPayload struct {
	ID      string             `json:"id"`
	StoreID string             `json:"store_id"`
	UserID  string             `json:"user_id"`
	Items   []OrderItemPayload `json:"items"`
}

type OrderItemPayload struct {
	ProductID string  `json:"product_id"`
	VariantID *string `json:"variant_id"`
	Quantity  int64   `json:"quantity"`
}

// ErrMalformedEvent el mensaje no se puede decodificar; reintentarlo nunca tendrá éxito.
var ErrMalformedEvent = errors.New("evento de orden malformado")

// ListenerConfig backoff entre reintentos de un mismo mensaje (contención o caída de la BD).
// Un mensaje no se confirma hasta procesarse, así que se reintenta hasta que ctx se cancele.
type ListenerConfig struct {
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// OrderListener lee eventos de órdenes y confirma el offset solo después de procesarlos.
type OrderListener struct {
	reader MessageReader
	svc    OrderService
	log    *logger.Logger
	cfg    ListenerConfig
}

// NewKafkaReader lector con consumer group; el commit es manual (CommitInterval 0).
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

func NewOrderListener(reader MessageReader, svc OrderService, log *logger.Logger, cfg ListenerConfig) *OrderListener {
	if log == nil {
		log = logger.Nop()
	} else {
		log = log.Component("order_listener")
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.Backoff {
		cfg.MaxBackoff = max(30*time.Second, cfg.Backoff)
	}
	return &OrderListener{reader: reader, svc: svc, log: log, cfg: cfg}
}

// Start bloquea hasta que ctx se cancele.
func (l *OrderListener) Start(ctx context.Context) error {
	l.log.Info().Msg("iniciando listener de órdenes")
	for {
		msg, err := l.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.log.Info().Msg("deteniendo listener de órdenes")
				return nil
			}
			l.log.Error().Err(err).Msg("leer mensaje de kafka")
			if !sleep(ctx, time.Second) {
				return nil
			}
			continue
		}

		if !l.processWithRetry(ctx, msg) {
			// Sin commit: el mensaje se vuelve a entregar al reiniciar.
			l.log.Info().Int64("offset", msg.Offset).Msg("deteniendo listener con evento pendiente")
			return nil
		}

		if err := l.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			l.log.Error().Err(err).Int64("offset", msg.Offset).Msg("commit de offset")
		}
	}
}

// Close cierra el lector.
func (l *OrderListener) Close() error {
	return l.reader.Close()
}

// processWithRetry devuelve true si el mensaje quedó resuelto y su offset puede confirmarse:
// procesado, rechazado por negocio o malformado. Cualquier otro error se reintenta con backoff
// exponencial; devuelve false solo si ctx se cancela antes de resolverlo.
func (l *OrderListener) processWithRetry(ctx context.Context, msg kafka.Message) bool {
	backoff := l.cfg.Backoff
	for attempt := 1; ; attempt++ {
		err := l.Handle(ctx, msg.Value)
		if err == nil {
			return true
		}
		if errors.Is(err, ErrMalformedEvent) {
			l.log.Error().Err(err).Int64("offset", msg.Offset).Msg("evento de orden descartado")
			return true
		}
		ev := l.log.Warn()
		if !errors.Is(err, domain.ErrLockTimeout) {
			ev = l.log.Error()
		}
		ev.Err(err).Int("attempt", attempt).Dur("backoff", backoff).Int64("offset", msg.Offset).Msg("procesar evento de orden, se reintenta")
		if !sleep(ctx, backoff) {
			return false
		}
		backoff = min(backoff*2, l.cfg.MaxBackoff)
	}
}

// Handle procesa un mensaje. Los rechazos de negocio (stock insuficiente, orden fallida) se registran
// y devuelven nil. Un payload que no decodifica devuelve ErrMalformedEvent; cualquier otro error
// (ErrLockTimeout, fallos de infraestructura) es reintentable.
func (l *OrderListener) Handle(ctx context.Context, value []byte) error {
	var evt OrderEvent
	if err := json.Unmarshal(value, &evt); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	p := evt.Payload
	log := l.log.With().Str("event_type", evt.EventType).Str("order_id", p.ID).Str("store_id", p.StoreID).Logger()

	var err error
	switch evt.EventType {
	case EventOrderConfirmed:
		items := make([]entity.OrderItem, 0, len(p.Items))
		for _, it := range p.Items {
			items = append(items, entity.OrderItem{ProductID: it.ProductID, VariantID: it.VariantID, Quantity: it.Quantity})
		}
		_, err = l.svc.ConfirmOrder(ctx, inventory.ConfirmOrderInput{OrderID: p.ID, StoreID: p.StoreID, Items: items})
	case EventOrderCompleted:
		userID := p.UserID
		if userID == "" {
			userID = "system"
		}
		_, err = l.svc.FulfillOrder(ctx, p.StoreID, p.ID, userID)
	case EventOrderCancelled:
		_, err = l.svc.CancelOrder(ctx, p.StoreID, p.ID)
	default:
		log.Debug().Msg("evento ignorado")
		return nil
	}

	switch {
	case err == nil:
		log.Info().Msg("evento de orden procesado")
		return nil
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvalidReservationState),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidInput):
		log.Warn().Err(err).Msg("evento de orden rechazado")
		return nil
	default:
		return err
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
