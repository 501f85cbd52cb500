package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher emits terminal events. Checkout depends on this rather than on
// the broker.
type Publisher interface {
	PublishSaleCompleted(ctx context.Context, meta EventMeta, p SaleCompletedPayload) error
	PublishPendingOrderSaved(ctx context.Context, meta EventMeta, p PendingOrderSavedPayload) error
}

type Sequencer interface {
	Next(ctx context.Context, partitionKey string) (int64, error)
}

type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitPublisher struct {
	ch       amqpPublisher
	closer   func() error
	seq      Sequencer
	producer string
	now      func() time.Time
}

type PublisherOptions struct {
	Producer string
}

func NewRabbitPublisher(conn *amqp.Connection, seq Sequencer, opts PublisherOptions) (*RabbitPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, errors.Wrap(err, "open channel")
	}

	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, errors.Wrap(err, "declare events exchange")
	}

	p := newRabbitPublisher(ch, seq, opts)
	p.closer = ch.Close
	return p, nil
}

func newRabbitPublisher(ch amqpPublisher, seq Sequencer, opts PublisherOptions) *RabbitPublisher {
	producer := opts.Producer
	if producer == "" {
		producer = defaultProducer
	}
	return &RabbitPublisher{ch: ch, seq: seq, producer: producer, now: time.Now}
}

func (p *RabbitPublisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

func (p *RabbitPublisher) PublishSaleCompleted(ctx context.Context, meta EventMeta, payload SaleCompletedPayload) error {
	meta = withOrderPartition(meta, payload.OrderID)
	seq, err := p.seq.Next(ctx, meta.PartitionKey)
	if err != nil {
		return errors.Wrap(err, "reserve sequence")
	}

	ev := SaleCompletedEvent{
		EventEnvelope: p.envelope(meta, seq, EventTypeSaleCompleted, saleCompletedSchema),
		Payload:       payload,
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal SaleCompleted envelope")
	}
	return p.publishJSON(ctx, SaleCompletedRoutingKey, body)
}

func (p *RabbitPublisher) PublishPendingOrderSaved(ctx context.Context, meta EventMeta, payload PendingOrderSavedPayload) error {
	meta = withOrderPartition(meta, payload.OrderID)
	seq, err := p.seq.Next(ctx, meta.PartitionKey)
	if err != nil {
		return errors.Wrap(err, "reserve sequence")
	}

	ev := PendingOrderSavedEvent{
		EventEnvelope: p.envelope(meta, seq, EventTypePendingOrderSaved, pendingOrderSavedSchema),
		Payload:       payload,
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal PendingOrderSaved envelope")
	}
	return p.publishJSON(ctx, PendingOrderSavedRoutingKey, body)
}

func (p *RabbitPublisher) envelope(meta EventMeta, seq int64, name, schema string) EventEnvelope {
	if meta.CorrelationID == "" {
		meta.CorrelationID = uuid.NewString()
	}
	return EventEnvelope{
		EventName:     name,
		EventVersion:  1,
		EventID:       uuid.NewString(),
		CorrelationID: meta.CorrelationID,
		CausationID:   meta.CausationID,
		Producer:      p.producer,
		PartitionKey:  meta.PartitionKey,
		Sequence:      seq,
		OccurredAt:    p.now().UTC(),
		Schema:        schema,
	}
}

func (p *RabbitPublisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return errors.Wrapf(err, "publish %s", routingKey)
	}
	return nil
}

// withOrderPartition partitions by order id unless the caller chose a key.
func withOrderPartition(meta EventMeta, orderID int64) EventMeta {
	if meta.PartitionKey == "" {
		meta.PartitionKey = strconv.FormatInt(orderID, 10)
	}
	return meta
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishSaleCompleted(context.Context, EventMeta, SaleCompletedPayload) error {
	return nil
}

func (NopPublisher) PublishPendingOrderSaved(context.Context, EventMeta, PendingOrderSavedPayload) error {
	return nil
}
