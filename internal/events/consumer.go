package events

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/dedup"
)

const catalogChangedConsumerName = "pos-terminal-catalog-product-changed"

type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// CacheInvalidator drops cached catalog data.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// CatalogChangedConsumer invalidates the terminal's catalog cache whenever a
// product changes upstream. Redeliveries are skipped using the dedup
// checkpoint for the event's partition.
type CatalogChangedConsumer struct {
	db     TxBeginner
	dedup  *dedup.Repository
	cache  CacheInvalidator
	logger logrus.FieldLogger
}

func NewCatalogChangedConsumer(db TxBeginner, d *dedup.Repository, cache CacheInvalidator, logger logrus.FieldLogger) *CatalogChangedConsumer {
	return &CatalogChangedConsumer{db: db, dedup: d, cache: cache, logger: logger}
}

// Start declares and binds the consumer queue and processes deliveries in a
// goroutine until ctx is done or the channel closes.
func (c *CatalogChangedConsumer) Start(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return errors.Wrap(err, "open channel")
	}
	if err := declareEventsExchange(ch); err != nil {
		return errors.Wrap(err, "declare events exchange")
	}

	queue := serviceQueue(CatalogProductChangedRoutingKey)
	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		return errors.Wrap(err, "queue declare")
	}
	if err := ch.QueueBind(queue, CatalogProductChangedRoutingKey, EventsExchange, false, nil); err != nil {
		return errors.Wrap(err, "queue bind")
	}

	msgs, err := ch.Consume(
		queue,
		serviceName, // consumer tag
		false,       // autoAck
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return errors.Wrap(err, "consume")
	}

	go func() {
		defer ch.Close()
		c.run(ctx, msgs)
	}()
	return nil
}

func (c *CatalogChangedConsumer) run(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("stopping catalog.product.changed consumer")
			return
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("catalog.product.changed deliveries closed")
				return
			}

			if err := c.Handle(ctx, msg.Body); err != nil {
				c.logger.WithError(err).WithField("redelivered", msg.Redelivered).Error("handle catalog.product.changed")
				// one retry, then drop
				_ = msg.Nack(false, !msg.Redelivered)
				continue
			}
			_ = msg.Ack(false)
		}
	}
}

// Handle processes one delivery body.
func (c *CatalogChangedConsumer) Handle(ctx context.Context, body []byte) error {
	env, err := parseEnvelope(body)
	if err != nil {
		return err
	}
	if err := env.Validate(EventTypeCatalogProductChanged, 1); err != nil {
		return errors.Wrap(err, "invalid envelope")
	}

	var payload CatalogProductChangedPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return errors.Wrap(err, "decode payload")
	}

	log := c.logger.WithFields(logrus.Fields{
		"product_id":     payload.ProductID,
		"partition":      env.PartitionKey,
		"sequence":       env.Sequence,
		"correlation_id": env.CorrelationID,
	})

	tx, err := c.db.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	checkpoints := c.dedup.WithExecutor(tx)
	last, ok, err := checkpoints.LastSequence(ctx, catalogChangedConsumerName, env.PartitionKey)
	if err != nil {
		return err
	}
	switch dedup.Classify(env.Sequence, last, ok) {
	case dedup.Duplicate:
		log.WithField("last", last).Info("skip duplicate catalog change")
		return nil
	case dedup.Gap:
		log.WithField("last", last).Warn("sequence gap on catalog changes")
	}

	if err := c.cache.Invalidate(ctx); err != nil {
		return err
	}

	if env.Sequence != 0 {
		if err := checkpoints.Advance(ctx, catalogChangedConsumerName, env.PartitionKey, env.Sequence); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit checkpoint")
	}

	log.Info("catalog cache invalidated")
	return nil
}
