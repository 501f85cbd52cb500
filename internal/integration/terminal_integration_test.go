//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/dedup"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/journal"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/sequence"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/testutil"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type staticSource struct{ calls int }

func (s *staticSource) ListProducts(context.Context) ([]catalog.Product, error) {
	s.calls++
	return []catalog.Product{{ID: 1, Name: "Latte", Price: decimal.NewFromInt(250)}}, nil
}

func (s *staticSource) ListCategories(context.Context) ([]catalog.Category, error) {
	return []catalog.Category{{ID: 2, Name: "Coffee"}}, nil
}

func TestPostgresRepositories(t *testing.T) {
	pool, _ := testutil.StartPostgres(t)
	ctx := context.Background()

	t.Run("journal", func(t *testing.T) {
		repo := journal.NewRepository(db.OpenSQL(pool))
		base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
		for i := 0; i < 3; i++ {
			require.NoError(t, repo.Record(ctx, journal.Receipt{
				ID:             uuid.New(),
				OrderID:        int64(30 + i),
				SessionID:      "sess-1",
				CashierID:      7,
				TerminalID:     "terminal-1",
				PaymentMethod:  order.PaymentCash,
				Subtotal:       decimal.NewFromInt(660),
				Total:          decimal.NewFromInt(660),
				AmountReceived: decimal.NewFromInt(1000),
				Change:         decimal.NewFromInt(340),
				ItemCount:      2,
				CompletedAt:    base.Add(time.Duration(i) * time.Minute),
			}))
		}

		got, err := repo.ListBySession(ctx, "sess-1", 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, int64(32), got[0].OrderID)
		assert.True(t, got[0].Change.Equal(decimal.NewFromInt(340)))

		none, err := repo.ListBySession(ctx, "sess-2", 0)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("sequence", func(t *testing.T) {
		repo := sequence.NewRepository(pool)
		for want := int64(1); want <= 3; want++ {
			got, err := repo.Next(ctx, "31")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
		other, err := repo.Next(ctx, "32")
		require.NoError(t, err)
		assert.Equal(t, int64(1), other)
	})

	t.Run("dedup never moves back", func(t *testing.T) {
		repo := dedup.NewRepository(pool)
		require.NoError(t, repo.Advance(ctx, "c", "p", 5))
		require.NoError(t, repo.Advance(ctx, "c", "p", 3))

		last, ok, err := repo.LastSequence(ctx, "c", "p")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(5), last)
	})
}

func TestRedisCatalogCache(t *testing.T) {
	rdb := testutil.StartRedis(t)
	ctx := context.Background()

	src := &staticSource{}
	cache := catalog.NewCache(src, rdb, time.Minute, quietLogger())

	_, err := cache.Products(ctx)
	require.NoError(t, err)
	p, err := cache.Product(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Latte", p.Name)
	assert.Equal(t, 1, src.calls)

	ttl, err := rdb.TTL(ctx, catalog.ProductsKey).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, cache.Invalidate(ctx))
	_, err = cache.Products(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestSaleCompletedIsPublished(t *testing.T) {
	pool, _ := testutil.StartPostgres(t)
	conn := testutil.StartRabbitMQ(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	pub, err := events.NewRabbitPublisher(conn, sequence.NewRepository(pool), events.PublisherOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	ch, err := conn.Channel()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, events.SaleCompletedRoutingKey, events.EventsExchange, false, nil))
	msgs, err := ch.Consume(q.Name, "integration-sale-completed", true, true, false, false, nil)
	require.NoError(t, err)

	require.NoError(t, pub.PublishSaleCompleted(ctx, events.EventMeta{CorrelationID: "cid-it"}, events.SaleCompletedPayload{
		OrderID:       31,
		SessionID:     "sess-1",
		PaymentMethod: order.PaymentCash,
		Total:         decimal.NewFromInt(660),
	}))

	select {
	case msg := <-msgs:
		var ev events.SaleCompletedEvent
		require.NoError(t, json.Unmarshal(msg.Body, &ev))
		require.NoError(t, ev.Validate(events.EventTypeSaleCompleted, 1))
		assert.Equal(t, "31", ev.PartitionKey)
		assert.Equal(t, int64(1), ev.Sequence)
		assert.Equal(t, "cid-it", ev.CorrelationID)
	case <-ctx.Done():
		t.Fatal("timed out waiting for SaleCompleted")
	}
}

func TestCatalogChangeInvalidatesCache(t *testing.T) {
	pool, _ := testutil.StartPostgres(t)
	conn := testutil.StartRabbitMQ(t)
	rdb := testutil.StartRedis(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)

	src := &staticSource{}
	cache := catalog.NewCache(src, rdb, time.Hour, quietLogger())
	_, err := cache.Products(ctx)
	require.NoError(t, err)

	consumer := events.NewCatalogChangedConsumer(pool, dedup.NewRepository(pool), cache, quietLogger())
	require.NoError(t, consumer.Start(ctx, conn))

	ch, err := conn.Channel()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })

	payload, err := json.Marshal(events.CatalogProductChangedPayload{ProductID: 1})
	require.NoError(t, err)
	body, err := json.Marshal(events.EventEnvelope{
		EventName:    events.EventTypeCatalogProductChanged,
		EventVersion: 1,
		EventID:      uuid.NewString(),
		Producer:     "catalog-service",
		PartitionKey: "1",
		Sequence:     1,
		OccurredAt:   time.Now().UTC(),
		Payload:      payload,
	})
	require.NoError(t, err)

	require.NoError(t, ch.PublishWithContext(ctx, events.EventsExchange, events.CatalogProductChangedRoutingKey, false, false,
		amqp.Publishing{ContentType: "application/json", DeliveryMode: amqp.Persistent, Body: body}))

	require.Eventually(t, func() bool {
		n, err := rdb.Exists(ctx, catalog.ProductsKey).Result()
		return err == nil && n == 0
	}, 20*time.Second, 200*time.Millisecond)

	require.Eventually(t, func() bool {
		last, ok, err := dedup.NewRepository(pool).LastSequence(ctx, "pos-terminal-catalog-product-changed", "1")
		return err == nil && ok && last == 1
	}, 10*time.Second, 200*time.Millisecond)
}
