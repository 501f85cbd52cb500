package events

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/dedup"
)

type fakeInvalidator struct {
	calls int
	err   error
}

func (f *fakeInvalidator) Invalidate(context.Context) error {
	f.calls++
	return f.err
}

type fakeAck struct {
	acked   []uint64
	nacked  []uint64
	requeue []bool
}

func (f *fakeAck) Ack(tag uint64, _ bool) error {
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAck) Nack(tag uint64, _ bool, requeue bool) error {
	f.nacked = append(f.nacked, tag)
	f.requeue = append(f.requeue, requeue)
	return nil
}

func (f *fakeAck) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func productChanged(t *testing.T, seq int64) []byte {
	t.Helper()
	payload, err := json.Marshal(CatalogProductChangedPayload{ProductID: 1})
	require.NoError(t, err)
	body, err := json.Marshal(EventEnvelope{
		EventName:    EventTypeCatalogProductChanged,
		EventVersion: 1,
		EventID:      "evt-1",
		Producer:     "catalog-service",
		PartitionKey: "1",
		Sequence:     seq,
		OccurredAt:   time.Now().UTC(),
		Payload:      payload,
	})
	require.NoError(t, err)
	return body
}

func newConsumer(t *testing.T) (*CatalogChangedConsumer, pgxmock.PgxPoolIface, *fakeInvalidator) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	inv := &fakeInvalidator{}
	return NewCatalogChangedConsumer(mock, dedup.NewRepository(mock), inv, quietLogger()), mock, inv
}

func TestCatalogChanged_Fresh(t *testing.T) {
	c, mock, inv := newConsumer(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT last_sequence`).
		WithArgs(catalogChangedConsumerName, "1").
		WillReturnRows(pgxmock.NewRows([]string{"last_sequence"}).AddRow(int64(4)))
	mock.ExpectExec(`INSERT INTO event_dedup_checkpoint`).
		WithArgs(catalogChangedConsumerName, "1", int64(5)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, c.Handle(context.Background(), productChanged(t, 5)))
	assert.Equal(t, 1, inv.calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogChanged_Duplicate(t *testing.T) {
	c, mock, inv := newConsumer(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT last_sequence`).
		WithArgs(catalogChangedConsumerName, "1").
		WillReturnRows(pgxmock.NewRows([]string{"last_sequence"}).AddRow(int64(5)))
	mock.ExpectRollback()

	require.NoError(t, c.Handle(context.Background(), productChanged(t, 5)))
	assert.Zero(t, inv.calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogChanged_InvalidateFails(t *testing.T) {
	c, mock, inv := newConsumer(t)
	inv.err = errors.New("redis down")

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT last_sequence`).
		WithArgs(catalogChangedConsumerName, "1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	require.Error(t, c.Handle(context.Background(), productChanged(t, 1)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogChanged_RejectsBadEnvelope(t *testing.T) {
	c, mock, inv := newConsumer(t)

	require.Error(t, c.Handle(context.Background(), []byte(`{"eventName":"OrderCreated","eventVersion":1}`)))
	require.Error(t, c.Handle(context.Background(), []byte(`not json`)))
	assert.Zero(t, inv.calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogChanged_RunAcksAndRetriesOnce(t *testing.T) {
	c, mock, _ := newConsumer(t)
	ack := &fakeAck{}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT last_sequence`).
		WithArgs(catalogChangedConsumerName, "1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO event_dedup_checkpoint`).
		WithArgs(catalogChangedConsumerName, "1", int64(1)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	msgs := make(chan amqp.Delivery, 3)
	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte(`bad`)}
	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte(`bad`), Redelivered: true}
	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: productChanged(t, 1)}
	close(msgs)

	c.run(context.Background(), msgs)

	assert.Equal(t, []uint64{1, 2}, ack.nacked)
	assert.Equal(t, []bool{true, false}, ack.requeue)
	assert.Equal(t, []uint64{3}, ack.acked)
	require.NoError(t, mock.ExpectationsWereMet())
}
