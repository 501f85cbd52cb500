// Package events publishes the terminal's sale events and consumes catalog
// changes over the shared topic exchange.
package events

import (
	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange = "ecommerce.events"

	SaleCompletedRoutingKey         = "pos.sale.completed.v1"
	PendingOrderSavedRoutingKey     = "pos.pendingorder.saved.v1"
	CatalogProductChangedRoutingKey = "catalog.product.changed.v1"

	EventTypeSaleCompleted         = "SaleCompleted"
	EventTypePendingOrderSaved     = "PendingOrderSaved"
	EventTypeCatalogProductChanged = "CatalogProductChanged"

	saleCompletedSchema     = "contracts/events/pos/SaleCompleted.v1.payload.schema.json"
	pendingOrderSavedSchema = "contracts/events/pos/PendingOrderSaved.v1.payload.schema.json"

	serviceName     = "pos-terminal-go"
	defaultProducer = "pos-terminal"
)

func serviceQueue(routingKey string) string {
	return serviceName + "." + routingKey
}

// Dial connects to the broker at url.
func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "connect to RabbitMQ")
	}
	return conn, nil
}

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
}
