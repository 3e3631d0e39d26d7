// Package events publishes product lifecycle events to RabbitMQ.
package events

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xenking/product-desk/internal/domain/product"
	"github.com/xenking/product-desk/internal/wire"
)

const (
	// Exchange is the topic exchange product events are published to.
	Exchange = "product-desk.events"

	producer      = "product-desk-api"
	eventVersion  = 1
	publishWithin = 3 * time.Second
)

// RoutingKey returns the routing key for an event type, e.g.
// "product.created.v1".
func RoutingKey(t product.EventType) string {
	return string(t) + ".v1"
}

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

var _ product.Publisher = (*Publisher)(nil)

// Publisher implements product.Publisher over an AMQP channel.
type Publisher struct {
	ch    Channel
	newID func() string
}

// Dial connects to the broker and returns a Publisher with its own channel.
// The returned close function releases both channel and connection.
func Dial(url string) (*Publisher, func() error, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Dial: amqp.DefaultDial(10 * time.Second),
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "dial amqp")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, errors.Wrap(err, "open channel")
	}
	p, err := NewPublisher(ch)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	closeFn := func() error {
		_ = ch.Close()
		return conn.Close()
	}
	return p, closeFn, nil
}

// NewPublisher declares the events exchange on ch.
func NewPublisher(ch Channel) (*Publisher, error) {
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, errors.Wrap(err, "declare events exchange")
	}
	return &Publisher{ch: ch, newID: uuid.NewString}, nil
}

// Publish implements product.Publisher.
func (p *Publisher) Publish(ctx context.Context, ev product.Event) error {
	id := p.newID()
	body := encodeEnvelope(id, ev)

	pubCtx, cancel := context.WithTimeout(ctx, publishWithin)
	defer cancel()

	err := p.ch.PublishWithContext(pubCtx, Exchange, RoutingKey(ev.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    id,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return errors.Wrapf(err, "publish %s", ev.Type)
	}
	return nil
}

// encodeEnvelope renders the versioned event envelope. The payload is the
// product record, or just its id for deletions.
func encodeEnvelope(eventID string, ev product.Event) []byte {
	return wire.Encode(func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("eventName")
		e.Str(string(ev.Type))
		e.FieldStart("eventVersion")
		e.Int(eventVersion)
		e.FieldStart("eventId")
		e.Str(eventID)
		e.FieldStart("producer")
		e.Str(producer)
		e.FieldStart("partitionKey")
		e.Str(ev.ProductID)
		e.FieldStart("occurredAt")
		e.Str(wire.FormatTime(ev.OccurredAt))
		e.FieldStart("payload")
		if ev.Product != nil {
			wire.EncodeProduct(e, *ev.Product)
		} else {
			e.ObjStart()
			e.FieldStart("id")
			e.Str(ev.ProductID)
			e.ObjEnd()
		}
		e.ObjEnd()
	})
}
