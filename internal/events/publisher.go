package events

import (
	"context"
	"encoding/json"
	"log"

	"github.com/pedrohpiress/banktransaction-queue/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

// FanoutRoutingKey is ignored by fanout exchanges; every bound queue gets a copy.
const FanoutRoutingKey = ""

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Publisher struct {
	channel    Channel
	exchange   string
	persistent bool
}

type PublisherConfig struct {
	Exchange string
	// Persistent sets delivery mode 2. When false messages are transient, even
	// on a durable queue.
	Persistent bool
}

func NewPublisher(channel Channel, config PublisherConfig) *Publisher {
	return &Publisher{
		channel:    channel,
		exchange:   config.Exchange,
		persistent: config.Persistent,
	}
}

// Publish serializes tx and hands it to the broker client. It does not wait for
// a broker confirmation and never retries.
func (p *Publisher) Publish(ctx context.Context, tx models.Transaction) error {
	body, err := json.Marshal(tx)
	if err != nil {
		return &SerializationError{Err: err}
	}

	msg := amqp.Publishing{Body: body}
	if p.persistent {
		msg.DeliveryMode = amqp.Persistent
	}

	if err := p.channel.PublishWithContext(ctx, p.exchange, FanoutRoutingKey, false, false, msg); err != nil {
		return &PublishError{Exchange: p.exchange, Err: err}
	}

	log.Printf("Transaction published -> %s", body)
	return nil
}
