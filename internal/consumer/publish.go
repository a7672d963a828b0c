package consumer

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/predoc-io/predoc/internal/schema"
)

// publishFunc sends one status message to the result queue.
type publishFunc func(ctx context.Context, msg schema.StatusMessage) error

// statusPublisher binds a publishFunc to a channel and queue. Messages are
// persistent so status updates survive a broker restart alongside the
// durable queue.
func statusPublisher(ch *amqp.Channel, queue string) publishFunc {
	return func(ctx context.Context, msg schema.StatusMessage) error {
		body, err := msg.Encode()
		if err != nil {
			return fmt.Errorf("encode status: %w", err)
		}
		return ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
	}
}
