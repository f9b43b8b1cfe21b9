package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/example/shop-service/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Consumer reads job envelopes from a queue with manual acks.
type Consumer struct {
	ch       *amqp.Channel
	queue    string
	prefetch int
	timeout  time.Duration
	logger   *zap.Logger
}

// NewConsumer builds a consumer whose handlers each run under timeout.
// A non-positive timeout means 30s.
func NewConsumer(ch *amqp.Channel, queue string, prefetch int, timeout time.Duration, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Consumer{ch: ch, queue: queue, prefetch: prefetch, timeout: timeout, logger: logger}
}

func (c *Consumer) Consume(ctx context.Context, handler func(ctx context.Context, raw []byte) error) error {
	if err := c.ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("could not set qos: %w", err)
	}
	msgs, err := c.ch.Consume(
		c.queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("could not start consume: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", c.queue)
			}
			c.deliver(d, handler)
		}
	}
}

// deliver acks every message once the handler returns; failed jobs are not requeued.
func (c *Consumer) deliver(d amqp.Delivery, handler func(ctx context.Context, raw []byte) error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := handler(ctx, d.Body); err != nil {
		c.logger.Warn("job dropped after failure", zap.String("queue", c.queue), zap.String("message_id", d.MessageId), zap.Error(err))
	}
	if err := d.Ack(false); err != nil {
		c.logger.Error("ack failed", zap.String("queue", c.queue), zap.Error(err))
	}
}

var _ domain.JobConsumer = (*Consumer)(nil)
