package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/shop-service/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher enqueues jobs as persistent messages on the default exchange.
type Publisher struct {
	ch    channel
	queue string
}

func NewPublisher(ch *amqp.Channel, queue string) *Publisher {
	return &Publisher{ch: ch, queue: queue}
}

func (p *Publisher) Enqueue(ctx context.Context, name string, payload any) (domain.JobHandle, error) {
	j, err := domain.NewJob(name, payload)
	if err != nil {
		return domain.JobHandle{}, err
	}
	body, err := json.Marshal(j)
	if err != nil {
		return domain.JobHandle{}, fmt.Errorf("could not marshal job: %w", err)
	}
	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    j.ID,
		Type:         j.Name,
		Timestamp:    j.EnqueuedAt,
		Body:         body,
	})
	if err != nil {
		return domain.JobHandle{}, fmt.Errorf("publish %s: %w", name, err)
	}
	return j.Handle(), nil
}

var _ domain.JobQueue = (*Publisher)(nil)
