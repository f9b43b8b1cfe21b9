package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/example/shop-service/internal/domain"
)

type enqueued struct {
	Name    string
	Payload domain.OrderJob
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []enqueued
	err  error
}

func (q *recordingQueue) Enqueue(ctx context.Context, name string, payload any) (domain.JobHandle, error) {
	if q.err != nil {
		return domain.JobHandle{}, q.err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, enqueued{Name: name, Payload: payload.(domain.OrderJob)})
	return domain.JobHandle{ID: name, Name: name}, nil
}

func (q *recordingQueue) Jobs() []enqueued {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]enqueued(nil), q.jobs...)
}

type failingOrders struct {
	domain.OrderRepository
}

func (failingOrders) CreateWithItems(context.Context, *domain.Order, []domain.OrderItem, *domain.Payment) error {
	return errors.New("connection refused")
}

type countingProducts struct {
	domain.Repository[domain.Product]
	lists, gets int
}

func (c *countingProducts) List(ctx context.Context) ([]domain.Product, error) {
	c.lists++
	return c.Repository.List(ctx)
}

func (c *countingProducts) Get(ctx context.Context, id int64) (domain.Product, error) {
	c.gets++
	return c.Repository.Get(ctx, id)
}

type outbox struct {
	mu   sync.Mutex
	sent []domain.Message
	err  error
}

func (o *outbox) Send(ctx context.Context, m domain.Message) error {
	if o.err != nil {
		return o.err
	}
	o.mu.Lock()
	o.sent = append(o.sent, m)
	o.mu.Unlock()
	return nil
}
