package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/example/shop-service/internal/domain"
	"go.uber.org/zap"
)

var ErrClosed = errors.New("job queue closed")

// Handler runs one job. Errors are reported by the handler itself; the pool
// only logs that the job failed.
type Handler func(ctx context.Context, j domain.Job) error

// Memory is an in-process queue drained by a fixed pool of workers.
type Memory struct {
	jobs    chan domain.Job
	handler Handler
	logger  *zap.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewMemory starts workers goroutines reading from a channel of size buffer.
// Call Close to drain and stop them.
func NewMemory(workers, buffer int, timeout time.Duration, h Handler, logger *zap.Logger) *Memory {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &Memory{
		jobs:    make(chan domain.Job, buffer),
		handler: h,
		logger:  logger,
		timeout: timeout,
	}
	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.work(i)
	}
	return q
}

// Enqueue blocks only while the buffer is full.
func (q *Memory) Enqueue(ctx context.Context, name string, payload any) (domain.JobHandle, error) {
	j, err := domain.NewJob(name, payload)
	if err != nil {
		return domain.JobHandle{}, err
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return domain.JobHandle{}, fmt.Errorf("enqueue %s: %w", name, ErrClosed)
	}
	select {
	case q.jobs <- j:
		return j.Handle(), nil
	case <-ctx.Done():
		return domain.JobHandle{}, fmt.Errorf("enqueue %s: %w", name, ctx.Err())
	}
}

// Close stops accepting jobs and waits until the queued ones have run.
func (q *Memory) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *Memory) work(n int) {
	defer q.wg.Done()
	for j := range q.jobs {
		q.run(n, j)
	}
}

func (q *Memory) run(n int, j domain.Job) {
	ctx := context.Background()
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("job panicked", zap.Int("worker", n), zap.String("job", j.Name), zap.String("job_id", j.ID), zap.Any("panic", r))
		}
	}()
	if err := q.handler(ctx, j); err != nil {
		q.logger.Debug("job returned error", zap.Int("worker", n), zap.String("job_id", j.ID), zap.Error(err))
	}
}

var _ domain.JobQueue = (*Memory)(nil)
