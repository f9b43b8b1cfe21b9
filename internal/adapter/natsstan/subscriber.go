package natsstan

import (
	"context"
	"fmt"
	"time"

	"github.com/example/shop-service/internal/domain"
	stan "github.com/nats-io/stan.go"
	"go.uber.org/zap"
)

const queueGroup = "shop-workers"

// Subscriber читает конверты задач из subject NATS Streaming через
// durable queue group.
type Subscriber struct {
	Conn    stan.Conn
	Subject string
	Durable string
	Timeout time.Duration
	Logger  *zap.Logger
}

func (s *Subscriber) Consume(ctx context.Context, handler func(ctx context.Context, raw []byte) error) error {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	sub, err := s.Conn.QueueSubscribe(s.Subject, queueGroup, func(m *stan.Msg) {
		s.deliver(m.Data, timeout, handler, m.Ack)
	}, stan.DurableName(s.Durable), stan.SetManualAckMode(), stan.AckWait(timeout+5*time.Second), stan.DeliverAllAvailable())
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.Subject, err)
	}
	<-ctx.Done()
	// Close сохраняет позицию durable; Unsubscribe её сбросил бы.
	if err := sub.Close(); err != nil {
		s.logger().Warn("close subscription", zap.Error(err))
	}
	return nil
}

// deliver обрабатывает одно сообщение и подтверждает его даже при ошибке
// обработчика, поэтому упавшая задача не доставляется повторно.
func (s *Subscriber) deliver(data []byte, timeout time.Duration, handler func(ctx context.Context, raw []byte) error, ack func() error) {
	hCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := handler(hCtx, data); err != nil {
		s.logger().Warn("job dropped after failure", zap.String("subject", s.Subject), zap.Error(err))
	}
	if err := ack(); err != nil {
		s.logger().Error("ack failed", zap.String("subject", s.Subject), zap.Error(err))
	}
}

func (s *Subscriber) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

var _ domain.JobConsumer = (*Subscriber)(nil)
