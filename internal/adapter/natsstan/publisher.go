package natsstan

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/shop-service/internal/domain"
	stan "github.com/nats-io/stan.go"
)

// Connect открывает streaming-соединение. Пустой clientID заменяется уникальным.
func Connect(clusterID, clientID, url string) (stan.Conn, error) {
	if clientID == "" {
		clientID = fmt.Sprintf("shop-svc-%d", time.Now().UnixNano())
	}
	sc, err := stan.Connect(clusterID, clientID, stan.NatsURL(url), stan.ConnectWait(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("stan connect %s: %w", url, err)
	}
	return sc, nil
}

// Publisher ставит задачи, публикуя их конверт в Subject.
type Publisher struct {
	Conn    stan.Conn
	Subject string
}

func (p *Publisher) Enqueue(ctx context.Context, name string, payload any) (domain.JobHandle, error) {
	j, err := domain.NewJob(name, payload)
	if err != nil {
		return domain.JobHandle{}, err
	}
	raw, err := json.Marshal(j)
	if err != nil {
		return domain.JobHandle{}, fmt.Errorf("marshal job: %w", err)
	}
	if err := p.PublishRaw(ctx, raw); err != nil {
		return domain.JobHandle{}, err
	}
	return j.Handle(), nil
}

// PublishRaw публикует уже закодированный конверт.
func (p *Publisher) PublishRaw(ctx context.Context, raw []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.Conn.Publish(p.Subject, raw); err != nil {
		return fmt.Errorf("publish %s: %w", p.Subject, err)
	}
	return nil
}

var _ domain.JobQueue = (*Publisher)(nil)
