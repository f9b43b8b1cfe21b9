package natsstan

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/example/shop-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDeliverAcksFailedJobs(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := &Subscriber{Subject: "jobs", Logger: zap.New(core)}

	tests := []struct {
		name    string
		handler error
		warns   int
	}{
		{"success", nil, 0},
		{"failure", errors.New("smtp down"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acks := 0
			before := logs.Len()
			s.deliver([]byte(`{}`), time.Second, func(ctx context.Context, raw []byte) error {
				_, ok := ctx.Deadline()
				assert.True(t, ok)
				return tt.handler
			}, func() error { acks++; return nil })
			assert.Equal(t, 1, acks)
			assert.Equal(t, tt.warns, logs.Len()-before)
		})
	}
}

// Runs against a live streaming server when STAN_TEST_URL is set.
func TestPublishConsume(t *testing.T) {
	url := os.Getenv("STAN_TEST_URL")
	if url == "" {
		t.Skip("STAN_TEST_URL not set, skipping integration test")
	}
	sc, err := Connect("test-cluster", "", url)
	if err != nil {
		t.Skipf("NATS Streaming not available: %v", err)
	}
	defer sc.Close()

	subject := "jobs-test-" + time.Now().Format("150405.000")
	pub := &Publisher{Conn: sc, Subject: subject}
	h, err := pub.Enqueue(context.Background(), domain.JobProcessPayment, domain.OrderJob{OrderID: 5})
	require.NoError(t, err)

	got := make(chan domain.Job, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		sub := &Subscriber{Conn: sc, Subject: subject, Durable: "test"}
		done <- sub.Consume(ctx, func(_ context.Context, raw []byte) error {
			var j domain.Job
			if err := json.Unmarshal(raw, &j); err != nil {
				return err
			}
			got <- j
			return nil
		})
	}()

	select {
	case j := <-got:
		assert.Equal(t, h.ID, j.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("job not delivered")
	}
	cancel()
	assert.NoError(t, <-done)
}
