package rabbitmq

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// SetupConn dials the broker up to attempts times while it starts, and
// declares the durable job queue.
func SetupConn(url, queue string, attempts int, logger *zap.Logger) (*amqp.Connection, *amqp.Channel, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var conn *amqp.Connection
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			time.Sleep(2 * time.Second)
		}
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.Warn("rabbitmq dial failed", zap.Int("attempt", i+1), zap.Error(err))
	}
	if conn == nil && err == nil {
		err = fmt.Errorf("no dial attempts")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("could not open channel: %w", err)
	}
	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("could not declare queue %s: %w", queue, err)
	}
	return conn, ch, nil
}
