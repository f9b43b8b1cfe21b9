package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/shop-service/internal/app"
	"github.com/example/shop-service/internal/config"
	"github.com/example/shop-service/internal/logging"
	"go.uber.org/zap"
)

// worker consumes jobs from the configured broker (JOB_BACKEND=stan|amqp).
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, closeStore, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	consumer, closeConsumer, err := app.OpenConsumer(cfg, logger)
	if err != nil {
		return err
	}
	defer closeConsumer()

	runner := app.NewRunner(cfg, store.Repos, app.NewMailer(cfg, logger), logger)
	logger.Info("worker consuming", zap.String("backend", cfg.JobBackend))
	return consumer.Consume(ctx, runner.HandleRaw)
}
