// Package app wires configured backends into the pieces the binaries run.
package app

import (
	"context"
	"fmt"

	"github.com/example/shop-service/internal/adapter/auth"
	"github.com/example/shop-service/internal/adapter/cache"
	"github.com/example/shop-service/internal/adapter/httpapi"
	"github.com/example/shop-service/internal/adapter/jobqueue"
	"github.com/example/shop-service/internal/adapter/mailer"
	"github.com/example/shop-service/internal/adapter/natsstan"
	"github.com/example/shop-service/internal/adapter/rabbitmq"
	"github.com/example/shop-service/internal/adapter/repo"
	"github.com/example/shop-service/internal/config"
	"github.com/example/shop-service/internal/domain"
	"github.com/example/shop-service/internal/usecase"
	"go.uber.org/zap"
)

// Closer releases a backend. Closers run in reverse order of opening.
type Closer func()

type closers []Closer

func (c *closers) add(f Closer) { *c = append(*c, f) }

func (c closers) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

// Store is an opened repository backend.
type Store struct {
	Repos domain.Repositories
	Ping  func(ctx context.Context) error
}

// OpenStore connects the configured repository backend. Postgres gets its
// schema ensured on open.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, Closer, error) {
	if cfg.StoreBackend == "memory" {
		logger.Warn("using in-memory store; data is lost on exit")
		return Store{Repos: repo.NewMemory()}, func() {}, nil
	}
	pool, err := repo.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return Store{}, nil, err
	}
	if err := repo.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return Store{}, nil, err
	}
	logger.Info("postgres connected", zap.Int32("max_conns", pool.Config().MaxConns))
	return Store{Repos: repo.NewPostgres(pool), Ping: pool.Ping}, pool.Close, nil
}

func OpenCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (domain.ReadCache, Closer, error) {
	if cfg.CacheBackend == "redis" {
		client, err := cache.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return cache.NewAside(cache.NewRedisCache(client), logger), func() { _ = client.Close() }, nil
	}
	return cache.NewAside(cache.NewMemoryCache(), logger), func() {}, nil
}

func NewMailer(cfg *config.Config, logger *zap.Logger) domain.Mailer {
	if cfg.SMTPHost == "" {
		return mailer.LogMailer{Logger: logger}
	}
	return mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
}

// NewRunner builds the job router over repos.
func NewRunner(cfg *config.Config, repos domain.Repositories, m domain.Mailer, logger *zap.Logger) usecase.RunJob {
	return usecase.RunJob{
		Email:   usecase.SendOrderConfirmation{Orders: repos.Orders, Users: repos.Users, Mailer: m, From: cfg.MailFrom},
		Payment: usecase.ProcessPayment{Payments: repos.Payments, Orders: repos.Orders},
		Logger:  logger,
	}
}

// OpenQueue returns the producer side of the configured job backend. For the
// memory backend runner executes jobs in this process.
func OpenQueue(cfg *config.Config, runner usecase.RunJob, logger *zap.Logger) (domain.JobQueue, Closer, error) {
	switch cfg.JobBackend {
	case "stan":
		sc, err := natsstan.Connect(cfg.StanClusterID, cfg.StanClientID, cfg.NatsURL)
		if err != nil {
			return nil, nil, err
		}
		return &natsstan.Publisher{Conn: sc, Subject: cfg.StanSubject}, func() { _ = sc.Close() }, nil
	case "amqp":
		conn, ch, err := rabbitmq.SetupConn(cfg.AMQPURL, cfg.AMQPQueue, 5, logger)
		if err != nil {
			return nil, nil, err
		}
		return rabbitmq.NewPublisher(ch, cfg.AMQPQueue), func() { _ = ch.Close(); _ = conn.Close() }, nil
	default:
		q := jobqueue.NewMemory(cfg.JobWorkers, cfg.JobBuffer, cfg.JobTimeout, runner.Execute, logger)
		return q, q.Close, nil
	}
}

// OpenConsumer returns the consumer side of a broker job backend.
func OpenConsumer(cfg *config.Config, logger *zap.Logger) (domain.JobConsumer, Closer, error) {
	switch cfg.JobBackend {
	case "stan":
		sc, err := natsstan.Connect(cfg.StanClusterID, cfg.StanClientID, cfg.NatsURL)
		if err != nil {
			return nil, nil, err
		}
		sub := &natsstan.Subscriber{Conn: sc, Subject: cfg.StanSubject, Durable: cfg.StanDurable, Timeout: cfg.JobTimeout, Logger: logger}
		return sub, func() { _ = sc.Close() }, nil
	case "amqp":
		conn, ch, err := rabbitmq.SetupConn(cfg.AMQPURL, cfg.AMQPQueue, 5, logger)
		if err != nil {
			return nil, nil, err
		}
		return rabbitmq.NewConsumer(ch, cfg.AMQPQueue, cfg.JobWorkers, cfg.JobTimeout, logger), func() { _ = ch.Close(); _ = conn.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("JOB_BACKEND %q has no external consumer; jobs run inside the server", cfg.JobBackend)
	}
}

// Service is a fully wired HTTP service.
type Service struct {
	Handler *httpapi.Server
	Store   Store
	Close   Closer
}

// Build opens every backend named by cfg and assembles the HTTP server.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Service, error) {
	var cs closers
	fail := func(err error) (*Service, error) {
		cs.run()
		return nil, err
	}

	store, closeStore, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return fail(fmt.Errorf("open store: %w", err))
	}
	cs.add(closeStore)

	readCache, closeCache, err := OpenCache(ctx, cfg, logger)
	if err != nil {
		return fail(fmt.Errorf("open cache: %w", err))
	}
	cs.add(closeCache)

	runner := NewRunner(cfg, store.Repos, NewMailer(cfg, logger), logger)
	queue, closeQueue, err := OpenQueue(cfg, runner, logger)
	if err != nil {
		return fail(fmt.Errorf("open job queue: %w", err))
	}
	cs.add(closeQueue)

	srv := httpapi.NewServer(httpapi.Deps{
		Repos:             store.Repos,
		Cache:             readCache,
		CacheTTL:          cfg.CacheTTL,
		InvalidateOnWrite: cfg.CacheInvalidateOnWrite,
		Jobs:              queue,
		Hasher:            auth.NewBcryptHasher(),
		Tokens:            auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		AuthPrefix:        cfg.AuthPrefix,
		Logger:            logger,
		Ping:              store.Ping,
	})
	return &Service{Handler: srv, Store: store, Close: cs.run}, nil
}
