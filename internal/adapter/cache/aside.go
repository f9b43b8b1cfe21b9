package cache

import (
	"context"
	"time"

	"github.com/example/shop-service/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Loader computes the true value of a key on a cache miss.
type Loader = func(ctx context.Context) ([]byte, error)

// Aside implements cache-aside reads over any domain.Cache.
//
// Backend errors never fail a read: a failed Get is treated as a miss and a
// failed Set is only logged. Loader errors are returned and nothing is stored.
type Aside struct {
	cache  domain.Cache
	logger *zap.Logger
	group  singleflight.Group
}

func NewAside(c domain.Cache, logger *zap.Logger) *Aside {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aside{cache: c, logger: logger}
}

// GetOrPopulate returns the live entry under key, or runs loader, stores its
// result for ttl and returns it. Concurrent misses on one key share a loader call.
func (a *Aside) GetOrPopulate(ctx context.Context, key string, ttl time.Duration, loader Loader) ([]byte, error) {
	if v, ok := a.lookup(ctx, key); ok {
		return v, nil
	}
	// The shared load outlives the caller that started it; other waiters
	// on key must not see its cancellation.
	shared := context.WithoutCancel(ctx)
	v, err, _ := a.group.Do(key, func() (any, error) {
		if v, ok := a.lookup(shared, key); ok {
			return v, nil
		}
		fresh, err := loader(shared)
		if err != nil {
			return nil, err
		}
		if err := a.cache.Set(shared, key, fresh, ttl); err != nil {
			a.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		}
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Invalidate drops keys; failures are logged.
func (a *Aside) Invalidate(ctx context.Context, keys ...string) {
	if err := a.cache.Delete(ctx, keys...); err != nil {
		a.logger.Warn("cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (a *Aside) lookup(ctx context.Context, key string) ([]byte, bool) {
	v, ok, err := a.cache.Get(ctx, key)
	if err != nil {
		a.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return v, ok
}

var _ domain.ReadCache = (*Aside)(nil)
