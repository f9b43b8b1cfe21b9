package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingLoader(calls *int32, payload string) Loader {
	return func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(calls, 1)
		return []byte(payload), nil
	}
}

func TestGetOrPopulateHitSkipsLoader(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache()
	a := NewAside(c, nil)
	var calls int32

	first, err := a.GetOrPopulate(ctx, "products:all", 300*time.Second, countingLoader(&calls, `[{"id":1}]`))
	require.NoError(t, err)
	second, err := a.GetOrPopulate(ctx, "products:all", 300*time.Second, countingLoader(&calls, `changed`))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, calls)

	clock.Advance(300 * time.Second)
	third, err := a.GetOrPopulate(ctx, "products:all", 300*time.Second, countingLoader(&calls, `changed`))
	require.NoError(t, err)
	assert.Equal(t, []byte("changed"), third)
	assert.EqualValues(t, 2, calls)
}

func TestGetOrPopulateNoNegativeCaching(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache()
	a := NewAside(c, nil)
	boom := errors.New("store down")

	_, err := a.GetOrPopulate(ctx, "products:id:9", time.Minute, func(context.Context) ([]byte, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	var calls int32
	v, err := a.GetOrPopulate(ctx, "products:id:9", time.Minute, countingLoader(&calls, "ok"))
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), v)
	assert.EqualValues(t, 1, calls)
}

func TestGetOrPopulateCollapsesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache()
	a := NewAside(c, nil)

	var calls int32
	release := make(chan struct{})
	loader := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []byte("v"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := a.GetOrPopulate(ctx, "k", time.Minute, loader)
			assert.NoError(t, err)
			assert.Equal(t, []byte("v"), v)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(8))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
	_, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok)
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("conn refused")
}
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("conn refused")
}
func (brokenCache) Delete(context.Context, ...string) error { return errors.New("conn refused") }

func TestGetOrPopulateDegradesOnBackendErrors(t *testing.T) {
	a := NewAside(brokenCache{}, nil)
	var calls int32

	v, err := a.GetOrPopulate(context.Background(), "k", time.Minute, countingLoader(&calls, "fresh"))
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), v)
	assert.EqualValues(t, 1, calls)

	a.Invalidate(context.Background(), "k")
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache()
	a := NewAside(c, nil)
	var calls int32

	_, _ = a.GetOrPopulate(ctx, "products:all", time.Minute, countingLoader(&calls, "v1"))
	a.Invalidate(ctx, "products:all")
	v, err := a.GetOrPopulate(ctx, "products:all", time.Minute, countingLoader(&calls, "v2"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), v)
	assert.EqualValues(t, 2, calls)
}

func TestGetOrPopulateIgnoresCallerCancel(t *testing.T) {
	c, _ := newTestCache()
	a := NewAside(c, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	v, err := a.GetOrPopulate(ctx, "products:all", time.Minute, func(lctx context.Context) ([]byte, error) {
		cancel()
		if err := lctx.Err(); err != nil {
			return nil, err
		}
		return []byte(`[]`), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), v)

	cached, ok, err := c.Get(context.Background(), "products:all")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte(`[]`), cached)
}
