package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCacheGet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db)
	ctx := context.Background()

	mock.ExpectGet("products:all").SetVal(`[{"id":1}]`)
	v, ok, err := c.Get(ctx, "products:all")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(`[{"id":1}]`), v)

	mock.ExpectGet("products:id:2").RedisNil()
	_, ok, err = c.Get(ctx, "products:id:2")
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectGet("products:id:3").SetErr(errors.New("timeout"))
	_, _, err = c.Get(ctx, "products:id:3")
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheSetAndDelete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db)
	ctx := context.Background()

	payload := []byte(`{"id":1}`)
	mock.ExpectSet("products:id:1", payload, 300*time.Second).SetVal("OK")
	require.NoError(t, c.Set(ctx, "products:id:1", payload, 300*time.Second))

	mock.ExpectDel("products:all", "products:id:1").SetVal(2)
	require.NoError(t, c.Delete(ctx, "products:all", "products:id:1"))

	require.NoError(t, c.Delete(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisBackedAside(t *testing.T) {
	db, mock := redismock.NewClientMock()
	a := NewAside(NewRedisCache(db), nil)
	ctx := context.Background()

	payload := []byte(`[]`)
	mock.ExpectGet("products:all").RedisNil()
	mock.ExpectGet("products:all").RedisNil()
	mock.ExpectSet("products:all", payload, time.Minute).SetVal("OK")

	v, err := a.GetOrPopulate(ctx, "products:all", time.Minute, func(context.Context) ([]byte, error) {
		return payload, nil
	})
	require.NoError(t, err)
	assert.Equal(t, payload, v)
	assert.NoError(t, mock.ExpectationsWereMet())
}
