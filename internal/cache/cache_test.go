package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellopair/internal/infra/redisconn"
)

func exerciseClient(t *testing.T, c Client) {
	t.Helper()
	ctx := context.Background()
	key := "k-" + uuid.NewString()[:8]

	_, err := c.Get(ctx, key)
	require.True(t, IsNotFound(err))

	require.NoError(t, c.Set(ctx, key, "v1", 0))
	v, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "v1", v)

	require.NoError(t, c.Delete(ctx, key))
	_, err = c.Get(ctx, key)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Ping(ctx))
}

func TestMemory(t *testing.T) {
	c, err := New(Config{Driver: "memory", Prefix: "id"})
	require.NoError(t, err)
	defer c.Close()
	exerciseClient(t, c)
}

func TestMemory_Expires(t *testing.T) {
	c := NewMemory("", time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)
	_, err := c.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNew_RedisRequiresClient(t *testing.T) {
	_, err := New(Config{Driver: "redis"})
	require.Error(t, err)
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("HELLOPAIR_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("HELLOPAIR_TEST_REDIS_ADDR not set")
	}
	rdb, err := redisconn.Open(context.Background(), redisconn.Config{Addr: addr})
	require.NoError(t, err)
	defer rdb.Close()

	c, err := New(Config{Driver: "redis", Prefix: "hptest", Redis: rdb})
	require.NoError(t, err)
	exerciseClient(t, c)
}
