package redis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellopair/internal/store"
	"github.com/dropDatabas3/hellopair/internal/store/storetest"
)

func TestAdapterRegistration(t *testing.T) {
	a, ok := store.GetAdapter("redis")
	require.True(t, ok, "redis adapter should be registered")
	require.Equal(t, "redis", a.Name())
}

func TestConformance(t *testing.T) {
	addr := os.Getenv("HELLOPAIR_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("HELLOPAIR_TEST_REDIS_ADDR not set")
	}
	cfg := store.AdapterConfig{Name: "redis"}
	cfg.Redis.Addr = addr
	cfg.Redis.Prefix = "hptest:" + uuid.NewString()[:8] + ":"

	conn, err := store.OpenAdapter(context.Background(), cfg)
	require.NoError(t, err)
	defer conn.Close()

	storetest.Run(t, conn)
}
