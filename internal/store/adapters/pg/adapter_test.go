package pg

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellopair/internal/store"
	"github.com/dropDatabas3/hellopair/internal/store/storetest"
)

func TestAdapterRegistration(t *testing.T) {
	a, ok := store.GetAdapter("postgres")
	require.True(t, ok, "postgres adapter should be registered")
	require.Equal(t, "postgres", a.Name())
}

func TestConformance(t *testing.T) {
	dsn := os.Getenv("HELLOPAIR_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("HELLOPAIR_TEST_PG_DSN not set")
	}
	conn, err := store.OpenAdapter(context.Background(), store.AdapterConfig{
		Name:        "postgres",
		DSN:         dsn,
		AutoMigrate: true,
	})
	require.NoError(t, err)
	defer conn.Close()

	storetest.Run(t, conn)
}
