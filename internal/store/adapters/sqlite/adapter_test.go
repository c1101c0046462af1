package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/store"
	"github.com/dropDatabas3/hellopair/internal/store/storetest"
)

func openTemp(t *testing.T) (*Connection, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hellopair.db")
	conn, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, path
}

func TestAdapterRegistration(t *testing.T) {
	a, ok := store.GetAdapter("sqlite")
	require.True(t, ok, "sqlite adapter should be registered")
	require.Equal(t, "sqlite", a.Name())
}

func TestConformance(t *testing.T) {
	conn, _ := openTemp(t)
	storetest.Run(t, conn)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "  ")
	require.Error(t, err)
}

func TestHistory_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	conn, path := openTemp(t)
	require.NoError(t, conn.History().RecordPair(ctx, "T1", "U2", "U1"))
	_, err := conn.OptIns().OptIn(ctx, "T1", "U3", "")
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	paired, err := reopened.History().HasBeenPaired(ctx, "T1", "U1", "U2")
	require.NoError(t, err)
	require.True(t, paired)

	eligible, err := reopened.OptIns().ListEligible(ctx, "T1")
	require.NoError(t, err)
	require.Equal(t, []pairing.ParticipantID{"U3"}, eligible)
}

func TestMigrations_AreIdempotent(t *testing.T) {
	ctx := context.Background()
	conn, _ := openTemp(t)

	m := store.NewMigrator(migrationsFS(), ".")
	res, err := m.Up(ctx, conn.MigrationExecutor())
	require.NoError(t, err)
	require.Empty(t, res.Applied)
	require.Len(t, res.Skipped, 2)

	pending, err := m.HasPending(ctx, conn.MigrationExecutor())
	require.NoError(t, err)
	require.False(t, pending)
}
