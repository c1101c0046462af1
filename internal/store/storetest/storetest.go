// Package storetest contiene la suite de conformidad que todo adapter
// de store debe pasar.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/store"
)

// NewTenant genera un tenant único para aislar corridas sobre bases compartidas.
func NewTenant(prefix string) pairing.TenantID {
	return pairing.TenantID(prefix + "-" + uuid.NewString()[:8])
}

// Run ejecuta la suite completa contra una conexión.
func Run(t *testing.T, conn store.AdapterConnection) {
	t.Helper()
	require.NoError(t, conn.Ping(context.Background()))

	t.Run("optins", func(t *testing.T) { RunOptIns(t, conn.OptIns()) })
	t.Run("history", func(t *testing.T) { RunHistory(t, conn.History()) })
	if p := conn.Profiles(); p != nil {
		t.Run("profiles", func(t *testing.T) { RunProfiles(t, p) })
	}
}

// RunOptIns valida el Opt-in Registry.
func RunOptIns(t *testing.T, repo pairing.OptInRepository) {
	require.NotNil(t, repo)
	ctx := context.Background()
	tenant := NewTenant("optin")
	other := NewTenant("other")

	created, err := repo.OptIn(ctx, tenant, "U1", "coffee")
	require.NoError(t, err)
	require.True(t, created)

	created, err = repo.OptIn(ctx, tenant, "U1", "lunch")
	require.NoError(t, err)
	require.False(t, created, "re-opt-in must be an upsert")

	rec, err := repo.Get(ctx, tenant, "U1")
	require.NoError(t, err)
	require.Equal(t, "lunch", rec.Annotation)
	require.Equal(t, tenant, rec.Tenant)
	require.WithinDuration(t, time.Now(), rec.OptedInAt, time.Minute)

	_, err = repo.OptIn(ctx, tenant, "U2", "")
	require.NoError(t, err)
	_, err = repo.OptIn(ctx, other, "U3", "")
	require.NoError(t, err)

	ok, err := repo.IsOptedIn(ctx, tenant, "U2")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.IsOptedIn(ctx, tenant, "U3")
	require.NoError(t, err)
	require.False(t, ok, "opt-ins are tenant scoped")

	eligible, err := repo.ListEligible(ctx, tenant)
	require.NoError(t, err)
	require.ElementsMatch(t, []pairing.ParticipantID{"U1", "U2"}, eligible)

	tenants, err := repo.ListTenants(ctx)
	require.NoError(t, err)
	require.Contains(t, tenants, tenant)
	require.Contains(t, tenants, other)

	require.NoError(t, repo.OptOut(ctx, tenant, "U1"))
	require.NoError(t, repo.OptOut(ctx, tenant, "U1"), "opt-out is idempotent")

	_, err = repo.Get(ctx, tenant, "U1")
	require.ErrorIs(t, err, pairing.ErrNotFound)

	require.NoError(t, repo.OptOut(ctx, tenant, "U2"))
	eligible, err = repo.ListEligible(ctx, tenant)
	require.NoError(t, err)
	require.Empty(t, eligible)

	tenants, err = repo.ListTenants(ctx)
	require.NoError(t, err)
	require.NotContains(t, tenants, tenant, "tenant without opt-ins leaves the sweep")

	_, err = repo.OptIn(ctx, tenant, "", "")
	require.ErrorIs(t, err, pairing.ErrInvalidInput)

	require.NoError(t, repo.OptOut(ctx, other, "U3"))
}

// RunHistory valida el Pairing History Store.
func RunHistory(t *testing.T, repo pairing.HistoryRepository) {
	require.NotNil(t, repo)
	ctx := context.Background()
	tenant := NewTenant("history")
	other := NewTenant("other")

	paired, err := repo.HasBeenPaired(ctx, tenant, "a", "b")
	require.NoError(t, err)
	require.False(t, paired)

	require.NoError(t, repo.RecordPair(ctx, tenant, "b", "a"))
	require.NoError(t, repo.RecordPair(ctx, tenant, "a", "b"), "duplicate edge is a no-op")

	for _, pair := range [][2]pairing.ParticipantID{{"a", "b"}, {"b", "a"}} {
		paired, err = repo.HasBeenPaired(ctx, tenant, pair[0], pair[1])
		require.NoError(t, err)
		require.True(t, paired)
	}

	paired, err = repo.HasBeenPaired(ctx, other, "a", "b")
	require.NoError(t, err)
	require.False(t, paired, "history is tenant scoped")

	require.ErrorIs(t, repo.RecordPair(ctx, tenant, "a", "a"), pairing.ErrInvalidInput)

	all, err := repo.AllPairedAmong(ctx, tenant, []pairing.ParticipantID{"a"})
	require.NoError(t, err)
	require.True(t, all, "singleton is vacuously saturated")

	all, err = repo.AllPairedAmong(ctx, tenant, []pairing.ParticipantID{"a", "b", "c"})
	require.NoError(t, err)
	require.False(t, all)

	require.NoError(t, repo.RecordPair(ctx, tenant, "c", "a"))
	require.NoError(t, repo.RecordPair(ctx, tenant, "b", "c"))

	all, err = repo.AllPairedAmong(ctx, tenant, []pairing.ParticipantID{"c", "b", "a"})
	require.NoError(t, err)
	require.True(t, all)

	edges, err := repo.ListEdges(ctx, tenant, "a")
	require.NoError(t, err)
	require.Len(t, edges, 2)
	for _, e := range edges {
		require.True(t, e.A < e.B, "edges are stored normalized")
		require.True(t, e.Touches("a"))
		require.Equal(t, tenant, e.Tenant)
	}

	edges, err = repo.ListEdges(ctx, tenant, "")
	require.NoError(t, err)
	require.Len(t, edges, 3)

	runSeparatorIDs(t, repo)
}

// runSeparatorIDs: los ids son opacos, separadores incluidos.
func runSeparatorIDs(t *testing.T, repo pairing.HistoryRepository) {
	ctx := context.Background()
	tenant := NewTenant("sep")

	require.NoError(t, repo.RecordPair(ctx, tenant, "x|y", "z"))

	paired, err := repo.HasBeenPaired(ctx, tenant, "x", "y|z")
	require.NoError(t, err)
	require.False(t, paired, "ids containing the key separator must not collide")

	paired, err = repo.HasBeenPaired(ctx, tenant, "z", "x|y")
	require.NoError(t, err)
	require.True(t, paired)

	edges, err := repo.ListEdges(ctx, tenant, "x|y")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	require.Equal(t, pairing.NewEdge(tenant, "x|y", "z"), pairing.NewEdge(tenant, edges[0].A, edges[0].B))

	edges, err = repo.ListEdges(ctx, tenant, "x")
	require.NoError(t, err)
	require.Empty(t, edges)

	// Orden por bytes: "B" < "a" aunque la collation del motor diga lo contrario.
	require.NoError(t, repo.RecordPair(ctx, tenant, "a", "B"))
	paired, err = repo.HasBeenPaired(ctx, tenant, "B", "a")
	require.NoError(t, err)
	require.True(t, paired)
	edges, err = repo.ListEdges(ctx, tenant, "a")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	require.Equal(t, pairing.ParticipantID("B"), edges[0].A)
	require.Equal(t, pairing.ParticipantID("a"), edges[0].B)
}

// RunProfiles valida el Profile Store.
func RunProfiles(t *testing.T, repo pairing.ProfileRepository) {
	ctx := context.Background()
	tenant := NewTenant("profile")

	_, err := repo.Get(ctx, tenant, "U1")
	require.ErrorIs(t, err, pairing.ErrNotFound)

	require.NoError(t, repo.Upsert(ctx, pairing.Profile{
		Tenant:      tenant,
		Participant: "U1",
		Attributes:  map[string]string{pairing.ProfilePronouns: "she/her", pairing.ProfileLocation: "Lisbon"},
	}))

	p, err := repo.Get(ctx, tenant, "U1")
	require.NoError(t, err)
	require.Equal(t, "she/her", p.Get(pairing.ProfilePronouns))
	require.Equal(t, "Lisbon", p.Get(pairing.ProfileLocation))
	require.False(t, p.UpdatedAt.IsZero())

	require.NoError(t, repo.Upsert(ctx, pairing.Profile{
		Tenant:      tenant,
		Participant: "U1",
		Attributes:  map[string]string{pairing.ProfileHobbies: "climbing"},
	}))
	p, err = repo.Get(ctx, tenant, "U1")
	require.NoError(t, err)
	require.Equal(t, "climbing", p.Get(pairing.ProfileHobbies))
	require.Empty(t, p.Get(pairing.ProfilePronouns), "upsert replaces attributes")

	_, err = repo.Get(ctx, NewTenant("other"), "U1")
	require.ErrorIs(t, err, pairing.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, tenant, "U1"))
	require.NoError(t, repo.Delete(ctx, tenant, "U1"))
	_, err = repo.Get(ctx, tenant, "U1")
	require.ErrorIs(t, err, pairing.ErrNotFound)

	// tenant "{t}:b" + "c" no debe pisar tenant "{t}" + "b:c".
	base := NewTenant("sep")
	require.NoError(t, repo.Upsert(ctx, pairing.Profile{
		Tenant:      base + ":b",
		Participant: "c",
		Attributes:  map[string]string{pairing.ProfileBio: "scoped"},
	}))
	_, err = repo.Get(ctx, base, "b:c")
	require.ErrorIs(t, err, pairing.ErrNotFound, "profiles are tenant scoped even with separators in ids")
	require.NoError(t, repo.Delete(ctx, base+":b", "c"))
}
