package matching

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/store/adapters/memory"
)

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

func ids(ss ...string) []pairing.ParticipantID {
	out := make([]pairing.ParticipantID, len(ss))
	for i, s := range ss {
		out[i] = pairing.ParticipantID(s)
	}
	return out
}

func newHistory() pairing.HistoryRepository {
	return memory.New().History()
}

func record(t *testing.T, h pairing.HistoryRepository, tenant pairing.TenantID, pairs ...[2]string) {
	t.Helper()
	for _, p := range pairs {
		require.NoError(t, h.RecordPair(context.Background(), tenant, pairing.ParticipantID(p[0]), pairing.ParticipantID(p[1])))
	}
}

// covered verifica que grupos + residuo sean exactamente los elegibles.
func covered(t *testing.T, res Result, eligible []pairing.ParticipantID) {
	t.Helper()
	var seen []pairing.ParticipantID
	for _, g := range res.Groupings {
		require.Contains(t, []int{2, 3}, g.Size())
		seen = append(seen, g.Members...)
	}
	seen = append(seen, res.Residue...)
	require.ElementsMatch(t, eligible, seen)
}

func TestRun_InsufficientPopulation(t *testing.T) {
	e := New(newHistory(), Options{Rand: seeded(1)})
	for _, eligible := range [][]pairing.ParticipantID{nil, ids("a"), ids("a", "a")} {
		res, err := e.Run(context.Background(), "T1", eligible)
		require.NoError(t, err)
		require.Equal(t, OutcomeInsufficientPopulation, res.Outcome)
		require.Empty(t, res.Groupings)
	}
}

func TestRun_FreshEvenPoolPairsEveryone(t *testing.T) {
	ctx := context.Background()
	h := newHistory()
	e := New(h, Options{Rand: seeded(7)})

	eligible := ids("a", "b", "c", "d")
	res, err := e.Run(ctx, "T1", eligible)
	require.NoError(t, err)
	require.Equal(t, OutcomeMatched, res.Outcome)
	require.Len(t, res.Groupings, 2)
	require.Empty(t, res.Residue)
	covered(t, res, eligible)

	for _, g := range res.Groupings {
		paired, err := h.HasBeenPaired(ctx, "T1", g.Members[1], g.Members[0])
		require.NoError(t, err)
		require.True(t, paired, "edges are recorded as groupings are emitted")
	}
}

func TestRun_OddPoolEndsWithTriple(t *testing.T) {
	for seed := uint64(0); seed < 50; seed++ {
		ctx := context.Background()
		h := newHistory()
		e := New(h, Options{Rand: seeded(seed)})

		eligible := ids("a", "b", "c", "d", "e")
		res, err := e.Run(ctx, "T1", eligible)
		require.NoError(t, err)
		require.Len(t, res.Groupings, 2)
		require.Empty(t, res.Residue)
		require.Equal(t, 2, res.Groupings[0].Size())
		require.Equal(t, 3, res.Groupings[1].Size())
		covered(t, res, eligible)

		edges, err := h.ListEdges(ctx, "T1", "")
		require.NoError(t, err)
		require.Len(t, edges, 4, "one pair edge plus three triple edges")
	}
}

func TestRun_ExactlyThreeFormOneTriple(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		ctx := context.Background()
		h := newHistory()

		res, err := New(h, Options{Rand: seeded(seed)}).Run(ctx, "T1", ids("a", "b", "c"))
		require.NoError(t, err)
		require.Equal(t, OutcomeMatched, res.Outcome)
		require.Len(t, res.Groupings, 1)
		require.ElementsMatch(t, ids("a", "b", "c"), res.Groupings[0].Members)
		require.Empty(t, res.Residue)

		edges, err := h.ListEdges(ctx, "T1", "")
		require.NoError(t, err)
		require.Len(t, edges, 3)
		for _, pair := range [][2]pairing.ParticipantID{{"a", "b"}, {"a", "c"}, {"b", "c"}} {
			ok, err := h.HasBeenPaired(ctx, "T1", pair[0], pair[1])
			require.NoError(t, err)
			require.True(t, ok, "%s-%s", pair[0], pair[1])
		}
	}
}

func TestRun_FullySaturatedRecordsNothing(t *testing.T) {
	ctx := context.Background()
	h := newHistory()
	record(t, h, "T1", [2]string{"a", "b"}, [2]string{"a", "c"}, [2]string{"b", "c"})

	e := New(h, Options{Rand: seeded(3)})
	res, err := e.Run(ctx, "T1", ids("a", "b", "c"))
	require.NoError(t, err)
	require.Equal(t, OutcomeFullySaturated, res.Outcome)
	require.Empty(t, res.Groupings)
	require.ElementsMatch(t, ids("a", "b", "c"), res.Residue)

	edges, err := h.ListEdges(ctx, "T1", "")
	require.NoError(t, err)
	require.Len(t, edges, 3)
}

func TestRun_InvalidTripleStops(t *testing.T) {
	h := newHistory()
	record(t, h, "T1", [2]string{"a", "b"})

	for seed := uint64(0); seed < 20; seed++ {
		e := New(h, Options{Rand: seeded(seed), RetryBudget: DefaultRetryBudget})
		res, err := e.Run(context.Background(), "T1", ids("a", "b", "c"))
		require.NoError(t, err)
		require.Equal(t, OutcomeExhausted, res.Outcome)
		require.Empty(t, res.Groupings)
		require.ElementsMatch(t, ids("a", "b", "c"), res.Residue)
	}
}

func TestRun_NeverRepeatsAPairAcrossRounds(t *testing.T) {
	ctx := context.Background()
	h := newHistory()
	e := New(h, Options{Rand: seeded(42), RetryBudget: DefaultRetryBudget})
	eligible := ids("a", "b", "c", "d", "e", "f", "g")

	emitted := map[string]bool{}
	terminal := false
	for round := 0; round < 50; round++ {
		res, err := e.Run(ctx, "T1", eligible)
		require.NoError(t, err)
		covered(t, res, eligible)
		for _, g := range res.Groupings {
			for _, edge := range g.Edges() {
				require.False(t, emitted[edge.Key()], "pair %s emitted twice", edge.Key())
				emitted[edge.Key()] = true
			}
		}
		if res.Outcome != OutcomeMatched {
			terminal = true
			break
		}
	}
	require.True(t, terminal, "repeated rounds must reach saturation or exhaustion")
	require.LessOrEqual(t, len(emitted), 21)
}

func TestRun_ResidueRolloverAvoidsKnownPairs(t *testing.T) {
	eligible := ids("a", "b", "c", "d")

	strictStops := 0
	for seed := uint64(0); seed < 200; seed++ {
		// Cada seed trabaja sobre una copia de la historia base.
		hh := newHistory()
		record(t, hh, "T1", [2]string{"a", "b"}, [2]string{"c", "d"})

		e := New(hh, Options{Rand: seeded(seed), RetryBudget: DefaultRetryBudget})
		res, err := e.Run(context.Background(), "T1", eligible)
		require.NoError(t, err)
		require.Equal(t, OutcomeMatched, res.Outcome, "seed %d", seed)
		require.Len(t, res.Groupings, 2, "seed %d", seed)
		for _, g := range res.Groupings {
			key := g.Edges()[0].Key()
			require.NotEqual(t, pairing.NewEdge("T1", "a", "b").Key(), key, "seed %d", seed)
			require.NotEqual(t, pairing.NewEdge("T1", "c", "d").Key(), key, "seed %d", seed)
		}

		sh := newHistory()
		record(t, sh, "T1", [2]string{"a", "b"}, [2]string{"c", "d"})
		sres, err := New(sh, Options{Rand: seeded(seed)}).Run(context.Background(), "T1", eligible)
		require.NoError(t, err)
		if sres.Outcome == OutcomeExhausted {
			strictStops++
			require.Len(t, sres.Residue, 4)
		}
	}
	require.Positive(t, strictStops, "strict mode stops on the first repeated pair")
}

func TestRun_SameSeedSameResult(t *testing.T) {
	eligible := ids("a", "b", "c", "d", "e", "f")
	r1, err := New(newHistory(), Options{Rand: seeded(99)}).Run(context.Background(), "T1", eligible)
	require.NoError(t, err)
	r2, err := New(newHistory(), Options{Rand: seeded(99)}).Run(context.Background(), "T1", eligible)
	require.NoError(t, err)
	require.Equal(t, r1.Groupings, r2.Groupings)
}

// flakyHistory falla RecordPair después de `okRecords` éxitos.
type flakyHistory struct {
	pairing.HistoryRepository
	okRecords int
	failAll   bool
}

var errBoom = errors.New("connection reset")

func (f *flakyHistory) RecordPair(ctx context.Context, t pairing.TenantID, a, b pairing.ParticipantID) error {
	if f.okRecords == 0 {
		return errBoom
	}
	f.okRecords--
	return f.HistoryRepository.RecordPair(ctx, t, a, b)
}

func (f *flakyHistory) AllPairedAmong(ctx context.Context, t pairing.TenantID, ps []pairing.ParticipantID) (bool, error) {
	if f.failAll {
		return false, errBoom
	}
	return f.HistoryRepository.AllPairedAmong(ctx, t, ps)
}

func TestRun_StoreFailureKeepsCommittedGroupings(t *testing.T) {
	h := &flakyHistory{HistoryRepository: newHistory(), okRecords: 1}
	e := New(h, Options{Rand: seeded(5)})

	eligible := ids("a", "b", "c", "d", "e", "f")
	res, err := e.Run(context.Background(), "T1", eligible)
	require.ErrorIs(t, err, pairing.ErrStoreUnavailable)
	require.ErrorIs(t, err, errBoom)
	require.Len(t, res.Groupings, 1)
	require.Len(t, res.Residue, 4)
	covered(t, res, eligible)
}

func TestRun_TripleWithUnrecordedEdgeIsNotEmitted(t *testing.T) {
	ctx := context.Background()
	mem := newHistory()
	h := &flakyHistory{HistoryRepository: mem, okRecords: 1}

	eligible := ids("a", "b", "c")
	res, err := New(h, Options{Rand: seeded(7)}).Run(ctx, "T1", eligible)
	require.ErrorIs(t, err, pairing.ErrStoreUnavailable)
	require.Empty(t, res.Groupings, "a triple is emitted only once all three edges are recorded")
	require.ElementsMatch(t, eligible, res.Residue)

	edges, err := mem.ListEdges(ctx, "T1", "")
	require.NoError(t, err)
	require.Len(t, edges, 1)

	// El par ya registrado no vuelve a formarse en la próxima ronda.
	again, err := New(mem, Options{Rand: seeded(8)}).Run(ctx, "T1", []pairing.ParticipantID{edges[0].A, edges[0].B})
	require.NoError(t, err)
	require.Equal(t, OutcomeFullySaturated, again.Outcome)
	require.Empty(t, again.Groupings)
}

func TestRun_SaturationCheckFailure(t *testing.T) {
	h := &flakyHistory{HistoryRepository: newHistory(), failAll: true}
	res, err := New(h, Options{}).Run(context.Background(), "T1", ids("a", "b"))
	require.ErrorIs(t, err, pairing.ErrStoreUnavailable)
	require.Empty(t, res.Groupings)
}

func TestRun_TenantsDoNotShareHistory(t *testing.T) {
	h := newHistory()
	record(t, h, "T1", [2]string{"a", "b"})

	res, err := New(h, Options{Rand: seeded(1)}).Run(context.Background(), "T2", ids("a", "b"))
	require.NoError(t, err)
	require.Equal(t, OutcomeMatched, res.Outcome)
	require.Len(t, res.Groupings, 1)
}
