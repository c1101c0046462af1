package matching

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/observability/logger"
)

// DefaultRetryBudget intentos de swap de compañero por corrida.
const DefaultRetryBudget = 32

// History es lo que el engine necesita del Pairing History Store.
type History interface {
	HasBeenPaired(ctx context.Context, tenant pairing.TenantID, a, b pairing.ParticipantID) (bool, error)
	RecordPair(ctx context.Context, tenant pairing.TenantID, a, b pairing.ParticipantID) error
	AllPairedAmong(ctx context.Context, tenant pairing.TenantID, ps []pairing.ParticipantID) (bool, error)
}

// Outcome resume cómo terminó una corrida.
type Outcome string

const (
	// OutcomeMatched: se emitió al menos un grupo.
	OutcomeMatched Outcome = "matched"
	// OutcomeInsufficientPopulation: menos de 2 elegibles.
	OutcomeInsufficientPopulation Outcome = "insufficient_population"
	// OutcomeFullySaturated: todos los elegibles ya se emparejaron entre sí.
	OutcomeFullySaturated Outcome = "fully_saturated"
	// OutcomeExhausted: hubo candidatos pero ningún grupo válido en este orden.
	OutcomeExhausted Outcome = "exhausted"
)

// Result de una corrida.
type Result struct {
	Tenant    pairing.TenantID
	Outcome   Outcome
	Groupings []pairing.Grouping
	// Residue son los elegibles no agrupados; siguen inscriptos.
	Residue []pairing.ParticipantID
	// Swaps cantidad de compañeros probados por el retry acotado.
	Swaps int
}

// Options configura el engine.
type Options struct {
	// RetryBudget 0 = reinsert-and-stop estricto.
	RetryBudget int
	// Rand fuente de aleatoriedad; nil usa una semilla por tiempo.
	Rand *rand.Rand
}

// Engine es seguro para uso concurrente entre tenants.
type Engine struct {
	history     History
	retryBudget int

	mu  sync.Mutex
	rnd *rand.Rand
}

// New crea un Engine.
func New(history History, opts Options) *Engine {
	rnd := opts.Rand
	if rnd == nil {
		seed := uint64(time.Now().UnixNano())
		rnd = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	budget := opts.RetryBudget
	if budget < 0 {
		budget = 0
	}
	return &Engine{history: history, retryBudget: budget, rnd: rnd}
}

// shuffle devuelve una permutación uniforme (Fisher–Yates) de ps.
func (e *Engine) shuffle(ps []pairing.ParticipantID) []pairing.ParticipantID {
	out := make([]pairing.ParticipantID, len(ps))
	copy(out, ps)
	e.mu.Lock()
	e.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	e.mu.Unlock()
	return out
}

// Run ejecuta una corrida sobre la foto de elegibles del tenant.
// Debe llamarse dentro del lock del tenant.
func (e *Engine) Run(ctx context.Context, tenant pairing.TenantID, eligible []pairing.ParticipantID) (Result, error) {
	log := logger.From(ctx).With(logger.Component("matching"), logger.TenantID(tenant))
	eligible = dedupe(eligible)
	res := Result{Tenant: tenant}

	if len(eligible) < 2 {
		res.Outcome = OutcomeInsufficientPopulation
		res.Residue = eligible
		return res, nil
	}

	saturated, err := e.history.AllPairedAmong(ctx, tenant, eligible)
	if err != nil {
		res.Residue = eligible
		return res, storeErr("all paired among", err)
	}
	if saturated {
		res.Outcome = OutcomeFullySaturated
		res.Residue = eligible
		return res, nil
	}

	r := &run{
		engine: e,
		tenant: tenant,
		rem:    e.shuffle(eligible),
		budget: e.retryBudget,
	}
	err = r.loop(ctx)

	res.Groupings = r.groupings
	res.Residue = r.rem
	res.Swaps = r.swaps
	if len(res.Groupings) > 0 {
		res.Outcome = OutcomeMatched
	} else {
		res.Outcome = OutcomeExhausted
	}

	if err != nil {
		log.Warn("matching run aborted by store failure",
			logger.Count(len(res.Groupings)), logger.Err(err))
		return res, err
	}
	log.Debug("matching run finished",
		logger.Outcome(string(res.Outcome)),
		logger.Count(len(res.Groupings)),
		logger.Participants(res.Residue),
		logger.Int("swaps", res.Swaps))
	return res, nil
}

// run es el estado de una sola corrida.
type run struct {
	engine    *Engine
	tenant    pairing.TenantID
	rem       []pairing.ParticipantID
	budget    int
	swaps     int
	groupings []pairing.Grouping
}

func (r *run) loop(ctx context.Context) error {
	for len(r.rem) >= 2 {
		if err := ctx.Err(); err != nil {
			return storeErr("matching", err)
		}

		if len(r.rem) == 3 {
			ok, err := r.validGroup(ctx, r.rem)
			if err != nil {
				return err
			}
			if !ok {
				// Trío inválido: vuelven al frente y la corrida termina.
				return nil
			}
			return r.emit(ctx, r.rem[:3])
		}

		a, b := r.rem[0], r.rem[1]
		paired, err := r.engine.history.HasBeenPaired(ctx, r.tenant, a, b)
		if err != nil {
			return storeErr("has been paired", err)
		}
		if paired {
			found, err := r.swapPartner(ctx)
			if err != nil {
				return err
			}
			if !found {
				return nil
			}
		}
		if err := r.emit(ctx, r.rem[:2]); err != nil {
			return err
		}
	}
	return nil
}

// swapPartner busca en el resto el primer compañero compatible con la
// cabeza y lo mueve a la segunda posición. Cada candidato consume budget.
func (r *run) swapPartner(ctx context.Context) (bool, error) {
	head := r.rem[0]
	for j := 2; j < len(r.rem) && r.budget > 0; j++ {
		r.budget--
		r.swaps++
		paired, err := r.engine.history.HasBeenPaired(ctx, r.tenant, head, r.rem[j])
		if err != nil {
			return false, storeErr("has been paired", err)
		}
		if !paired {
			r.rem[1], r.rem[j] = r.rem[j], r.rem[1]
			return true, nil
		}
	}
	return false, nil
}

func (r *run) validGroup(ctx context.Context, members []pairing.ParticipantID) (bool, error) {
	for _, edge := range pairing.EdgesAmong(r.tenant, members) {
		paired, err := r.engine.history.HasBeenPaired(ctx, r.tenant, edge.A, edge.B)
		if err != nil {
			return false, storeErr("has been paired", err)
		}
		if paired {
			return false, nil
		}
	}
	return true, nil
}

// emit registra las aristas del grupo y recién entonces lo saca de la cola.
// Si falla alguna arista el grupo no se emite y sus miembros quedan en el
// residuo; las aristas ya registradas quedan en la historia.
func (r *run) emit(ctx context.Context, members []pairing.ParticipantID) error {
	g := pairing.Grouping{Tenant: r.tenant, Members: append([]pairing.ParticipantID(nil), members...)}
	for _, edge := range g.Edges() {
		if err := r.engine.history.RecordPair(ctx, r.tenant, edge.A, edge.B); err != nil {
			return storeErr("record pair", err)
		}
	}
	r.commit(g)
	return nil
}

func (r *run) commit(g pairing.Grouping) {
	r.groupings = append(r.groupings, g)
	r.rem = r.rem[len(g.Members):]
}

func storeErr(op string, err error) error {
	return pairing.Unavailable(fmt.Errorf("matching: %s: %w", op, err))
}

func dedupe(ps []pairing.ParticipantID) []pairing.ParticipantID {
	seen := make(map[pairing.ParticipantID]struct{}, len(ps))
	out := make([]pairing.ParticipantID, 0, len(ps))
	for _, p := range ps {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
