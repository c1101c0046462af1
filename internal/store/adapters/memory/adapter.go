// Package memory implementa un adapter en memoria para dev y tests.
// Cada Connect devuelve un almacenamiento vacío e independiente.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/store"
)

func init() {
	store.RegisterAdapter(&memoryAdapter{})
}

type memoryAdapter struct{}

func (a *memoryAdapter) Name() string { return "memory" }

func (a *memoryAdapter) Connect(_ context.Context, _ store.AdapterConfig) (store.AdapterConnection, error) {
	return New(), nil
}

// Connection guarda todo en mapas protegidos por un RWMutex.
type Connection struct {
	mu       sync.RWMutex
	optins   map[pairing.TenantID]map[pairing.ParticipantID]pairing.OptInRecord
	edges    map[pairing.TenantID]map[string]pairing.Edge
	profiles map[pairing.TenantID]map[pairing.ParticipantID]pairing.Profile
	now      func() time.Time
}

// New crea una conexión vacía.
func New() *Connection {
	return &Connection{
		optins:   map[pairing.TenantID]map[pairing.ParticipantID]pairing.OptInRecord{},
		edges:    map[pairing.TenantID]map[string]pairing.Edge{},
		profiles: map[pairing.TenantID]map[pairing.ParticipantID]pairing.Profile{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (c *Connection) Name() string               { return "memory" }
func (c *Connection) Ping(context.Context) error { return nil }
func (c *Connection) Close() error               { return nil }

// ─── Repositorios ───

func (c *Connection) OptIns() pairing.OptInRepository     { return (*optInRepo)(c) }
func (c *Connection) History() pairing.HistoryRepository  { return (*historyRepo)(c) }
func (c *Connection) Profiles() pairing.ProfileRepository { return (*profileRepo)(c) }

// ─── OptInRepository ───

type optInRepo Connection

func (r *optInRepo) OptIn(_ context.Context, tenant pairing.TenantID, p pairing.ParticipantID, annotation string) (bool, error) {
	if err := pairing.ValidateIDs(tenant, p); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	byP, ok := r.optins[tenant]
	if !ok {
		byP = map[pairing.ParticipantID]pairing.OptInRecord{}
		r.optins[tenant] = byP
	}
	prev, exists := byP[p]
	rec := pairing.OptInRecord{Tenant: tenant, Participant: p, Annotation: annotation, OptedInAt: r.now()}
	if exists {
		rec.OptedInAt = prev.OptedInAt
	}
	byP[p] = rec
	return !exists, nil
}

func (r *optInRepo) OptOut(_ context.Context, tenant pairing.TenantID, p pairing.ParticipantID) error {
	if err := pairing.ValidateIDs(tenant, p); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	byP := r.optins[tenant]
	delete(byP, p)
	if len(byP) == 0 {
		delete(r.optins, tenant)
	}
	return nil
}

func (r *optInRepo) IsOptedIn(_ context.Context, tenant pairing.TenantID, p pairing.ParticipantID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.optins[tenant][p]
	return ok, nil
}

func (r *optInRepo) Get(_ context.Context, tenant pairing.TenantID, p pairing.ParticipantID) (*pairing.OptInRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.optins[tenant][p]
	if !ok {
		return nil, pairing.ErrNotFound
	}
	return &rec, nil
}

func (r *optInRepo) ListEligible(_ context.Context, tenant pairing.TenantID) ([]pairing.ParticipantID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]pairing.ParticipantID, 0, len(r.optins[tenant]))
	for p := range r.optins[tenant] {
		out = append(out, p)
	}
	pairing.SortParticipants(out)
	return out, nil
}

func (r *optInRepo) ListTenants(context.Context) ([]pairing.TenantID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]pairing.TenantID, 0, len(r.optins))
	for t := range r.optins {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// ─── HistoryRepository ───

type historyRepo Connection

func (r *historyRepo) HasBeenPaired(_ context.Context, tenant pairing.TenantID, a, b pairing.ParticipantID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.edges[tenant][pairing.NewEdge(tenant, a, b).Key()]
	return ok, nil
}

func (r *historyRepo) RecordPair(_ context.Context, tenant pairing.TenantID, a, b pairing.ParticipantID) error {
	if err := pairing.ValidateIDs(tenant, a, b); err != nil {
		return err
	}
	if a == b {
		return pairing.ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	byKey, ok := r.edges[tenant]
	if !ok {
		byKey = map[string]pairing.Edge{}
		r.edges[tenant] = byKey
	}
	e := pairing.NewEdge(tenant, a, b)
	if _, dup := byKey[e.Key()]; dup {
		return nil
	}
	e.PairedAt = r.now()
	byKey[e.Key()] = e
	return nil
}

func (r *historyRepo) AllPairedAmong(_ context.Context, tenant pairing.TenantID, ps []pairing.ParticipantID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range pairing.EdgesAmong(tenant, ps) {
		if _, ok := r.edges[tenant][e.Key()]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (r *historyRepo) ListEdges(_ context.Context, tenant pairing.TenantID, p pairing.ParticipantID) ([]pairing.Edge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []pairing.Edge{}
	for _, e := range r.edges[tenant] {
		if p == "" || e.Touches(p) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

// ─── ProfileRepository ───

type profileRepo Connection

func (r *profileRepo) Get(_ context.Context, tenant pairing.TenantID, p pairing.ParticipantID) (*pairing.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	prof, ok := r.profiles[tenant][p]
	if !ok {
		return nil, pairing.ErrNotFound
	}
	prof.Attributes = cloneAttrs(prof.Attributes)
	return &prof, nil
}

func (r *profileRepo) Upsert(_ context.Context, prof pairing.Profile) error {
	if err := pairing.ValidateIDs(prof.Tenant, prof.Participant); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	byP, ok := r.profiles[prof.Tenant]
	if !ok {
		byP = map[pairing.ParticipantID]pairing.Profile{}
		r.profiles[prof.Tenant] = byP
	}
	prof.Attributes = cloneAttrs(prof.Attributes)
	prof.UpdatedAt = r.now()
	byP[prof.Participant] = prof
	return nil
}

func (r *profileRepo) Delete(_ context.Context, tenant pairing.TenantID, p pairing.ParticipantID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.profiles[tenant], p)
	return nil
}

func cloneAttrs(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
