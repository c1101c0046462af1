package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
)

// ─── OptInRepository ───

type optInRepo struct{ pool *pgxpool.Pool }

func (r *optInRepo) OptIn(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID, annotation string) (bool, error) {
	if err := pairing.ValidateIDs(tenant, p); err != nil {
		return false, err
	}
	// xmax = 0 solo en filas recién insertadas.
	const query = `
		INSERT INTO opt_in (tenant_id, participant_id, annotation, opted_in_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (tenant_id, participant_id) DO UPDATE SET annotation = EXCLUDED.annotation
		RETURNING (xmax = 0) AS inserted
	`
	var inserted bool
	if err := r.pool.QueryRow(ctx, query, string(tenant), string(p), annotation).Scan(&inserted); err != nil {
		return false, wrap("opt in", err)
	}
	return inserted, nil
}

func (r *optInRepo) OptOut(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) error {
	if err := pairing.ValidateIDs(tenant, p); err != nil {
		return err
	}
	const query = `DELETE FROM opt_in WHERE tenant_id = $1 AND participant_id = $2`
	_, err := r.pool.Exec(ctx, query, string(tenant), string(p))
	return wrap("opt out", err)
}

func (r *optInRepo) IsOptedIn(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM opt_in WHERE tenant_id = $1 AND participant_id = $2)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, string(tenant), string(p)).Scan(&exists)
	return exists, wrap("is opted in", err)
}

func (r *optInRepo) Get(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) (*pairing.OptInRecord, error) {
	const query = `
		SELECT annotation, opted_in_at FROM opt_in
		WHERE tenant_id = $1 AND participant_id = $2
	`
	rec := pairing.OptInRecord{Tenant: tenant, Participant: p}
	err := r.pool.QueryRow(ctx, query, string(tenant), string(p)).Scan(&rec.Annotation, &rec.OptedInAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, pairing.ErrNotFound
	}
	if err != nil {
		return nil, wrap("get opt in", err)
	}
	return &rec, nil
}

func (r *optInRepo) ListEligible(ctx context.Context, tenant pairing.TenantID) ([]pairing.ParticipantID, error) {
	const query = `SELECT participant_id FROM opt_in WHERE tenant_id = $1 ORDER BY participant_id`
	rows, err := r.pool.Query(ctx, query, string(tenant))
	if err != nil {
		return nil, wrap("list eligible", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, wrap("list eligible", err)
	}
	out := make([]pairing.ParticipantID, len(ids))
	for i, id := range ids {
		out[i] = pairing.ParticipantID(id)
	}
	return out, nil
}

func (r *optInRepo) ListTenants(ctx context.Context) ([]pairing.TenantID, error) {
	const query = `SELECT DISTINCT tenant_id FROM opt_in ORDER BY tenant_id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, wrap("list tenants", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, wrap("list tenants", err)
	}
	out := make([]pairing.TenantID, len(ids))
	for i, id := range ids {
		out[i] = pairing.TenantID(id)
	}
	return out, nil
}

// ─── HistoryRepository ───

type historyRepo struct{ pool *pgxpool.Pool }

func (r *historyRepo) HasBeenPaired(ctx context.Context, tenant pairing.TenantID, a, b pairing.ParticipantID) (bool, error) {
	e := pairing.NewEdge(tenant, a, b)
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM pairing_history
			WHERE tenant_id = $1 AND participant_a = $2 AND participant_b = $3
		)
	`
	var exists bool
	err := r.pool.QueryRow(ctx, query, string(tenant), string(e.A), string(e.B)).Scan(&exists)
	return exists, wrap("has been paired", err)
}

func (r *historyRepo) RecordPair(ctx context.Context, tenant pairing.TenantID, a, b pairing.ParticipantID) error {
	if err := pairing.ValidateIDs(tenant, a, b); err != nil {
		return err
	}
	if a == b {
		return pairing.ErrInvalidInput
	}
	e := pairing.NewEdge(tenant, a, b)
	const query = `
		INSERT INTO pairing_history (tenant_id, participant_a, participant_b, paired_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (tenant_id, participant_a, participant_b) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query, string(tenant), string(e.A), string(e.B))
	return wrap("record pair", err)
}

func (r *historyRepo) AllPairedAmong(ctx context.Context, tenant pairing.TenantID, ps []pairing.ParticipantID) (bool, error) {
	want := pairing.EdgesAmong(tenant, ps)
	if len(want) == 0 {
		return true, nil
	}
	as := make([]string, len(want))
	bs := make([]string, len(want))
	for i, e := range want {
		as[i], bs[i] = string(e.A), string(e.B)
	}
	const query = `
		SELECT COUNT(*) FROM pairing_history h
		JOIN unnest($2::text[], $3::text[]) AS w(a, b)
		  ON h.participant_a = w.a AND h.participant_b = w.b
		WHERE h.tenant_id = $1
	`
	var n int
	if err := r.pool.QueryRow(ctx, query, string(tenant), as, bs).Scan(&n); err != nil {
		return false, wrap("all paired among", err)
	}
	return n == len(want), nil
}

func (r *historyRepo) ListEdges(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) ([]pairing.Edge, error) {
	const query = `
		SELECT participant_a, participant_b, paired_at FROM pairing_history
		WHERE tenant_id = $1 AND ($2 = '' OR participant_a = $2 OR participant_b = $2)
		ORDER BY participant_a, participant_b
	`
	rows, err := r.pool.Query(ctx, query, string(tenant), string(p))
	if err != nil {
		return nil, wrap("list edges", err)
	}
	defer rows.Close()

	out := []pairing.Edge{}
	for rows.Next() {
		e := pairing.Edge{Tenant: tenant}
		var a, b string
		if err := rows.Scan(&a, &b, &e.PairedAt); err != nil {
			return nil, wrap("list edges", err)
		}
		e.A, e.B = pairing.ParticipantID(a), pairing.ParticipantID(b)
		out = append(out, e)
	}
	return out, wrap("list edges", rows.Err())
}

// ─── ProfileRepository ───

type profileRepo struct{ pool *pgxpool.Pool }

func (r *profileRepo) Get(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) (*pairing.Profile, error) {
	const query = `
		SELECT attributes, updated_at FROM participant_profile
		WHERE tenant_id = $1 AND participant_id = $2
	`
	prof := pairing.Profile{Tenant: tenant, Participant: p}
	var raw []byte
	err := r.pool.QueryRow(ctx, query, string(tenant), string(p)).Scan(&raw, &prof.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, pairing.ErrNotFound
	}
	if err != nil {
		return nil, wrap("get profile", err)
	}
	if err := json.Unmarshal(raw, &prof.Attributes); err != nil {
		return nil, fmt.Errorf("pg: decode profile attributes: %w", err)
	}
	return &prof, nil
}

func (r *profileRepo) Upsert(ctx context.Context, prof pairing.Profile) error {
	if err := pairing.ValidateIDs(prof.Tenant, prof.Participant); err != nil {
		return err
	}
	attrs := prof.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("pg: encode profile attributes: %w", err)
	}
	const query = `
		INSERT INTO participant_profile (tenant_id, participant_id, attributes, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (tenant_id, participant_id) DO UPDATE SET attributes = EXCLUDED.attributes, updated_at = NOW()
	`
	_, err = r.pool.Exec(ctx, query, string(prof.Tenant), string(prof.Participant), raw)
	return wrap("upsert profile", err)
}

func (r *profileRepo) Delete(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) error {
	const query = `DELETE FROM participant_profile WHERE tenant_id = $1 AND participant_id = $2`
	_, err := r.pool.Exec(ctx, query, string(tenant), string(p))
	return wrap("delete profile", err)
}
