package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
)

// ─── OptInRepository ───

type optInRepo struct{ db *sql.DB }

func (r *optInRepo) OptIn(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID, annotation string) (bool, error) {
	if err := pairing.ValidateIDs(tenant, p); err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO opt_in (tenant_id, participant_id, annotation, opted_in_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (tenant_id, participant_id) DO NOTHING`,
		string(tenant), string(p), annotation, toMillis(time.Now()))
	if err != nil {
		return false, wrap("opt in", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE opt_in SET annotation = ? WHERE tenant_id = ? AND participant_id = ?`,
		annotation, string(tenant), string(p))
	return false, wrap("opt in", err)
}

func (r *optInRepo) OptOut(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) error {
	if err := pairing.ValidateIDs(tenant, p); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM opt_in WHERE tenant_id = ? AND participant_id = ?`, string(tenant), string(p))
	return wrap("opt out", err)
}

func (r *optInRepo) IsOptedIn(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM opt_in WHERE tenant_id = ? AND participant_id = ?)`,
		string(tenant), string(p)).Scan(&exists)
	return exists == 1, wrap("is opted in", err)
}

func (r *optInRepo) Get(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) (*pairing.OptInRecord, error) {
	rec := pairing.OptInRecord{Tenant: tenant, Participant: p}
	var at int64
	err := r.db.QueryRowContext(ctx,
		`SELECT annotation, opted_in_at FROM opt_in WHERE tenant_id = ? AND participant_id = ?`,
		string(tenant), string(p)).Scan(&rec.Annotation, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pairing.ErrNotFound
	}
	if err != nil {
		return nil, wrap("get opt in", err)
	}
	rec.OptedInAt = fromMillis(at)
	return &rec, nil
}

func (r *optInRepo) ListEligible(ctx context.Context, tenant pairing.TenantID) ([]pairing.ParticipantID, error) {
	ids, err := queryStrings(ctx, r.db,
		`SELECT participant_id FROM opt_in WHERE tenant_id = ? ORDER BY participant_id`, string(tenant))
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
	ids, err := queryStrings(ctx, r.db, `SELECT DISTINCT tenant_id FROM opt_in ORDER BY tenant_id`)
	if err != nil {
		return nil, wrap("list tenants", err)
	}
	out := make([]pairing.TenantID, len(ids))
	for i, id := range ids {
		out[i] = pairing.TenantID(id)
	}
	return out, nil
}

func queryStrings(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ─── HistoryRepository ───

type historyRepo struct{ db *sql.DB }

func (r *historyRepo) HasBeenPaired(ctx context.Context, tenant pairing.TenantID, a, b pairing.ParticipantID) (bool, error) {
	e := pairing.NewEdge(tenant, a, b)
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM pairing_history
		   WHERE tenant_id = ? AND participant_a = ? AND participant_b = ?
		 )`,
		string(tenant), string(e.A), string(e.B)).Scan(&exists)
	return exists == 1, wrap("has been paired", err)
}

func (r *historyRepo) RecordPair(ctx context.Context, tenant pairing.TenantID, a, b pairing.ParticipantID) error {
	if err := pairing.ValidateIDs(tenant, a, b); err != nil {
		return err
	}
	if a == b {
		return pairing.ErrInvalidInput
	}
	e := pairing.NewEdge(tenant, a, b)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pairing_history (tenant_id, participant_a, participant_b, paired_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (tenant_id, participant_a, participant_b) DO NOTHING`,
		string(tenant), string(e.A), string(e.B), toMillis(time.Now()))
	return wrap("record pair", err)
}

func (r *historyRepo) AllPairedAmong(ctx context.Context, tenant pairing.TenantID, ps []pairing.ParticipantID) (bool, error) {
	want := pairing.EdgesAmong(tenant, ps)
	if len(want) == 0 {
		return true, nil
	}
	// (a, b) IN (VALUES ...) con un placeholder por extremo.
	var sb strings.Builder
	args := make([]any, 0, 1+2*len(want))
	args = append(args, string(tenant))
	for i, e := range want {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(?, ?)")
		args = append(args, string(e.A), string(e.B))
	}
	query := fmt.Sprintf(
		`SELECT COUNT(*) FROM pairing_history
		 WHERE tenant_id = ? AND (participant_a, participant_b) IN (VALUES %s)`, sb.String())

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, wrap("all paired among", err)
	}
	return n == len(want), nil
}

func (r *historyRepo) ListEdges(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) ([]pairing.Edge, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT participant_a, participant_b, paired_at FROM pairing_history
		 WHERE tenant_id = ? AND (? = '' OR participant_a = ? OR participant_b = ?)
		 ORDER BY participant_a, participant_b`,
		string(tenant), string(p), string(p), string(p))
	if err != nil {
		return nil, wrap("list edges", err)
	}
	defer rows.Close()

	out := []pairing.Edge{}
	for rows.Next() {
		var a, b string
		var at int64
		if err := rows.Scan(&a, &b, &at); err != nil {
			return nil, wrap("list edges", err)
		}
		out = append(out, pairing.Edge{
			Tenant:   tenant,
			A:        pairing.ParticipantID(a),
			B:        pairing.ParticipantID(b),
			PairedAt: fromMillis(at),
		})
	}
	return out, wrap("list edges", rows.Err())
}

// ─── ProfileRepository ───

type profileRepo struct{ db *sql.DB }

func (r *profileRepo) Get(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) (*pairing.Profile, error) {
	prof := pairing.Profile{Tenant: tenant, Participant: p}
	var raw string
	var at int64
	err := r.db.QueryRowContext(ctx,
		`SELECT attributes, updated_at FROM participant_profile WHERE tenant_id = ? AND participant_id = ?`,
		string(tenant), string(p)).Scan(&raw, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pairing.ErrNotFound
	}
	if err != nil {
		return nil, wrap("get profile", err)
	}
	if err := json.Unmarshal([]byte(raw), &prof.Attributes); err != nil {
		return nil, fmt.Errorf("sqlite: decode profile attributes: %w", err)
	}
	prof.UpdatedAt = fromMillis(at)
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
		return fmt.Errorf("sqlite: encode profile attributes: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO participant_profile (tenant_id, participant_id, attributes, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (tenant_id, participant_id) DO UPDATE SET
		   attributes = excluded.attributes,
		   updated_at = excluded.updated_at`,
		string(prof.Tenant), string(prof.Participant), string(raw), toMillis(time.Now()))
	return wrap("upsert profile", err)
}

func (r *profileRepo) Delete(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM participant_profile WHERE tenant_id = ? AND participant_id = ?`,
		string(tenant), string(p))
	return wrap("delete profile", err)
}
