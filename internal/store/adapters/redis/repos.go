package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
)

// ─── OptInRepository ───

type optInRepo struct{ c *Connection }

// optOutScript borra el opt-in y saca al tenant del set si quedó vacío.
var optOutScript = goredis.NewScript(`
redis.call('HDEL', KEYS[1], ARGV[1])
if redis.call('HLEN', KEYS[1]) == 0 then
  redis.call('SREM', KEYS[2], ARGV[2])
end
return 1
`)

func (r *optInRepo) OptIn(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID, annotation string) (bool, error) {
	if err := pairing.ValidateIDs(tenant, p); err != nil {
		return false, err
	}
	rec := pairing.OptInRecord{Tenant: tenant, Participant: p, Annotation: annotation, OptedInAt: time.Now().UTC()}
	raw, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("redis: encode opt in: %w", err)
	}

	key := r.c.optInKey(tenant)
	created, err := r.c.rdb.HSetNX(ctx, key, string(p), raw).Result()
	if err != nil {
		return false, wrap("opt in", err)
	}
	if err := r.c.rdb.SAdd(ctx, r.c.tenantsKey(), string(tenant)).Err(); err != nil {
		return false, wrap("opt in", err)
	}
	if created {
		return true, nil
	}

	// Ya existía: actualizar anotación conservando opted_in_at.
	prev, err := r.Get(ctx, tenant, p)
	if err != nil {
		return false, err
	}
	prev.Annotation = annotation
	raw, err = json.Marshal(prev)
	if err != nil {
		return false, fmt.Errorf("redis: encode opt in: %w", err)
	}
	return false, wrap("opt in", r.c.rdb.HSet(ctx, key, string(p), raw).Err())
}

func (r *optInRepo) OptOut(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) error {
	if err := pairing.ValidateIDs(tenant, p); err != nil {
		return err
	}
	err := optOutScript.Run(ctx, r.c.rdb,
		[]string{r.c.optInKey(tenant), r.c.tenantsKey()}, string(p), string(tenant)).Err()
	return wrap("opt out", err)
}

func (r *optInRepo) IsOptedIn(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) (bool, error) {
	ok, err := r.c.rdb.HExists(ctx, r.c.optInKey(tenant), string(p)).Result()
	return ok, wrap("is opted in", err)
}

func (r *optInRepo) Get(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) (*pairing.OptInRecord, error) {
	raw, err := r.c.rdb.HGet(ctx, r.c.optInKey(tenant), string(p)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, pairing.ErrNotFound
	}
	if err != nil {
		return nil, wrap("get opt in", err)
	}
	var rec pairing.OptInRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("redis: decode opt in: %w", err)
	}
	return &rec, nil
}

func (r *optInRepo) ListEligible(ctx context.Context, tenant pairing.TenantID) ([]pairing.ParticipantID, error) {
	keys, err := r.c.rdb.HKeys(ctx, r.c.optInKey(tenant)).Result()
	if err != nil {
		return nil, wrap("list eligible", err)
	}
	out := make([]pairing.ParticipantID, len(keys))
	for i, k := range keys {
		out[i] = pairing.ParticipantID(k)
	}
	pairing.SortParticipants(out)
	return out, nil
}

func (r *optInRepo) ListTenants(ctx context.Context) ([]pairing.TenantID, error) {
	members, err := r.c.rdb.SMembers(ctx, r.c.tenantsKey()).Result()
	if err != nil {
		return nil, wrap("list tenants", err)
	}
	sort.Strings(members)
	out := make([]pairing.TenantID, len(members))
	for i, m := range members {
		out[i] = pairing.TenantID(m)
	}
	return out, nil
}

// ─── HistoryRepository ───

type historyRepo struct{ c *Connection }

func (r *historyRepo) HasBeenPaired(ctx context.Context, tenant pairing.TenantID, a, b pairing.ParticipantID) (bool, error) {
	ok, err := r.c.rdb.HExists(ctx, r.c.historyKey(tenant), pairing.NewEdge(tenant, a, b).Key()).Result()
	return ok, wrap("has been paired", err)
}

func (r *historyRepo) RecordPair(ctx context.Context, tenant pairing.TenantID, a, b pairing.ParticipantID) error {
	if err := pairing.ValidateIDs(tenant, a, b); err != nil {
		return err
	}
	if a == b {
		return pairing.ErrInvalidInput
	}
	// HSETNX: el primer paired_at gana, duplicados son no-op.
	at := strconv.FormatInt(time.Now().UTC().UnixMilli(), 10)
	err := r.c.rdb.HSetNX(ctx, r.c.historyKey(tenant), pairing.NewEdge(tenant, a, b).Key(), at).Err()
	return wrap("record pair", err)
}

func (r *historyRepo) AllPairedAmong(ctx context.Context, tenant pairing.TenantID, ps []pairing.ParticipantID) (bool, error) {
	want := pairing.EdgesAmong(tenant, ps)
	if len(want) == 0 {
		return true, nil
	}
	fields := make([]string, len(want))
	for i, e := range want {
		fields[i] = e.Key()
	}
	vals, err := r.c.rdb.HMGet(ctx, r.c.historyKey(tenant), fields...).Result()
	if err != nil {
		return false, wrap("all paired among", err)
	}
	for _, v := range vals {
		if v == nil {
			return false, nil
		}
	}
	return true, nil
}

func (r *historyRepo) ListEdges(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) ([]pairing.Edge, error) {
	all, err := r.c.rdb.HGetAll(ctx, r.c.historyKey(tenant)).Result()
	if err != nil {
		return nil, wrap("list edges", err)
	}
	out := []pairing.Edge{}
	for key, at := range all {
		e, err := pairing.ParseEdgeKey(tenant, key)
		if err != nil {
			continue
		}
		if p != "" && !e.Touches(p) {
			continue
		}
		if ms, err := strconv.ParseInt(at, 10, 64); err == nil {
			e.PairedAt = time.UnixMilli(ms).UTC()
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

// ─── ProfileRepository ───

type profileRepo struct{ c *Connection }

func (r *profileRepo) Get(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) (*pairing.Profile, error) {
	raw, err := r.c.rdb.HGet(ctx, r.c.profilesKey(tenant), string(p)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, pairing.ErrNotFound
	}
	if err != nil {
		return nil, wrap("get profile", err)
	}
	var prof pairing.Profile
	if err := json.Unmarshal([]byte(raw), &prof); err != nil {
		return nil, fmt.Errorf("redis: decode profile: %w", err)
	}
	return &prof, nil
}

func (r *profileRepo) Upsert(ctx context.Context, prof pairing.Profile) error {
	if err := pairing.ValidateIDs(prof.Tenant, prof.Participant); err != nil {
		return err
	}
	if prof.Attributes == nil {
		prof.Attributes = map[string]string{}
	}
	prof.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(prof)
	if err != nil {
		return fmt.Errorf("redis: encode profile: %w", err)
	}
	return wrap("upsert profile", r.c.rdb.HSet(ctx, r.c.profilesKey(prof.Tenant), string(prof.Participant), raw).Err())
}

func (r *profileRepo) Delete(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) error {
	return wrap("delete profile", r.c.rdb.HDel(ctx, r.c.profilesKey(tenant), string(p)).Err())
}
