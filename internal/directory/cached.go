package directory

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/hellopair/internal/cache"
	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/metrics"
	"github.com/dropDatabas3/hellopair/internal/observability/logger"
)

// Cached guarda identidades resueltas y colapsa lookups concurrentes
// del mismo participante. Los errores no se cachean.
type Cached struct {
	next  pairing.Directory
	cache cache.Client
	ttl   time.Duration
	group singleflight.Group
}

// NewCached decora next. ttl 0 usa el TTL por defecto del cliente.
func NewCached(next pairing.Directory, c cache.Client, ttl time.Duration) *Cached {
	return &Cached{next: next, cache: c, ttl: ttl}
}

func identityKey(tenant pairing.TenantID, p pairing.ParticipantID) string {
	return "identity:" + string(tenant) + ":" + string(p)
}

func (d *Cached) Resolve(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) (pairing.Identity, error) {
	key := identityKey(tenant, p)

	if raw, err := d.cache.Get(ctx, key); err == nil {
		var id pairing.Identity
		if json.Unmarshal([]byte(raw), &id) == nil {
			metrics.ObserveIdentityLookup("hit")
			return id, nil
		}
	} else if !cache.IsNotFound(err) {
		logger.From(ctx).Warn("identity cache read failed", logger.Component("directory"), logger.Err(err))
	}

	v, err, _ := d.group.Do(key, func() (any, error) {
		id, err := d.next.Resolve(ctx, tenant, p)
		if err != nil {
			return pairing.Identity{}, err
		}
		if raw, mErr := json.Marshal(id); mErr == nil {
			if sErr := d.cache.Set(ctx, key, string(raw), d.ttl); sErr != nil {
				logger.From(ctx).Warn("identity cache write failed", logger.Component("directory"), logger.Err(sErr))
			}
		}
		return id, nil
	})
	if err != nil {
		metrics.ObserveIdentityLookup("error")
		return pairing.Identity{}, err
	}
	metrics.ObserveIdentityLookup("miss")
	return v.(pairing.Identity), nil
}

// Invalidate descarta la identidad cacheada (p.ej. tras editar el perfil).
func (d *Cached) Invalidate(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) error {
	err := d.cache.Delete(ctx, identityKey(tenant, p))
	if err != nil && !cache.IsNotFound(err) {
		return err
	}
	return nil
}
