// Package profiles contiene el service del Profile Store expuesto por la API.
package profiles

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/hellopair/internal/audit"
	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/observability/logger"
)

const (
	maxAttributes  = 64
	maxKeyLength   = 64
	maxValueLength = 1024
)

// IdentityInvalidator descarta identidades cacheadas (directory.Cached).
type IdentityInvalidator interface {
	Invalidate(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) error
}

// Deps del service.
type Deps struct {
	Profiles    pairing.ProfileRepository
	Invalidator IdentityInvalidator // opcional
}

// Service define las operaciones de perfiles.
type Service interface {
	Get(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) (*pairing.Profile, error)
	Upsert(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID, attrs map[string]string) (*pairing.Profile, error)
	Delete(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) error
}

type service struct {
	deps Deps
}

func NewService(deps Deps) Service {
	return &service{deps: deps}
}

func (s *service) Get(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) (*pairing.Profile, error) {
	if err := pairing.ValidateIDs(tenant, p); err != nil {
		return nil, err
	}
	return s.deps.Profiles.Get(ctx, tenant, p)
}

func (s *service) Upsert(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID, attrs map[string]string) (*pairing.Profile, error) {
	if err := pairing.ValidateIDs(tenant, p); err != nil {
		return nil, err
	}
	clean, err := normalizeAttributes(attrs)
	if err != nil {
		return nil, err
	}
	prof := pairing.Profile{
		Tenant:      tenant,
		Participant: p,
		Attributes:  clean,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := s.deps.Profiles.Upsert(ctx, prof); err != nil {
		return nil, err
	}
	s.invalidate(ctx, tenant, p)
	audit.Log(ctx, audit.EventProfileUpdated, map[string]any{"tenant_id": string(tenant), "participant_id": string(p)})
	return &prof, nil
}

func (s *service) Delete(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) error {
	if err := pairing.ValidateIDs(tenant, p); err != nil {
		return err
	}
	if err := s.deps.Profiles.Delete(ctx, tenant, p); err != nil {
		return err
	}
	s.invalidate(ctx, tenant, p)
	audit.Log(ctx, audit.EventProfileDeleted, map[string]any{"tenant_id": string(tenant), "participant_id": string(p)})
	return nil
}

func (s *service) invalidate(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) {
	if s.deps.Invalidator == nil {
		return
	}
	if err := s.deps.Invalidator.Invalidate(ctx, tenant, p); err != nil {
		logger.From(ctx).Warn("identity cache invalidation failed",
			logger.Component("profiles"), logger.TenantID(tenant), logger.ParticipantID(p), logger.Err(err))
	}
}

// normalizeAttributes recorta claves/valores y descarta valores vacíos.
func normalizeAttributes(attrs map[string]string) (map[string]string, error) {
	if len(attrs) > maxAttributes {
		return nil, fmt.Errorf("%w: at most %d attributes", pairing.ErrInvalidInput, maxAttributes)
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k == "" || len(k) > maxKeyLength {
			return nil, fmt.Errorf("%w: invalid attribute key %q", pairing.ErrInvalidInput, k)
		}
		if len(v) > maxValueLength {
			return nil, fmt.Errorf("%w: attribute %q too long", pairing.ErrInvalidInput, k)
		}
		if v == "" {
			continue
		}
		out[k] = v
	}
	return out, nil
}
