// Package optins contiene el service del Opt-in Registry expuesto por la API.
package optins

import (
	"context"
	"time"

	"github.com/dropDatabas3/hellopair/internal/audit"
	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/observability/logger"
)

// Welcomer envía el mensaje de bienvenida.
type Welcomer interface {
	Welcome(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) error
}

// Deps del service.
type Deps struct {
	OptIns   pairing.OptInRepository
	Welcomer Welcomer // nil deshabilita la bienvenida
}

// Service define las operaciones de opt-in.
type Service interface {
	OptIn(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID, annotation string) (*pairing.OptInRecord, bool, error)
	OptOut(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) error
	Get(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) (*pairing.OptInRecord, error)
	List(ctx context.Context, tenant pairing.TenantID) ([]pairing.ParticipantID, error)
}

type service struct {
	deps Deps
}

func NewService(deps Deps) Service {
	return &service{deps: deps}
}

const welcomeTimeout = 10 * time.Second

func (s *service) OptIn(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID, annotation string) (*pairing.OptInRecord, bool, error) {
	if err := pairing.ValidateIDs(tenant, p); err != nil {
		return nil, false, err
	}
	created, err := s.deps.OptIns.OptIn(ctx, tenant, p, annotation)
	if err != nil {
		return nil, false, err
	}
	rec, err := s.deps.OptIns.Get(ctx, tenant, p)
	if err != nil {
		return nil, false, err
	}

	event := audit.EventOptInUpdated
	if created {
		event = audit.EventOptIn
	}
	audit.Log(ctx, event, map[string]any{"tenant_id": string(tenant), "participant_id": string(p)})

	if created && s.deps.Welcomer != nil {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), welcomeTimeout)
		defer cancel()
		if err := s.deps.Welcomer.Welcome(wctx, tenant, p); err != nil {
			logger.From(ctx).Warn("welcome message failed",
				logger.Component("optins"), logger.TenantID(tenant), logger.ParticipantID(p), logger.Err(err))
		}
	}
	return rec, created, nil
}

func (s *service) OptOut(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) error {
	if err := pairing.ValidateIDs(tenant, p); err != nil {
		return err
	}
	if err := s.deps.OptIns.OptOut(ctx, tenant, p); err != nil {
		return err
	}
	audit.Log(ctx, audit.EventOptOut, map[string]any{"tenant_id": string(tenant), "participant_id": string(p)})
	return nil
}

func (s *service) Get(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) (*pairing.OptInRecord, error) {
	if err := pairing.ValidateIDs(tenant, p); err != nil {
		return nil, err
	}
	return s.deps.OptIns.Get(ctx, tenant, p)
}

func (s *service) List(ctx context.Context, tenant pairing.TenantID) ([]pairing.ParticipantID, error) {
	if err := pairing.ValidateIDs(tenant); err != nil {
		return nil, err
	}
	ps, err := s.deps.OptIns.ListEligible(ctx, tenant)
	if err != nil {
		return nil, err
	}
	pairing.SortParticipants(ps)
	return ps, nil
}
