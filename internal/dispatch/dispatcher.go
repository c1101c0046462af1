// Package dispatch entrega las notificaciones de los grupos de una corrida.
//
// Por grupo: resuelve identidades (best-effort), compone el contenido con
// el Profile Store (best-effort), espera el rate limit del tenant, envía
// una notificación y, si se entregó, borra los opt-ins de los miembros.
// Si falla el envío los opt-ins quedan intactos (at-least-once).
package dispatch

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/hellopair/internal/audit"
	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/metrics"
	"github.com/dropDatabas3/hellopair/internal/observability/logger"
	"github.com/dropDatabas3/hellopair/internal/rate"
)

// Report resume el resultado del dispatch de una corrida.
type Report struct {
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

// Options configura el Dispatcher.
type Options struct {
	Directory pairing.Directory
	Notifier  pairing.Notifier
	Profiles  pairing.ProfileRepository // opcional
	OptIns    pairing.OptInRepository
	Limiter   rate.Limiter // nil = sin límite
	// KeepOptIn deja a los miembros elegibles tras una entrega exitosa.
	KeepOptIn bool
	// ResolveTimeout acota cada lookup de identidad/perfil.
	ResolveTimeout time.Duration
}

// Dispatcher notifica grupos.
type Dispatcher struct {
	opts Options
}

func New(opts Options) *Dispatcher {
	if opts.Limiter == nil {
		opts.Limiter = rate.Unlimited{}
	}
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = 5 * time.Second
	}
	return &Dispatcher{opts: opts}
}

// Dispatch notifica cada grupo. Un fallo en un grupo no afecta a los demás.
func (d *Dispatcher) Dispatch(ctx context.Context, groupings []pairing.Grouping) Report {
	var rep Report
	for _, g := range groupings {
		if err := d.dispatchOne(ctx, g); err != nil {
			rep.Failed++
			metrics.ObserveNotification(false)
			logger.From(ctx).Warn("grouping notification failed",
				logger.Component("dispatch"),
				logger.TenantID(g.Tenant),
				logger.Participants(g.Members),
				logger.Err(err),
			)
			audit.Log(ctx, audit.EventGroupingFailed, map[string]any{
				"tenant_id":    string(g.Tenant),
				"participants": g.MemberStrings(),
				"error":        err.Error(),
			})
			continue
		}
		rep.Delivered++
		metrics.ObserveNotification(true)
		audit.Log(ctx, audit.EventGroupingNotified, map[string]any{
			"tenant_id":    string(g.Tenant),
			"participants": g.MemberStrings(),
		})
	}
	return rep
}

func (d *Dispatcher) dispatchOne(ctx context.Context, g pairing.Grouping) error {
	log := logger.From(ctx).With(logger.Component("dispatch"), logger.TenantID(g.Tenant))

	members := make([]Member, len(g.Members))
	identities := make(map[pairing.ParticipantID]pairing.Identity, len(g.Members))
	for i, p := range g.Members {
		members[i] = d.resolve(ctx, log, g.Tenant, p)
		identities[p] = members[i].Identity
	}

	if err := rate.Wait(ctx, d.opts.Limiter, rate.NotifyKey(string(g.Tenant))); err != nil {
		return err
	}

	msg := pairing.Message{
		Tenant:     g.Tenant,
		Targets:    g.Members,
		Identities: identities,
		Subject:    "You've been paired!",
		Text:       Compose(members),
	}
	if err := d.opts.Notifier.Send(ctx, msg); err != nil {
		return err
	}

	if d.opts.KeepOptIn {
		return nil
	}
	for _, p := range g.Members {
		if err := d.opts.OptIns.OptOut(ctx, g.Tenant, p); err != nil {
			// La arista ya existe: no se repite el par aunque siga elegible.
			log.Warn("opt-out after delivery failed", logger.ParticipantID(p), logger.Err(err))
		}
	}
	return nil
}

func (d *Dispatcher) resolve(ctx context.Context, log *zap.Logger, tenant pairing.TenantID, p pairing.ParticipantID) Member {
	m := Member{ID: p, Identity: pairing.Identity{DisplayName: Placeholder}}

	rctx, cancel := context.WithTimeout(ctx, d.opts.ResolveTimeout)
	defer cancel()

	if d.opts.Directory != nil {
		id, err := d.opts.Directory.Resolve(rctx, tenant, p)
		if err != nil {
			log.Warn("identity lookup failed, using placeholder", logger.ParticipantID(p), logger.Err(err))
		} else if id.DisplayName != "" {
			m.Identity = id
		}
	}

	if d.opts.Profiles != nil {
		prof, err := d.opts.Profiles.Get(rctx, tenant, p)
		switch {
		case err == nil:
			m.Profile = prof
		case !pairing.IsNotFound(err):
			log.Debug("profile lookup failed", logger.ParticipantID(p), logger.Err(err))
		}
	}
	return m
}

// Welcome envía el mensaje de bienvenida a un participante recién inscripto.
func (d *Dispatcher) Welcome(ctx context.Context, tenant pairing.TenantID, p pairing.ParticipantID) error {
	log := logger.From(ctx).With(logger.Component("dispatch"), logger.TenantID(tenant))
	m := d.resolve(ctx, log, tenant, p)
	name := m.Identity.DisplayName
	if name == Placeholder {
		name = ""
	}
	return d.opts.Notifier.Send(ctx, pairing.Message{
		Tenant:     tenant,
		Targets:    []pairing.ParticipantID{p},
		Identities: map[pairing.ParticipantID]pairing.Identity{p: m.Identity},
		Subject:    "Welcome to hellopair",
		Text:       Welcome(name),
	})
}
