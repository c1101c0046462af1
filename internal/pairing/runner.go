// Package pairing orquesta la corrida de un tenant: lock, foto de
// elegibles, Matching Engine y Notification Dispatcher.
package pairing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dropDatabas3/hellopair/internal/dispatch"
	domain "github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/lock"
	"github.com/dropDatabas3/hellopair/internal/matching"
	"github.com/dropDatabas3/hellopair/internal/metrics"
	"github.com/dropDatabas3/hellopair/internal/observability/logger"
	"github.com/dropDatabas3/hellopair/internal/observability/tracing"
)

// OutcomeError es el outcome de métricas para corridas que fallaron.
const OutcomeError = "error"

// TenantReport es el resultado de una corrida.
type TenantReport struct {
	Tenant    domain.TenantID        `json:"tenant"`
	Outcome   string                 `json:"outcome"`
	Eligible  int                    `json:"eligible"`
	Groupings []domain.Grouping      `json:"groupings"`
	Residue   []domain.ParticipantID `json:"residue"`
	Dispatch  dispatch.Report        `json:"dispatch"`
	Duration  time.Duration          `json:"duration"`
	Error     string                 `json:"error,omitempty"`
}

// Dispatcher es lo que el Runner necesita del dispatch.
type Dispatcher interface {
	Dispatch(ctx context.Context, groupings []domain.Grouping) dispatch.Report
}

// Runner ejecuta corridas por tenant.
type Runner struct {
	optIns     domain.OptInRepository
	engine     *matching.Engine
	dispatcher Dispatcher
	locker     lock.Locker
	tracer     trace.Tracer
}

func NewRunner(optIns domain.OptInRepository, engine *matching.Engine, d Dispatcher, locker lock.Locker) *Runner {
	if locker == nil {
		locker = lock.NewMemory()
	}
	return &Runner{
		optIns:     optIns,
		engine:     engine,
		dispatcher: d,
		locker:     locker,
		tracer:     tracing.Tracer(),
	}
}

// RunTenant corre el matching de un tenant bajo su lock.
// Los grupos ya comprometidos se notifican aunque la corrida falle después.
func (r *Runner) RunTenant(ctx context.Context, tenant domain.TenantID) (rep TenantReport, err error) {
	start := time.Now()
	rep = TenantReport{Tenant: tenant}

	ctx, span := r.tracer.Start(ctx, "pairing.RunTenant", trace.WithAttributes(attribute.String("tenant_id", string(tenant))))
	ctx, log := logger.WithFields(ctx, logger.TenantID(tenant))
	log = log.With(logger.Component("runner"))

	defer func() {
		rep.Duration = time.Since(start)
		if err != nil {
			rep.Outcome = OutcomeError
			rep.Error = err.Error()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.ObserveTenantRun(rep.Outcome)
		span.SetAttributes(attribute.String("outcome", rep.Outcome), attribute.Int("groupings", len(rep.Groupings)))
		span.End()
	}()

	if err := domain.ValidateIDs(tenant); err != nil {
		return rep, err
	}

	release, err := r.locker.Acquire(ctx, lock.TenantKey(string(tenant)))
	if err != nil {
		return rep, fmt.Errorf("runner: acquire tenant lock: %w", err)
	}
	defer release()

	eligible, err := r.optIns.ListEligible(ctx, tenant)
	if err != nil {
		return rep, fmt.Errorf("runner: list eligible: %w", domain.Unavailable(err))
	}
	rep.Eligible = len(eligible)

	res, runErr := r.engine.Run(ctx, tenant, eligible)
	rep.Outcome = string(res.Outcome)
	rep.Groupings = res.Groupings
	rep.Residue = res.Residue
	for _, g := range res.Groupings {
		metrics.ObserveGrouping(g.Size())
	}

	if len(res.Groupings) > 0 && r.dispatcher != nil {
		rep.Dispatch = r.dispatcher.Dispatch(ctx, res.Groupings)
	}

	if runErr != nil {
		log.Warn("tenant run failed", logger.Count(len(res.Groupings)), logger.Err(runErr))
		return rep, fmt.Errorf("runner: %w", runErr)
	}

	log.Info("tenant run finished",
		logger.Outcome(rep.Outcome),
		logger.Int("eligible", rep.Eligible),
		logger.Count(len(rep.Groupings)),
		logger.Int("delivered", rep.Dispatch.Delivered),
		logger.Int("failed", rep.Dispatch.Failed),
		logger.Duration(time.Since(start)),
	)
	return rep, nil
}
