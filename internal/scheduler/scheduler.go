// Package scheduler dispara sweeps periódicos: en cada tick lista los
// tenants con opt-ins y corre el matching de cada uno con concurrencia
// acotada. Los sweeps nunca se solapan (ticks y disparos manuales
// comparten sweepMu).
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	domain "github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/metrics"
	"github.com/dropDatabas3/hellopair/internal/observability/logger"
	"github.com/dropDatabas3/hellopair/internal/observability/tracing"
	"github.com/dropDatabas3/hellopair/internal/pairing"
)

// Triggers de un sweep.
const (
	TriggerTick   = "tick"
	TriggerStart  = "start"
	TriggerManual = "manual"
)

// TenantLister lista los tenants a barrer.
type TenantLister interface {
	ListTenants(ctx context.Context) ([]domain.TenantID, error)
}

// TenantRunner corre la ronda de un tenant.
type TenantRunner interface {
	RunTenant(ctx context.Context, tenant domain.TenantID) (pairing.TenantReport, error)
}

// Config del scheduler.
type Config struct {
	Interval      time.Duration
	TenantTimeout time.Duration
	Concurrency   int
	RunOnStart    bool
}

// SweepReport resume un sweep.
type SweepReport struct {
	SweepID   string                 `json:"sweep_id"`
	Trigger   string                 `json:"trigger"`
	StartedAt time.Time              `json:"started_at"`
	Duration  time.Duration          `json:"duration"`
	Tenants   []pairing.TenantReport `json:"tenants"`
	Failed    int                    `json:"failed"`
	Error     string                 `json:"error,omitempty"`
}

// Scheduler ejecuta sweeps.
type Scheduler struct {
	lister TenantLister
	runner TenantRunner
	cfg    Config
	tracer trace.Tracer

	sweepMu sync.Mutex

	lastMu sync.RWMutex
	last   *SweepReport
}

func New(lister TenantLister, runner TenantRunner, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 7 * 24 * time.Hour
	}
	if cfg.TenantTimeout <= 0 {
		cfg.TenantTimeout = time.Minute
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Scheduler{lister: lister, runner: runner, cfg: cfg, tracer: tracing.Tracer()}
}

// Run bloquea hasta que ctx se cancele. El sweep en curso termina
// aunque ctx se cancele a mitad.
func (s *Scheduler) Run(ctx context.Context) error {
	log := logger.From(ctx).With(logger.Component("scheduler"))
	log.Info("scheduler started",
		logger.Duration(s.cfg.Interval),
		logger.Int("concurrency", s.cfg.Concurrency),
		logger.Bool("run_on_start", s.cfg.RunOnStart),
	)

	if s.cfg.RunOnStart && ctx.Err() == nil {
		_, _ = s.Sweep(ctx, TriggerStart)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.loop(ctx, ticker.C)
	log.Info("scheduler stopped")
	return nil
}

// loop dispara un sweep por tick hasta que ctx se cancele. Un tick que
// llega junto con la cancelación no arranca un sweep nuevo.
func (s *Scheduler) loop(ctx context.Context, ticks <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			if ctx.Err() != nil {
				return
			}
			_, _ = s.Sweep(ctx, TriggerTick)
		}
	}
}

// TriggerSweep corre un sweep manual; espera a que termine el sweep en curso.
func (s *Scheduler) TriggerSweep(ctx context.Context) (SweepReport, error) {
	return s.Sweep(ctx, TriggerManual)
}

// LastSweep retorna el último sweep completado (nil si no hubo).
func (s *Scheduler) LastSweep() *SweepReport {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	if s.last == nil {
		return nil
	}
	cp := *s.last
	return &cp
}

// Sweep barre todos los tenants. Un fallo de tenant se loguea y cuenta,
// nunca cancela a los demás.
func (s *Scheduler) Sweep(ctx context.Context, trigger string) (SweepReport, error) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	ctx = context.WithoutCancel(ctx)
	rep := SweepReport{SweepID: uuid.NewString(), Trigger: trigger, StartedAt: time.Now().UTC()}

	ctx, span := s.tracer.Start(ctx, "scheduler.Sweep", trace.WithAttributes(
		attribute.String("sweep_id", rep.SweepID),
		attribute.String("trigger", trigger),
	))
	defer span.End()

	ctx, log := logger.WithFields(ctx, logger.SweepID(rep.SweepID))
	log = log.With(logger.Component("scheduler"))

	defer func() {
		rep.Duration = time.Since(rep.StartedAt)
		metrics.ObserveSweep(trigger, rep.Duration)
		s.lastMu.Lock()
		cp := rep
		s.last = &cp
		s.lastMu.Unlock()
	}()

	tenants, err := s.lister.ListTenants(ctx)
	if err != nil {
		err = fmt.Errorf("scheduler: list tenants: %w", domain.Unavailable(err))
		rep.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "list tenants")
		log.Error("sweep aborted", logger.Err(err))
		return rep, err
	}
	log.Info("sweep started", logger.String("trigger", trigger), logger.Count(len(tenants)))

	reports := make([]pairing.TenantReport, len(tenants))
	failed := make([]bool, len(tenants))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, tenant := range tenants {
		g.Go(func() error {
			tctx, cancel := context.WithTimeout(ctx, s.cfg.TenantTimeout)
			defer cancel()

			tr, err := s.runTenant(tctx, tenant)
			reports[i] = tr
			if err != nil {
				failed[i] = true
				log.Warn("tenant skipped", logger.TenantID(tenant), logger.Err(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	rep.Tenants = reports
	for _, f := range failed {
		if f {
			rep.Failed++
		}
	}
	span.SetAttributes(attribute.Int("tenants", len(tenants)), attribute.Int("failed", rep.Failed))
	log.Info("sweep finished",
		logger.Count(len(tenants)),
		logger.Int("failed", rep.Failed),
		logger.Duration(time.Since(rep.StartedAt)),
	)
	return rep, nil
}

// runTenant aísla panics de un tenant del resto del sweep.
func (s *Scheduler) runTenant(ctx context.Context, tenant domain.TenantID) (rep pairing.TenantReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scheduler: tenant run panicked: %v", r)
			rep = pairing.TenantReport{Tenant: tenant, Outcome: pairing.OutcomeError, Error: err.Error()}
		}
	}()
	return s.runner.RunTenant(ctx, tenant)
}
