// Package runs contiene el controller de disparos manuales (sweep y tenant).
package runs

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/hellopair/internal/audit"
	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/http/errors"
	"github.com/dropDatabas3/hellopair/internal/http/helpers"
	"github.com/dropDatabas3/hellopair/internal/http/middlewares"
	"github.com/dropDatabas3/hellopair/internal/observability/logger"
	runner "github.com/dropDatabas3/hellopair/internal/pairing"
	"github.com/dropDatabas3/hellopair/internal/scheduler"
)

// Sweeper dispara un sweep manual.
type Sweeper interface {
	TriggerSweep(ctx context.Context) (scheduler.SweepReport, error)
}

// TenantRunner corre la ronda de un tenant.
type TenantRunner interface {
	RunTenant(ctx context.Context, tenant pairing.TenantID) (runner.TenantReport, error)
}

// RunsController maneja POST /v1/sweeps y POST /v1/tenants/{tenant}/runs.
type RunsController struct {
	sweeper Sweeper
	runner  TenantRunner
	timeout time.Duration
}

// NewRunsController crea el controller. timeout acota cada corrida manual.
func NewRunsController(sweeper Sweeper, r TenantRunner, timeout time.Duration) *RunsController {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &RunsController{sweeper: sweeper, runner: r, timeout: timeout}
}

// Sweep maneja POST /v1/sweeps. Bloquea hasta que termine el sweep (que
// espera al que esté en curso).
func (c *RunsController) Sweep(w http.ResponseWriter, r *http.Request) {
	if c.sweeper == nil {
		errors.WriteError(w, errors.ErrNotImplemented.WithDetail("scheduler disabled"))
		return
	}
	audit.Log(r.Context(), audit.EventSweepTriggered, map[string]any{"request_id": middlewares.GetRequestID(r.Context())})

	rep, err := c.sweeper.TriggerSweep(r.Context())
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, rep)
}

// RunTenant maneja POST /v1/tenants/{tenant}/runs
func (c *RunsController) RunTenant(w http.ResponseWriter, r *http.Request) {
	if c.runner == nil {
		errors.WriteError(w, errors.ErrNotImplemented.WithDetail("runner disabled"))
		return
	}
	tenant, err := helpers.Tenant(r)
	if err != nil {
		errors.WriteError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), c.timeout)
	defer cancel()

	rep, err := c.runner.RunTenant(ctx, tenant)
	if err != nil {
		logger.From(r.Context()).Warn("manual tenant run failed", logger.TenantID(tenant), logger.Err(err))
		errors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, rep)
}
