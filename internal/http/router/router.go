// Package router arma el router chi de la API de admin.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/hellopair/internal/domain/pairing"
	healthctrl "github.com/dropDatabas3/hellopair/internal/http/controllers/health"
	historyctrl "github.com/dropDatabas3/hellopair/internal/http/controllers/history"
	optinsctrl "github.com/dropDatabas3/hellopair/internal/http/controllers/optins"
	profilesctrl "github.com/dropDatabas3/hellopair/internal/http/controllers/profiles"
	runsctrl "github.com/dropDatabas3/hellopair/internal/http/controllers/runs"
	"github.com/dropDatabas3/hellopair/internal/http/errors"
	mw "github.com/dropDatabas3/hellopair/internal/http/middlewares"
	healthsvc "github.com/dropDatabas3/hellopair/internal/http/services/health"
	optinssvc "github.com/dropDatabas3/hellopair/internal/http/services/optins"
	profilessvc "github.com/dropDatabas3/hellopair/internal/http/services/profiles"
)

// Deps contiene todas las dependencias del router.
type Deps struct {
	OptIns   pairing.OptInRepository
	History  pairing.HistoryRepository
	Profiles pairing.ProfileRepository

	// Welcomer nil deshabilita el mensaje de bienvenida.
	Welcomer    optinssvc.Welcomer
	Invalidator profilessvc.IdentityInvalidator

	Sweeper    runsctrl.Sweeper
	Runner     runsctrl.TenantRunner
	RunTimeout time.Duration

	Health healthsvc.Deps

	// AdminKey vacío deja /v1 abierto (dev).
	AdminKey string
	// Metrics handler de /metrics; nil usa promhttp.Handler().
	Metrics http.Handler
}

// New construye el handler HTTP.
func New(deps Deps) http.Handler {
	health := healthctrl.NewHealthController(healthsvc.NewHealthService(deps.Health))
	optins := optinsctrl.NewOptInsController(optinssvc.NewService(optinssvc.Deps{
		OptIns:   deps.OptIns,
		Welcomer: deps.Welcomer,
	}))
	history := historyctrl.NewHistoryController(deps.History)
	runs := runsctrl.NewRunsController(deps.Sweeper, deps.Runner, deps.RunTimeout)

	metricsHandler := deps.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(mw.WithRequestID(), mw.WithRecover(), mw.WithMetrics())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		errors.WriteError(w, errors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		errors.WriteError(w, errors.ErrMethodNotAllowed)
	})

	// Sin logging: muy frecuentes.
	r.Get("/readyz", health.Readyz)
	r.Handle("/metrics", metricsHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.WithLogging(), mw.RequireAdminKey(deps.AdminKey))

		r.Post("/sweeps", runs.Sweep)

		r.Route("/tenants/{tenant}", func(r chi.Router) {
			r.Post("/runs", runs.RunTenant)

			r.Get("/optins", optins.List)
			r.Get("/optins/{participant}", optins.Get)
			r.Put("/optins/{participant}", optins.Put)
			r.Delete("/optins/{participant}", optins.Delete)

			r.Get("/history", history.List)

			if deps.Profiles != nil {
				profiles := profilesctrl.NewProfilesController(profilessvc.NewService(profilessvc.Deps{
					Profiles:    deps.Profiles,
					Invalidator: deps.Invalidator,
				}))
				r.Get("/profiles/{participant}", profiles.Get)
				r.Put("/profiles/{participant}", profiles.Put)
				r.Delete("/profiles/{participant}", profiles.Delete)
			}
		})
	})

	return r
}
