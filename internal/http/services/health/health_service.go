// Package health contiene el service para health checks.
package health

import (
	"context"
	"time"

	"github.com/dropDatabas3/hellopair/internal/observability/logger"
)

// Check verifica un componente. nil = sano.
type Check func(ctx context.Context) error

// Response es el cuerpo de /readyz.
type Response struct {
	Status     string            `json:"status"` // ready | unavailable
	Version    string            `json:"version,omitempty"`
	Components map[string]string `json:"components"`
	LastSweep  *time.Time        `json:"last_sweep,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Deps contiene las dependencias inyectables.
type Deps struct {
	Version string
	Checks  map[string]Check
	// LastSweep retorna el inicio del último sweep (opcional).
	LastSweep func() *time.Time
	Timeout   time.Duration
}

// HealthService define las operaciones de health check.
type HealthService interface {
	Check(ctx context.Context) Response
}

type healthService struct {
	deps Deps
}

func NewHealthService(deps Deps) HealthService {
	if deps.Timeout <= 0 {
		deps.Timeout = 2 * time.Second
	}
	return &healthService{deps: deps}
}

func (s *healthService) Check(ctx context.Context) Response {
	log := logger.From(ctx).With(logger.Component("health"), logger.Op("Check"))

	resp := Response{
		Status:     "ready",
		Version:    s.deps.Version,
		Components: make(map[string]string, len(s.deps.Checks)),
		Timestamp:  time.Now().UTC(),
	}
	for name, check := range s.deps.Checks {
		cctx, cancel := context.WithTimeout(ctx, s.deps.Timeout)
		err := check(cctx)
		cancel()
		if err != nil {
			resp.Status = "unavailable"
			resp.Components[name] = "down"
			log.Warn("component unhealthy", logger.String("component_name", name), logger.Err(err))
			continue
		}
		resp.Components[name] = "ok"
	}
	if s.deps.LastSweep != nil {
		resp.LastSweep = s.deps.LastSweep()
	}
	return resp
}
