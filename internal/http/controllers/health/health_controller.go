// Package health contiene el controller de health checks.
package health

import (
	"net/http"

	"github.com/dropDatabas3/hellopair/internal/http/helpers"
	svc "github.com/dropDatabas3/hellopair/internal/http/services/health"
	"github.com/dropDatabas3/hellopair/internal/observability/logger"
)

// HealthController maneja GET /readyz.
type HealthController struct {
	service svc.HealthService
}

func NewHealthController(service svc.HealthService) *HealthController {
	return &HealthController{service: service}
}

// Readyz maneja GET /readyz
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	resp := c.service.Check(r.Context())
	if resp.Version != "" {
		w.Header().Set("X-Service-Version", resp.Version)
	}

	status := http.StatusOK
	if resp.Status == "unavailable" {
		status = http.StatusServiceUnavailable
	}
	logger.From(r.Context()).Debug("health check completed",
		logger.String("status", resp.Status),
		logger.Int("components_count", len(resp.Components)),
	)
	helpers.WriteJSON(w, status, resp)
}
