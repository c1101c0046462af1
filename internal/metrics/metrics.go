// Package metrics define los collectors Prometheus del dominio de pairing.
// Vive aparte de internal/http para que scheduler y dispatch lo usen sin ciclos.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	SweepsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hellopair_sweeps_total",
		Help: "Sweeps ejecutados por trigger (tick|manual)",
	}, []string{"trigger"})

	SweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hellopair_sweep_duration_seconds",
		Help:    "Duración de un sweep completo",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	})

	TenantRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hellopair_tenant_runs_total",
		Help: "Corridas por tenant según outcome (matched|insufficient_population|fully_saturated|exhausted|error|skipped)",
	}, []string{"outcome"})

	GroupingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hellopair_groupings_total",
		Help: "Grupos emitidos por tamaño",
	}, []string{"size"})

	NotificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hellopair_notifications_total",
		Help: "Notificaciones por resultado (delivered|failed)",
	}, []string{"result"})

	IdentityLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hellopair_identity_lookups_total",
		Help: "Resoluciones de identidad por resultado (hit|miss|error)",
	}, []string{"result"})
)

// Register registra los collectors (o en el default si reg es nil).
// Registrar dos veces no es error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		SweepsTotal, SweepDuration, TenantRunsTotal,
		GroupingsTotal, NotificationsTotal, IdentityLookupsTotal,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// ObserveSweep registra un sweep terminado.
func ObserveSweep(trigger string, d time.Duration) {
	SweepsTotal.WithLabelValues(trigger).Inc()
	SweepDuration.Observe(d.Seconds())
}

// ObserveTenantRun registra el outcome de la corrida de un tenant.
func ObserveTenantRun(outcome string) {
	TenantRunsTotal.WithLabelValues(outcome).Inc()
}

// ObserveGrouping registra un grupo emitido.
func ObserveGrouping(size int) {
	GroupingsTotal.WithLabelValues(strconv.Itoa(size)).Inc()
}

// ObserveNotification registra el resultado de un envío.
func ObserveNotification(delivered bool) {
	if delivered {
		NotificationsTotal.WithLabelValues("delivered").Inc()
		return
	}
	NotificationsTotal.WithLabelValues("failed").Inc()
}

// ObserveIdentityLookup registra una resolución de identidad.
func ObserveIdentityLookup(result string) {
	IdentityLookupsTotal.WithLabelValues(result).Inc()
}
