// Package audit emite eventos de auditoría estructurados.
// Hoy van al logger con component=audit; un sink durable puede
// enchufarse reemplazando Sink.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/hellopair/internal/observability/logger"
)

// Eventos conocidos.
const (
	EventOptIn            = "optin.created"
	EventOptInUpdated     = "optin.updated"
	EventOptOut           = "optin.removed"
	EventGroupingNotified = "grouping.notified"
	EventGroupingFailed   = "grouping.failed"
	EventProfileUpdated   = "profile.updated"
	EventProfileDeleted   = "profile.deleted"
	EventSweepTriggered   = "sweep.triggered"
)

// Sink recibe los eventos. Por defecto escribe en el logger del contexto.
var Sink = func(ctx context.Context, event string, fields []zap.Field) {
	logger.From(ctx).Info("audit", fields...)
}

// Log escribe un evento de auditoría.
func Log(ctx context.Context, event string, fields map[string]any) {
	zf := make([]zap.Field, 0, len(fields)+3)
	zf = append(zf,
		logger.Component("audit"),
		zap.String("event", event),
		zap.String("ts", time.Now().UTC().Format(time.RFC3339Nano)),
	)
	for k, v := range fields {
		zf = append(zf, zap.Any(k, v))
	}
	Sink(ctx, event, zf)
}
