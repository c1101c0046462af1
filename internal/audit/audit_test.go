package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dropDatabas3/hellopair/internal/observability/logger"
)

func TestLog_WritesStructuredEvent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core))

	Log(ctx, EventOptIn, map[string]any{"tenant_id": "T1", "participant_id": "U1"})

	entries := logs.FilterMessage("audit").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, EventOptIn, fields["event"])
	require.Equal(t, "T1", fields["tenant_id"])
	require.Equal(t, "audit", fields["component"])
}
