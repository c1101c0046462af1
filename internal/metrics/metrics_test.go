package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRegister_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}

func TestObserve(t *testing.T) {
	before := testutil.ToFloat64(GroupingsTotal.WithLabelValues("3"))
	ObserveGrouping(3)
	require.Equal(t, before+1, testutil.ToFloat64(GroupingsTotal.WithLabelValues("3")))

	beforeFailed := testutil.ToFloat64(NotificationsTotal.WithLabelValues("failed"))
	ObserveNotification(false)
	require.Equal(t, beforeFailed+1, testutil.ToFloat64(NotificationsTotal.WithLabelValues("failed")))

	beforeManual := testutil.ToFloat64(SweepsTotal.WithLabelValues("manual"))
	ObserveSweep("manual", 10*time.Millisecond)
	require.Equal(t, beforeManual+1, testutil.ToFloat64(SweepsTotal.WithLabelValues("manual")))
}
