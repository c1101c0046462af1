package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/dropDatabas3/hellopair/internal/domain/pairing"
	"github.com/dropDatabas3/hellopair/internal/pairing"
)

type staticLister struct {
	tenants []domain.TenantID
	err     error
}

func (l staticLister) ListTenants(context.Context) ([]domain.TenantID, error) {
	return l.tenants, l.err
}

type fakeRunner struct {
	delay   time.Duration
	failFor domain.TenantID
	panicOn domain.TenantID

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	calls       atomic.Int32
	ctxErrs     atomic.Int32
}

func (r *fakeRunner) RunTenant(ctx context.Context, tenant domain.TenantID) (pairing.TenantReport, error) {
	r.calls.Add(1)
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		m := r.maxInFlight.Load()
		if n <= m || r.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	if tenant == r.panicOn {
		panic("boom")
	}
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		r.ctxErrs.Add(1)
		return pairing.TenantReport{Tenant: tenant}, ctx.Err()
	}
	if tenant == r.failFor {
		return pairing.TenantReport{Tenant: tenant}, domain.Unavailable(errors.New("down"))
	}
	return pairing.TenantReport{Tenant: tenant, Outcome: "matched"}, nil
}

func tenants(n int) []domain.TenantID {
	out := make([]domain.TenantID, n)
	for i := range out {
		out[i] = domain.TenantID(rune('A' + i))
	}
	return out
}

func TestSweep_RunsEveryTenantWithBoundedConcurrency(t *testing.T) {
	r := &fakeRunner{delay: 20 * time.Millisecond}
	s := New(staticLister{tenants: tenants(8)}, r, Config{Concurrency: 2, TenantTimeout: time.Second})

	rep, err := s.Sweep(context.Background(), TriggerManual)
	require.NoError(t, err)
	require.NotEmpty(t, rep.SweepID)
	require.Len(t, rep.Tenants, 8)
	require.Zero(t, rep.Failed)
	require.Equal(t, int32(8), r.calls.Load())
	require.LessOrEqual(t, r.maxInFlight.Load(), int32(2))
	require.NotNil(t, s.LastSweep())
	require.Equal(t, rep.SweepID, s.LastSweep().SweepID)
}

func TestSweep_TenantFailureDoesNotStopSiblings(t *testing.T) {
	r := &fakeRunner{failFor: "B", panicOn: "C"}
	s := New(staticLister{tenants: tenants(4)}, r, Config{Concurrency: 4})

	rep, err := s.Sweep(context.Background(), TriggerTick)
	require.NoError(t, err)
	require.Equal(t, 2, rep.Failed)
	require.Equal(t, int32(4), r.calls.Load())
	require.Equal(t, "matched", rep.Tenants[0].Outcome)
	require.Equal(t, pairing.OutcomeError, rep.Tenants[2].Outcome)
}

func TestSweep_TenantTimeout(t *testing.T) {
	r := &fakeRunner{delay: time.Second}
	s := New(staticLister{tenants: tenants(2)}, r, Config{TenantTimeout: 20 * time.Millisecond})

	rep, err := s.Sweep(context.Background(), TriggerManual)
	require.NoError(t, err)
	require.Equal(t, 2, rep.Failed)
	require.Equal(t, int32(2), r.ctxErrs.Load())
}

func TestSweep_ListTenantsFailure(t *testing.T) {
	s := New(staticLister{err: errors.New("dial tcp")}, &fakeRunner{}, Config{})
	rep, err := s.Sweep(context.Background(), TriggerManual)
	require.Error(t, err)
	require.True(t, domain.IsStoreUnavailable(err))
	require.NotEmpty(t, rep.Error)
}

func TestSweep_NeverOverlaps(t *testing.T) {
	r := &fakeRunner{delay: 30 * time.Millisecond}
	s := New(staticLister{tenants: tenants(1)}, r, Config{Concurrency: 4})

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.TriggerSweep(context.Background())
		}()
	}
	wg.Wait()
	require.Equal(t, int32(3), r.calls.Load())
	require.Equal(t, int32(1), r.maxInFlight.Load())
}

func TestSweep_InFlightSurvivesCancellation(t *testing.T) {
	r := &fakeRunner{delay: 50 * time.Millisecond}
	s := New(staticLister{tenants: tenants(3)}, r, Config{TenantTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := s.Sweep(ctx, TriggerTick)
	require.NoError(t, err)
	require.Zero(t, rep.Failed)
	require.Zero(t, r.ctxErrs.Load())
}

func TestRun_RunOnStartAndStop(t *testing.T) {
	r := &fakeRunner{}
	s := New(staticLister{tenants: tenants(2)}, r, Config{Interval: time.Hour, RunOnStart: true})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.LastSweep() != nil }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	require.Equal(t, TriggerStart, s.LastSweep().Trigger)
}

func TestRun_Ticks(t *testing.T) {
	r := &fakeRunner{}
	s := New(staticLister{tenants: tenants(1)}, r, Config{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	require.Eventually(t, func() bool { return r.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestLoop_PendingTickAfterCancelDoesNotSweep(t *testing.T) {
	r := &fakeRunner{}
	s := New(staticLister{tenants: tenants(1)}, r, Config{TenantTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// select elige al azar entre canales listos: repetir cubre ambas ramas.
	for i := 0; i < 100; i++ {
		ticks := make(chan time.Time, 1)
		ticks <- time.Now()
		s.loop(ctx, ticks)
	}
	require.Zero(t, r.calls.Load())
	require.Nil(t, s.LastSweep())
}

func TestLoop_SweepsOnTick(t *testing.T) {
	r := &fakeRunner{}
	s := New(staticLister{tenants: tenants(2)}, r, Config{TenantTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	ticks := make(chan time.Time)
	done := make(chan struct{})
	go func() {
		s.loop(ctx, ticks)
		close(done)
	}()

	ticks <- time.Now()
	ticks <- time.Now()
	cancel()
	<-done

	require.GreaterOrEqual(t, r.calls.Load(), int32(2))
	require.NotNil(t, s.LastSweep())
	require.Equal(t, TriggerTick, s.LastSweep().Trigger)
}
