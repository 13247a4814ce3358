package monitor

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/pkg/clock"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

// triggerOn returns a sampler that draws 0 on the given 1-based calls and 0.99 otherwise.
func triggerOn(calls ...int) Sampler {
	n := 0
	return SamplerFunc(func() float64 {
		n++
		if slices.Contains(calls, n) {
			return 0
		}
		return 0.99
	})
}

func newTestMonitor(t *testing.T, sampler Sampler) (*Monitor, *clock.MockClock) {
	t.Helper()
	clk := clock.NewMockClock(t0)
	m, err := New(DefaultConfig(), NewRouteCatalog(DefaultRoutes), clk, sampler, logger.NewNop())
	require.NoError(t, err)
	return m, clk
}

func TestScenarioSingleAlertOnThirdTick(t *testing.T) {
	m, clk := newTestMonitor(t, triggerOn(3))

	s, err := m.Start(context.Background(), "Lima - Cusco", nil)
	require.NoError(t, err)
	assert.Equal(t, "Lima - Cusco", s.Destination())

	snap := s.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Zero(t, snap.ElapsedSeconds)
	assert.Zero(t, snap.AlertCount)
	assert.Zero(t, snap.ResponseCount)

	clk.Advance(3 * time.Second)
	snap = s.Snapshot()
	assert.Equal(t, StateAlertActive, snap.State)
	assert.Equal(t, 3, snap.ElapsedSeconds)
	assert.Equal(t, 1, snap.AlertCount)
	require.NotNil(t, snap.ActiveAlert)
	assert.Equal(t, 3, snap.ActiveAlert.RaisedAtSecond)
	assert.Equal(t, t0.Add(5*time.Second), snap.ActiveAlert.ResolvesAt)

	clk.Advance(2 * time.Second)
	snap = s.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, 1, snap.ResponseCount)
	assert.Nil(t, snap.ActiveAlert)

	clk.Advance(5 * time.Second)
	assert.Equal(t, 10, s.Snapshot().ElapsedSeconds)

	sum := m.Stop(s)
	assert.Equal(t, 10, sum.ElapsedSeconds)
	assert.Equal(t, 1, sum.AlertCount)
	assert.Equal(t, 1, sum.ResponseCount)
	assert.Equal(t, 100, sum.Effectiveness)
	assert.Equal(t, "Lima - Cusco", sum.Destination)
	assert.Equal(t, t0, sum.StartedAt)
	assert.Equal(t, t0.Add(10*time.Second), sum.EndedAt)
}

func TestStartInvalidDestination(t *testing.T) {
	cases := []struct {
		name        string
		destination string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"unknown route", "Lima - Tokyo"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, clk := newTestMonitor(t, triggerOn(1))

			s, err := m.Start(context.Background(), tc.destination, nil)
			require.Error(t, err)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, types.ErrInvalidInput)

			var inputErr *InvalidInputError
			require.True(t, errors.As(err, &inputErr))
			assert.Equal(t, "destination", inputErr.Field)

			assert.Zero(t, clk.Pending(), "no timer may be scheduled for a rejected start")
		})
	}
}

func TestStartTrimsDestination(t *testing.T) {
	m, _ := newTestMonitor(t, triggerOn())
	s, err := m.Start(context.Background(), "  Cusco - Puno ", nil)
	require.NoError(t, err)
	assert.Equal(t, "Cusco - Puno", s.Destination())
}

func TestElapsedEqualsTicksDelivered(t *testing.T) {
	m, clk := newTestMonitor(t, NewSeededSampler(7))
	s, err := m.Start(context.Background(), "Lima - Piura", nil)
	require.NoError(t, err)

	for i := 1; i <= 60; i++ {
		clk.Advance(time.Second)
		assert.Equal(t, i, s.Snapshot().ElapsedSeconds)
	}
}

func TestResponsesNeverExceedAlerts(t *testing.T) {
	clk := clock.NewMockClock(t0)
	cfg := DefaultConfig()
	cfg.AlertProbability = 0.5
	m, err := New(cfg, NewRouteCatalog(DefaultRoutes), clk, NewSeededSampler(42), logger.NewNop())
	require.NoError(t, err)

	s, err := m.Start(context.Background(), "Lima - Trujillo", nil)
	require.NoError(t, err)

	prev := s.Snapshot()
	for range 300 {
		clk.Advance(time.Second)
		snap := s.Snapshot()
		assert.LessOrEqual(t, snap.ResponseCount, snap.AlertCount)
		assert.GreaterOrEqual(t, snap.AlertCount, prev.AlertCount)
		assert.GreaterOrEqual(t, snap.ResponseCount, prev.ResponseCount)
		assert.LessOrEqual(t, snap.AlertCount-snap.ResponseCount, 1, "at most one alert in flight")
		prev = snap
	}
	assert.Positive(t, prev.AlertCount)
}

func TestAlertsNeverOverlap(t *testing.T) {
	// Always-firing sampler: an alert every time the session is idle on a tick.
	clk := clock.NewMockClock(t0)
	cfg := DefaultConfig()
	cfg.AlertProbability = 1
	m, err := New(cfg, NewRouteCatalog(DefaultRoutes), clk, SamplerFunc(func() float64 { return 0 }), logger.NewNop())
	require.NoError(t, err)

	s, err := m.Start(context.Background(), "Lima - Cusco", nil)
	require.NoError(t, err)

	clk.Advance(10 * time.Second)
	sum := s.Stop()

	// raised at 1, 3, 5, 7, 9; the one raised at 9 is still pending at 10
	assert.Equal(t, 10, sum.ElapsedSeconds)
	assert.Equal(t, 5, sum.AlertCount)
	assert.Equal(t, 4, sum.ResponseCount)
	assert.Equal(t, 80, sum.Effectiveness)
}

func TestZeroProbabilityNeverAlerts(t *testing.T) {
	clk := clock.NewMockClock(t0)
	cfg := DefaultConfig()
	cfg.AlertProbability = 0
	m, err := New(cfg, NewRouteCatalog(DefaultRoutes), clk, SamplerFunc(func() float64 { return 0 }), logger.NewNop())
	require.NoError(t, err)

	s, err := m.Start(context.Background(), "Lima - Cusco", nil)
	require.NoError(t, err)
	clk.Advance(time.Minute)

	sum := s.Stop()
	assert.Equal(t, 60, sum.ElapsedSeconds)
	assert.Zero(t, sum.AlertCount)
	assert.Equal(t, 100, sum.Effectiveness)
}

func TestStopIsIdempotent(t *testing.T) {
	m, clk := newTestMonitor(t, triggerOn(2))
	s, err := m.Start(context.Background(), "Lima - Huancayo", nil)
	require.NoError(t, err)

	clk.Advance(4 * time.Second)
	first := s.Stop()
	clk.Advance(time.Minute)
	second := s.Stop()

	assert.Equal(t, first, second)
	assert.Equal(t, StateStopped, s.State())
}

func TestStopCancelsTimers(t *testing.T) {
	m, clk := newTestMonitor(t, triggerOn(3))
	s, err := m.Start(context.Background(), "Arequipa - Cusco", nil)
	require.NoError(t, err)

	clk.Advance(3 * time.Second)
	require.Equal(t, StateAlertActive, s.State())
	require.Equal(t, 2, clk.Pending(), "tick and resolution timers")

	sum := s.Stop()
	assert.Zero(t, clk.Pending())
	assert.Equal(t, 1, sum.AlertCount)
	assert.Zero(t, sum.ResponseCount)
	assert.Equal(t, 0, sum.Effectiveness)

	before := s.Snapshot()
	clk.Advance(time.Minute)
	assert.Equal(t, before, s.Snapshot())
}

func TestNoMutationAfterStopFromInFlightCallbacks(t *testing.T) {
	m, clk := newTestMonitor(t, triggerOn(1))
	s, err := m.Start(context.Background(), "Lima - Cusco", nil)
	require.NoError(t, err)

	clk.Advance(time.Second)
	require.Equal(t, StateAlertActive, s.State())

	sum := s.Stop()
	before := s.Snapshot()

	// callbacks that lost the race against Stop
	s.onTick()
	s.onResolve(1)
	s.Tick()
	assert.False(t, s.ResolveAlert())

	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, sum, s.Stop())
	assert.Zero(t, clk.Pending())
}

func TestResolveAlertManually(t *testing.T) {
	m, clk := newTestMonitor(t, triggerOn(1))
	s, err := m.Start(context.Background(), "Lima - Cusco", nil)
	require.NoError(t, err)

	assert.False(t, s.ResolveAlert(), "nothing to resolve yet")

	clk.Advance(time.Second)
	require.Equal(t, StateAlertActive, s.State())

	assert.True(t, s.ResolveAlert())
	snap := s.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, 1, snap.ResponseCount)
	assert.Equal(t, 1, clk.Pending(), "only the tick timer remains")

	clk.Advance(2 * time.Second)
	assert.Equal(t, 1, s.Snapshot().ResponseCount)
}

func TestStaleResolutionIgnored(t *testing.T) {
	m, clk := newTestMonitor(t, triggerOn(1, 2))
	s, err := m.Start(context.Background(), "Lima - Cusco", nil)
	require.NoError(t, err)

	clk.Advance(time.Second)
	require.True(t, s.ResolveAlert())
	clk.Advance(time.Second)
	require.Equal(t, 2, s.Snapshot().AlertCount)

	s.onResolve(1)
	assert.Equal(t, 1, s.Snapshot().ResponseCount)
	assert.Equal(t, StateAlertActive, s.State())
}

func TestManualTickKeepsSchedule(t *testing.T) {
	m, clk := newTestMonitor(t, triggerOn())
	s, err := m.Start(context.Background(), "Lima - Cusco", nil)
	require.NoError(t, err)

	s.Tick()
	s.Tick()
	assert.Equal(t, 2, s.Snapshot().ElapsedSeconds)
	assert.Equal(t, 1, clk.Pending())

	clk.Advance(time.Second)
	assert.Equal(t, 3, s.Snapshot().ElapsedSeconds)
}

func TestObserverSeesOrderedSnapshots(t *testing.T) {
	m, clk := newTestMonitor(t, triggerOn(2))

	var got []Snapshot
	s, err := m.Start(context.Background(), "Lima - Cusco", func(snap Snapshot) {
		got = append(got, snap)
	})
	require.NoError(t, err)

	clk.Advance(5 * time.Second)
	s.Stop()
	s.onTick()
	s.Stop()

	require.NotEmpty(t, got)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i].Version, got[i-1].Version)
	}

	last := got[len(got)-1]
	assert.Equal(t, StateStopped, last.State)
	assert.Equal(t, 5, last.ElapsedSeconds)

	// 5 ticks, 1 resolution, 1 stop
	assert.Len(t, got, 7)
	assert.Equal(t, "00:00:05", last.Elapsed)
}

func TestSessionsAreIndependent(t *testing.T) {
	m, clk := newTestMonitor(t, triggerOn())
	a, err := m.Start(context.Background(), "Lima - Cusco", nil)
	require.NoError(t, err)

	clk.Advance(2 * time.Second)
	b, err := m.Start(context.Background(), "Cusco - Puno", nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())

	clk.Advance(3 * time.Second)
	a.Stop()
	clk.Advance(3 * time.Second)

	assert.Equal(t, 5, a.Snapshot().ElapsedSeconds)
	assert.Equal(t, 6, b.Snapshot().ElapsedSeconds)
	assert.Equal(t, StateIdle, b.State())
}

func TestRealClockStopHaltsSession(t *testing.T) {
	cfg := Config{
		TickInterval:     2 * time.Millisecond,
		ResolutionDelay:  3 * time.Millisecond,
		AlertProbability: 1,
	}
	m, err := New(cfg, NewRouteCatalog(DefaultRoutes), clock.RealClock{}, SamplerFunc(func() float64 { return 0 }), logger.NewNop())
	require.NoError(t, err)

	var mu sync.Mutex
	delivered := 0
	s, err := m.Start(context.Background(), "Lima - Cusco", func(Snapshot) {
		mu.Lock()
		delivered++
		mu.Unlock()
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return s.Snapshot().ElapsedSeconds >= 5
	}, time.Second, time.Millisecond)

	sum := s.Stop()
	after := s.Snapshot()
	mu.Lock()
	deliveredAtStop := delivered
	mu.Unlock()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, s.Snapshot())
	assert.Equal(t, sum.ElapsedSeconds, after.ElapsedSeconds)
	assert.LessOrEqual(t, sum.ResponseCount, sum.AlertCount)

	mu.Lock()
	assert.Equal(t, deliveredAtStop, delivered)
	mu.Unlock()
}

func TestNewValidatesConfig(t *testing.T) {
	routes := NewRouteCatalog(DefaultRoutes)

	_, err := New(Config{TickInterval: 0, ResolutionDelay: time.Second, AlertProbability: 0.1}, routes, nil, nil, nil)
	assert.Error(t, err)

	_, err = New(Config{TickInterval: time.Second, ResolutionDelay: time.Second, AlertProbability: 1.5}, routes, nil, nil, nil)
	assert.Error(t, err)

	_, err = New(DefaultConfig(), nil, nil, nil, nil)
	assert.Error(t, err)

	m, err := New(DefaultConfig(), routes, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultRoutes, m.Routes())
}
