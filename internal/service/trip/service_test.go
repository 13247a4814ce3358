package trip

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/internal/service/monitor"
	"github.com/Temutjin2k/ispeed/pkg/clock"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memTrips struct {
	mu        sync.Mutex
	trips     map[uuid.UUID]models.Trip
	failWrite error
}

func newMemTrips() *memTrips { return &memTrips{trips: map[uuid.UUID]models.Trip{}} }

func (m *memTrips) Create(_ context.Context, t *models.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return m.failWrite
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	m.trips[t.ID] = *t
	return nil
}

func (m *memTrips) Get(_ context.Context, id uuid.UUID) (*models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[id]
	if !ok {
		return nil, types.ErrTripNotFound
	}
	return &t, nil
}

func (m *memTrips) List(_ context.Context, f models.TripFilters) ([]models.Trip, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Trip
	for _, t := range m.trips {
		if t.CompanyID != f.CompanyID {
			continue
		}
		if f.DriverID != uuid.Nil && t.DriverID != f.DriverID {
			continue
		}
		out = append(out, t)
	}
	return out, len(out), nil
}

func (m *memTrips) Update(_ context.Context, t *models.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return m.failWrite
	}
	if _, ok := m.trips[t.ID]; !ok {
		return types.ErrTripNotFound
	}
	m.trips[t.ID] = *t
	return nil
}

func (m *memTrips) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trips[id]; !ok {
		return types.ErrTripNotFound
	}
	delete(m.trips, id)
	return nil
}

func (m *memTrips) FinishOrphaned(_ context.Context, end time.Time) ([]models.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var closed []models.Trip
	for id, t := range m.trips {
		if t.Status == types.TripInProgress {
			t.Status = types.TripFinished
			t.EndDate = &end
			m.trips[id] = t
			closed = append(closed, t)
		}
	}
	return closed, nil
}

func (m *memTrips) setFailWrite(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrite = err
}

type memUsers map[uuid.UUID]*models.User

func (m memUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, types.ErrUserNotFound
	}
	return u, nil
}

type recorder struct {
	mu        sync.Mutex
	started   []models.TripStartedMessage
	finished  []models.TripFinishedMessage
	snapshots []monitor.Snapshot
	stopped   []monitor.TripSummary
}

func (r *recorder) PublishTripStarted(_ context.Context, msg models.TripStartedMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, msg)
	return nil
}

func (r *recorder) PublishTripFinished(_ context.Context, msg models.TripFinishedMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, msg)
	return errors.New("broker down")
}

func (r *recorder) PushSnapshot(_ uuid.UUID, snap monitor.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, snap)
}

func (r *recorder) PushStopped(_ uuid.UUID, sum monitor.TripSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = append(r.stopped, sum)
}

type fixture struct {
	svc        *Service
	repo       *memTrips
	rec        *recorder
	clock      *clock.MockClock
	company    uuid.UUID
	driver     *models.User
	supervisor *models.User
}

// newFixture raises an alert on every tick whose number is in alertTicks.
func newFixture(t *testing.T, alertTicks ...int) *fixture {
	t.Helper()

	clk := clock.NewMockClock(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC))
	var (
		mu   sync.Mutex
		tick int
	)
	sampler := monitor.SamplerFunc(func() float64 {
		mu.Lock()
		defer mu.Unlock()
		tick++
		for _, at := range alertTicks {
			if at == tick {
				return 0
			}
		}
		return 0.99
	})

	mon, err := monitor.New(monitor.DefaultConfig(), monitor.NewRouteCatalog(monitor.DefaultRoutes), clk, sampler, logger.NewNop())
	require.NoError(t, err)

	company := uuid.New()
	driver := &models.User{ID: uuid.New(), CompanyID: company, Role: types.DriverRole, Status: types.ActiveStatus}
	supervisor := &models.User{ID: uuid.New(), CompanyID: company, Role: types.SupervisorRole, Status: types.ActiveStatus}
	users := memUsers{driver.ID: driver, supervisor.ID: supervisor}

	repo := newMemTrips()
	rec := &recorder{}
	svc := NewService(mon, repo, users, rec, rec, clk, logger.NewNop())

	return &fixture{svc: svc, repo: repo, rec: rec, clock: clk, company: company, driver: driver, supervisor: supervisor}
}

func TestStartStopPersistsSummary(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	trip, snap, err := f.svc.StartTrip(ctx, f.driver, " Lima - Cusco ")
	require.NoError(t, err)
	assert.Equal(t, "Lima - Cusco", trip.Destination)
	assert.Equal(t, "Lima", trip.Origin)
	assert.Equal(t, types.TripInProgress, trip.Status)
	assert.Equal(t, trip.ID, snap.SessionID)
	assert.True(t, f.svc.HasLiveTrip(f.driver.ID))
	assert.Equal(t, 1, f.svc.ActiveCount(f.company))
	require.Len(t, f.rec.started, 1)

	stored, err := f.repo.Get(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TripInProgress, stored.Status)

	f.clock.Advance(10 * time.Second)

	live, err := f.svc.Snapshot(ctx, f.supervisor, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, live.ElapsedSeconds)
	assert.Equal(t, "00:00:10", live.Elapsed)

	finished, err := f.svc.StopTrip(ctx, f.driver, trip.ID)
	require.NoError(t, err, "a failing broker does not fail the stop")
	assert.Equal(t, types.TripFinished, finished.Status)
	assert.Equal(t, 10, finished.ElapsedSeconds)
	assert.Equal(t, 1, finished.AlertCount)
	assert.Equal(t, 1, finished.ResponseCount)
	assert.Equal(t, 100, finished.Effectiveness)
	require.NotNil(t, finished.EndDate)
	assert.Equal(t, f.clock.Now(), *finished.EndDate)

	stored, _ = f.repo.Get(ctx, trip.ID)
	assert.Equal(t, *finished, *stored)
	assert.False(t, f.svc.HasLiveTrip(f.driver.ID))
	assert.Equal(t, 0, f.clock.Pending(), "no timer survives the stop")

	require.Len(t, f.rec.finished, 1)
	assert.Equal(t, 100, f.rec.finished[0].Effectiveness)
	require.Len(t, f.rec.stopped, 1)
	assert.NotEmpty(t, f.rec.snapshots)
	assert.Equal(t, monitor.StateStopped, f.rec.snapshots[len(f.rec.snapshots)-1].State)

	again, err := f.svc.StopTrip(ctx, f.driver, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, finished.ElapsedSeconds, again.ElapsedSeconds)
	assert.Len(t, f.rec.finished, 1, "repeated stop publishes nothing")

	_, err = f.svc.Snapshot(ctx, f.driver, trip.ID)
	assert.ErrorIs(t, err, types.ErrTripNotActive)
}

func TestOneLiveTripPerDriver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.StartTrip(ctx, f.driver, "Lima - Piura")
	require.NoError(t, err)

	_, _, err = f.svc.StartTrip(ctx, f.driver, "Lima - Cusco")
	assert.ErrorIs(t, err, types.ErrTripAlreadyActive)

	_, _, err = f.svc.StartTrip(ctx, f.supervisor, "Lima - Cusco")
	assert.ErrorIs(t, err, types.ErrForbidden)
}

func TestStartRejectsUnknownRoute(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.StartTrip(context.Background(), f.driver, "Lima - Tokyo")
	var invalid *monitor.InvalidInputError
	require.ErrorAs(t, err, &invalid)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	assert.False(t, f.svc.HasLiveTrip(f.driver.ID), "slot is released")
	assert.Equal(t, 0, f.clock.Pending())
}

func TestStartFailsWhenRecordCannotBeStored(t *testing.T) {
	f := newFixture(t)
	f.repo.failWrite = errors.New("db down")

	_, _, err := f.svc.StartTrip(context.Background(), f.driver, "Lima - Cusco")
	require.Error(t, err)
	assert.False(t, f.svc.HasLiveTrip(f.driver.ID))
	assert.Equal(t, 0, f.clock.Pending(), "the session is stopped again")
}

func TestStopAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	trip, _, err := f.svc.StartTrip(ctx, f.driver, "Lima - Cusco")
	require.NoError(t, err)

	other := &models.User{ID: uuid.New(), CompanyID: f.company, Role: types.DriverRole}
	_, err = f.svc.StopTrip(ctx, other, trip.ID)
	assert.ErrorIs(t, err, types.ErrTripNotFound)
	assert.True(t, f.svc.IsLive(trip.ID))

	foreign := &models.User{ID: uuid.New(), CompanyID: uuid.New(), Role: types.SupervisorRole}
	_, err = f.svc.Snapshot(ctx, foreign, trip.ID)
	assert.ErrorIs(t, err, types.ErrTripNotFound)

	_, err = f.svc.StopTrip(ctx, f.supervisor, trip.ID)
	assert.NoError(t, err, "supervisors can stop their drivers' trips")
}

func TestStopRetriesFailedSave(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	trip, _, err := f.svc.StartTrip(ctx, f.driver, "Cusco - Puno")
	require.NoError(t, err)
	f.clock.Advance(5 * time.Second)

	f.repo.setFailWrite(errors.New("db down"))
	_, err = f.svc.StopTrip(ctx, f.driver, trip.ID)
	require.Error(t, err)

	assert.True(t, f.svc.IsLive(trip.ID), "trip stays registered until stored")
	assert.True(t, f.svc.HasLiveTrip(f.driver.ID), "driver cannot start another trip")
	stored, err := f.repo.Get(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TripInProgress, stored.Status)
	assert.Empty(t, f.rec.finished)
	assert.Empty(t, f.rec.stopped)
	assert.Equal(t, 0, f.clock.Pending(), "the session clock is stopped")

	// time passing between attempts does not change the summary
	f.clock.Advance(10 * time.Second)
	f.repo.setFailWrite(nil)

	finished, err := f.svc.StopTrip(ctx, f.driver, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TripFinished, finished.Status)
	assert.Equal(t, 5, finished.ElapsedSeconds)
	assert.Equal(t, 1, finished.AlertCount)
	assert.Equal(t, monitor.Effectiveness(finished.AlertCount, finished.ResponseCount), finished.Effectiveness)

	stored, err = f.repo.Get(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, *finished, *stored)
	assert.False(t, f.svc.IsLive(trip.ID))
	assert.False(t, f.svc.HasLiveTrip(f.driver.ID))
	assert.Len(t, f.rec.finished, 1)
	assert.Len(t, f.rec.stopped, 1)
}

func TestConcurrentStopsFinishOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	trip, _, err := f.svc.StartTrip(ctx, f.driver, "Lima - Cusco")
	require.NoError(t, err)
	f.clock.Advance(3 * time.Second)

	var wg sync.WaitGroup
	results := make([]*models.Trip, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := f.svc.StopTrip(ctx, f.supervisor, trip.ID)
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		require.NotNil(t, got)
		assert.Equal(t, 3, got.ElapsedSeconds)
	}
	assert.Len(t, f.rec.finished, 1)
}

func TestShutdownFinishesLiveTrips(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	trip, _, err := f.svc.StartTrip(ctx, f.driver, "Cusco - Puno")
	require.NoError(t, err)
	f.clock.Advance(5 * time.Second)

	require.NoError(t, f.svc.Shutdown(ctx))

	stored, err := f.repo.Get(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TripFinished, stored.Status)
	assert.Equal(t, 5, stored.ElapsedSeconds)
	assert.Equal(t, 1, stored.AlertCount)
	assert.Equal(t, 0, f.clock.Pending())

	_, _, err = f.svc.StartTrip(ctx, f.driver, "Cusco - Puno")
	assert.Error(t, err)
}

func TestFinishOrphaned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	orphan := models.Trip{CompanyID: f.company, DriverID: f.driver.ID, Destination: "Lima - Cusco", Status: types.TripInProgress}
	require.NoError(t, f.repo.Create(ctx, &orphan))

	require.NoError(t, f.svc.FinishOrphaned(ctx))
	stored, _ := f.repo.Get(ctx, orphan.ID)
	assert.Equal(t, types.TripFinished, stored.Status)

	require.Len(t, f.rec.finished, 1, "orphans reach the driver stats")
	assert.Equal(t, orphan.ID, f.rec.finished[0].TripID)
	assert.Equal(t, f.driver.ID, f.rec.finished[0].DriverID)
	require.NotNil(t, stored.EndDate)
	assert.Equal(t, *stored.EndDate, f.rec.finished[0].FinishedAt)

	require.NoError(t, f.svc.FinishOrphaned(ctx))
	assert.Len(t, f.rec.finished, 1, "nothing left to close")

	_, err := f.svc.StopTrip(ctx, f.driver, orphan.ID)
	assert.NoError(t, err)
}
