// Package trip keeps the registry of live monitored trips and the trip record store.
package trip

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/internal/service/monitor"
	"github.com/Temutjin2k/ispeed/pkg/clock"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
	"github.com/Temutjin2k/ispeed/pkg/metrics"
	"github.com/google/uuid"
)

var serviceLabel = types.APIService.String()

type liveTrip struct {
	session *monitor.Session
	trip    models.Trip

	// finishMu serializes stops; finished is set once the summary is stored.
	finishMu sync.Mutex
	finished *models.Trip
}

// Service owns the monitored sessions, at most one per driver.
// The id of a trip is the id of its monitor session.
type Service struct {
	monitor   SessionMonitor
	repo      TripRepo
	users     UserRepo
	publisher EventPublisher
	streamer  Streamer
	clock     clock.Clock
	log       logger.Logger

	mu       sync.Mutex
	byTrip   map[uuid.UUID]*liveTrip
	byDriver map[uuid.UUID]uuid.UUID
	closed   bool
}

func NewService(mon SessionMonitor, repo TripRepo, users UserRepo, publisher EventPublisher, streamer Streamer, clk clock.Clock, log logger.Logger) *Service {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Service{
		monitor:   mon,
		repo:      repo,
		users:     users,
		publisher: publisher,
		streamer:  streamer,
		clock:     clk,
		log:       log,
		byTrip:    make(map[uuid.UUID]*liveTrip),
		byDriver:  make(map[uuid.UUID]uuid.UUID),
	}
}

// Routes returns the route catalog.
func (s *Service) Routes() []string {
	return s.monitor.Routes()
}

// StartTrip starts a monitored session for the driver and persists it as IN_PROGRESS.
func (s *Service) StartTrip(ctx context.Context, driver *models.User, destination string) (*models.Trip, monitor.Snapshot, error) {
	ctx = wrap.WithAction(ctx, "start_trip")

	if !driver.HasRole(types.DriverRole) {
		return nil, monitor.Snapshot{}, fmt.Errorf("%w: only drivers can start trips", types.ErrForbidden)
	}

	// reserve the driver's slot so two concurrent starts cannot both win
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, monitor.Snapshot{}, types.ErrShuttingDown
	}
	if _, busy := s.byDriver[driver.ID]; busy {
		s.mu.Unlock()
		return nil, monitor.Snapshot{}, types.ErrTripAlreadyActive
	}
	s.byDriver[driver.ID] = uuid.Nil
	s.mu.Unlock()

	release := func() {
		s.mu.Lock()
		delete(s.byDriver, driver.ID)
		s.mu.Unlock()
	}

	session, err := s.monitor.Start(ctx, destination, func(snap monitor.Snapshot) {
		s.streamer.PushSnapshot(snap.SessionID, snap)
	})
	if err != nil {
		release()
		return nil, monitor.Snapshot{}, err
	}

	origin, _ := monitor.SplitRoute(session.Destination())
	trip := models.Trip{
		ID:            session.ID(),
		CompanyID:     driver.CompanyID,
		DriverID:      driver.ID,
		Origin:        origin,
		Destination:   session.Destination(),
		Status:        types.TripInProgress,
		StartDate:     session.StartedAt(),
		Effectiveness: monitor.Effectiveness(0, 0),
	}
	ctx = wrap.WithTripID(ctx, trip.ID.String())

	if err := s.repo.Create(ctx, &trip); err != nil {
		session.Stop()
		release()
		s.log.Error(ctx, "failed to persist started trip", err)
		return nil, monitor.Snapshot{}, wrap.Error(ctx, err)
	}

	s.mu.Lock()
	s.byTrip[trip.ID] = &liveTrip{session: session, trip: trip}
	s.byDriver[driver.ID] = trip.ID
	s.mu.Unlock()

	metrics.ActiveTripsGauge.WithLabelValues(serviceLabel).Inc()
	metrics.TripsTotal.WithLabelValues(serviceLabel, "started").Inc()

	if err := s.publisher.PublishTripStarted(ctx, models.TripStartedMessage{
		TripID:      trip.ID,
		DriverID:    trip.DriverID,
		CompanyID:   trip.CompanyID,
		Destination: trip.Destination,
		StartedAt:   trip.StartDate,
	}); err != nil {
		s.log.Error(wrap.WithAction(ctx, types.ActionEventPublishFailed), "failed to publish trip started", err)
	}

	s.log.Info(ctx, "trip started", "driver_id", driver.ID, "destination", trip.Destination)
	return &trip, session.Snapshot(), nil
}

// StopTrip stops the live session of a trip, persists the summary and returns the finished record.
// Stopping a finished trip returns the stored record. When the summary cannot be stored the trip
// stays live and a retried stop stores the same summary.
func (s *Service) StopTrip(ctx context.Context, actor *models.User, tripID uuid.UUID) (*models.Trip, error) {
	ctx = wrap.WithTripID(wrap.WithAction(ctx, "stop_trip"), tripID.String())

	s.mu.Lock()
	live, ok := s.byTrip[tripID]
	if ok && !canSee(actor, &live.trip) {
		ok = false
		live = nil
	}
	s.mu.Unlock()

	if !ok {
		trip, err := s.Get(ctx, actor, tripID)
		if err != nil {
			return nil, err
		}
		if trip.Status == types.TripFinished {
			return trip, nil
		}
		return nil, types.ErrTripNotActive
	}

	return s.finish(ctx, live)
}

// detachLocked removes the trip from the registry and frees the driver.
func (s *Service) detachLocked(live *liveTrip) {
	delete(s.byTrip, live.trip.ID)
	if s.byDriver[live.trip.DriverID] == live.trip.ID {
		delete(s.byDriver, live.trip.DriverID)
	}
}

// finish stops the session and stores its summary. The trip leaves the registry only
// after the record is saved.
func (s *Service) finish(ctx context.Context, live *liveTrip) (*models.Trip, error) {
	live.finishMu.Lock()
	defer live.finishMu.Unlock()

	if live.finished != nil {
		trip := *live.finished
		return &trip, nil
	}

	// Stop is idempotent, a retry gets the same summary
	summary := live.session.Stop()

	trip := live.trip
	endedAt := summary.EndedAt
	trip.Status = types.TripFinished
	trip.EndDate = &endedAt
	trip.ElapsedSeconds = summary.ElapsedSeconds
	trip.AlertCount = summary.AlertCount
	trip.ResponseCount = summary.ResponseCount
	trip.Effectiveness = summary.Effectiveness

	if err := s.repo.Update(ctx, &trip); err != nil {
		s.log.Error(ctx, "failed to persist finished trip", err)
		return nil, wrap.Error(ctx, err)
	}

	stored := trip
	live.finished = &stored

	s.mu.Lock()
	s.detachLocked(live)
	s.mu.Unlock()

	s.streamer.PushStopped(trip.ID, summary)
	metrics.ActiveTripsGauge.WithLabelValues(serviceLabel).Dec()
	metrics.RecordTripFinished(serviceLabel, summary.ElapsedSeconds, summary.AlertCount, summary.ResponseCount, summary.Effectiveness)

	s.publishFinished(ctx, &trip)

	s.log.Info(ctx, "trip finished",
		"elapsed_seconds", trip.ElapsedSeconds,
		"alerts", trip.AlertCount,
		"responses", trip.ResponseCount,
		"effectiveness", trip.Effectiveness,
	)
	return &trip, nil
}

func (s *Service) publishFinished(ctx context.Context, trip *models.Trip) {
	var finishedAt time.Time
	if trip.EndDate != nil {
		finishedAt = *trip.EndDate
	}
	if err := s.publisher.PublishTripFinished(ctx, models.TripFinishedMessage{
		TripID:         trip.ID,
		DriverID:       trip.DriverID,
		CompanyID:      trip.CompanyID,
		Destination:    trip.Destination,
		ElapsedSeconds: trip.ElapsedSeconds,
		AlertCount:     trip.AlertCount,
		ResponseCount:  trip.ResponseCount,
		Effectiveness:  trip.Effectiveness,
		FinishedAt:     finishedAt,
	}); err != nil {
		s.log.Error(wrap.WithAction(ctx, types.ActionEventPublishFailed), "failed to publish trip finished", err)
	}
}

// Snapshot returns the current state of a live trip.
func (s *Service) Snapshot(ctx context.Context, actor *models.User, tripID uuid.UUID) (monitor.Snapshot, error) {
	s.mu.Lock()
	live, ok := s.byTrip[tripID]
	s.mu.Unlock()

	if ok && canSee(actor, &live.trip) {
		return live.session.Snapshot(), nil
	}

	if _, err := s.Get(ctx, actor, tripID); err != nil {
		return monitor.Snapshot{}, err
	}
	return monitor.Snapshot{}, types.ErrTripNotActive
}

// Watch checks that actor may follow the live trip. It returns ErrTripNotActive when the trip is not monitored.
func (s *Service) Watch(ctx context.Context, actor *models.User, tripID uuid.UUID) (monitor.Snapshot, error) {
	return s.Snapshot(ctx, actor, tripID)
}

func (s *Service) HasLiveTrip(driverID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byDriver[driverID]
	return ok
}

func (s *Service) IsLive(tripID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byTrip[tripID]
	return ok
}

// ActiveCount returns the number of live trips of a company.
func (s *Service) ActiveCount(companyID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, live := range s.byTrip {
		if live.trip.CompanyID == companyID {
			n++
		}
	}
	return n
}

// FinishOrphaned closes trips left IN_PROGRESS by a previous run and announces each of them
// as finished with the counters stored at start. Call before serving.
func (s *Service) FinishOrphaned(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, "finish_orphaned_trips")
	orphans, err := s.repo.FinishOrphaned(ctx, s.clock.Now())
	if err != nil {
		return err
	}
	if len(orphans) == 0 {
		return nil
	}

	for i := range orphans {
		s.publishFinished(wrap.WithTripID(ctx, orphans[i].ID.String()), &orphans[i])
	}
	s.log.Warn(ctx, "closed trips left in progress by a previous run", "count", len(orphans))
	return nil
}

// Shutdown stops and persists every live trip. StartTrip fails afterwards.
func (s *Service) Shutdown(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, "trip_service_shutdown")

	s.mu.Lock()
	s.closed = true
	lives := make([]*liveTrip, 0, len(s.byTrip))
	for _, live := range s.byTrip {
		lives = append(lives, live)
	}
	s.mu.Unlock()

	var errs []error
	for _, live := range lives {
		if err := ctx.Err(); err != nil {
			// out of time: stop the clocks, the records are closed by FinishOrphaned on next start
			live.session.Stop()
			s.mu.Lock()
			s.detachLocked(live)
			s.mu.Unlock()
			errs = append(errs, fmt.Errorf("trip %s not persisted: %w", live.trip.ID, err))
			continue
		}
		if _, err := s.finish(wrap.WithTripID(ctx, live.trip.ID.String()), live); err != nil {
			errs = append(errs, err)
		}
	}

	s.log.Info(ctx, "live trips stopped", "count", len(lives))
	return errors.Join(errs...)
}
