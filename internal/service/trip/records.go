package trip

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/internal/service/monitor"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
	"github.com/google/uuid"
)

// canSee: drivers see their own trips, supervisors the trips of their company.
func canSee(actor *models.User, trip *models.Trip) bool {
	if actor.IsAnonymous() || trip.CompanyID != actor.CompanyID {
		return false
	}
	if actor.Role == types.DriverRole {
		return trip.DriverID == actor.ID
	}
	return actor.Role == types.SupervisorRole
}

// Create stores a finished trip record, e.g. one recorded outside the monitor.
// Effectiveness is always derived from the counters.
func (s *Service) Create(ctx context.Context, actor *models.User, trip *models.Trip) error {
	ctx = wrap.WithAction(ctx, "create_trip")

	if actor.Role == types.DriverRole {
		trip.DriverID = actor.ID
	}
	if trip.DriverID == uuid.Nil {
		return fmt.Errorf("%w: driver_id is required", types.ErrInvalidInput)
	}
	if actor.Role != types.DriverRole {
		driver, err := s.users.GetByID(ctx, trip.DriverID)
		if err != nil || driver.CompanyID != actor.CompanyID {
			return types.ErrUserNotFound
		}
		if driver.Role != types.DriverRole {
			return fmt.Errorf("%w: user is not a driver", types.ErrInvalidInput)
		}
	}

	if trip.Status == "" {
		trip.Status = types.TripFinished
	}
	if trip.Status != types.TripFinished {
		return fmt.Errorf("%w: only finished trips can be recorded, use a session to start one", types.ErrInvalidInput)
	}
	if err := s.checkRecord(trip); err != nil {
		return err
	}

	trip.ID = uuid.Nil
	trip.CompanyID = actor.CompanyID
	if trip.Origin == "" {
		trip.Origin, _ = monitor.SplitRoute(trip.Destination)
	}
	trip.Effectiveness = monitor.Effectiveness(trip.AlertCount, trip.ResponseCount)

	if err := s.repo.Create(ctx, trip); err != nil {
		return err
	}
	s.log.Info(wrap.WithTripID(ctx, trip.ID.String()), "trip recorded", "driver_id", trip.DriverID)
	return nil
}

func (s *Service) checkRecord(trip *models.Trip) error {
	switch {
	case !slices.Contains(s.monitor.Routes(), strings.TrimSpace(trip.Destination)):
		return &monitor.InvalidInputError{Field: "destination", Value: trip.Destination, Reason: "unknown route"}
	case trip.ElapsedSeconds < 0 || trip.AlertCount < 0 || trip.ResponseCount < 0:
		return fmt.Errorf("%w: counters must not be negative", types.ErrInvalidInput)
	case trip.ResponseCount > trip.AlertCount:
		return fmt.Errorf("%w: response_count exceeds alert_count", types.ErrInvalidInput)
	case trip.StartDate.IsZero():
		return fmt.Errorf("%w: start_date is required", types.ErrInvalidInput)
	case trip.EndDate != nil && trip.EndDate.Before(trip.StartDate):
		return fmt.Errorf("%w: end_date is before start_date", types.ErrInvalidInput)
	}
	trip.Destination = strings.TrimSpace(trip.Destination)
	return nil
}

// List returns the trips visible to actor.
func (s *Service) List(ctx context.Context, actor *models.User, f models.TripFilters) ([]models.Trip, models.Metadata, error) {
	f.CompanyID = actor.CompanyID
	if actor.Role == types.DriverRole {
		f.DriverID = actor.ID
	}

	trips, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, models.Metadata{}, err
	}
	return trips, models.CalculateMetadata(total, f.Page, f.PageSize), nil
}

// Get returns a trip visible to actor. Trips of others are reported as not found.
func (s *Service) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Trip, error) {
	trip, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(actor, trip) {
		return nil, types.ErrTripNotFound
	}
	return trip, nil
}

// Update edits a stored trip. Live trips are owned by their session and cannot be edited.
func (s *Service) Update(ctx context.Context, actor *models.User, id uuid.UUID, upd models.TripUpdate) (*models.Trip, error) {
	ctx = wrap.WithTripID(wrap.WithAction(ctx, "update_trip"), id.String())

	if s.IsLive(id) {
		return nil, types.ErrTripIsLive
	}

	trip, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if upd.Origin != nil {
		trip.Origin = *upd.Origin
	}
	if upd.Destination != nil {
		trip.Destination = *upd.Destination
	}
	if upd.Status != nil {
		trip.Status = *upd.Status
	}
	if upd.EndDate != nil {
		trip.EndDate = upd.EndDate
	}
	if upd.ElapsedSeconds != nil {
		trip.ElapsedSeconds = *upd.ElapsedSeconds
	}
	if upd.AlertCount != nil {
		trip.AlertCount = *upd.AlertCount
	}
	if upd.ResponseCount != nil {
		trip.ResponseCount = *upd.ResponseCount
	}

	if trip.Status != types.TripFinished {
		return nil, fmt.Errorf("%w: a stored trip can only be FINISHED", types.ErrInvalidInput)
	}
	if err := s.checkRecord(trip); err != nil {
		return nil, err
	}
	if trip.EndDate == nil {
		end := s.clock.Now()
		trip.EndDate = &end
	}
	trip.Effectiveness = monitor.Effectiveness(trip.AlertCount, trip.ResponseCount)

	if err := s.repo.Update(ctx, trip); err != nil {
		return nil, err
	}
	return trip, nil
}

func (s *Service) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	ctx = wrap.WithTripID(wrap.WithAction(ctx, "delete_trip"), id.String())

	if s.IsLive(id) {
		return types.ErrTripIsLive
	}
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, types.ErrTripNotFound) {
			return err
		}
		return wrap.Error(ctx, err)
	}

	s.log.Info(ctx, "trip deleted")
	return nil
}
