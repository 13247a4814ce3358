package stats

import (
	"context"
	"fmt"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
	"github.com/Temutjin2k/ispeed/pkg/trm"
	"github.com/google/uuid"
)

type StatsRepo interface {
	MarkProcessed(ctx context.Context, tripID uuid.UUID) (bool, error)
	Apply(ctx context.Context, msg models.TripFinishedMessage) error
}

// Service folds finished trips into per-driver aggregates.
type Service struct {
	repo      StatsRepo
	txManager trm.TxManager
	log       logger.Logger
}

func NewService(repo StatsRepo, txManager trm.TxManager, log logger.Logger) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		log:       log,
	}
}

// HandleTripFinished applies msg once. Redelivered messages are acknowledged without effect.
func (s *Service) HandleTripFinished(ctx context.Context, msg models.TripFinishedMessage) error {
	ctx = wrap.WithAction(ctx, "apply_trip_stats")

	if err := validate(msg); err != nil {
		return err
	}

	var applied bool
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		fresh, err := s.repo.MarkProcessed(ctx, msg.TripID)
		if err != nil {
			return err
		}
		if !fresh {
			return nil
		}
		applied = true
		return s.repo.Apply(ctx, msg)
	})
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to apply trip stats: %w", err))
	}

	if !applied {
		s.log.Debug(ctx, "trip already counted, skipping")
		return nil
	}
	s.log.Info(ctx, "driver stats updated",
		"driver_id", msg.DriverID,
		"alerts", msg.AlertCount,
		"responses", msg.ResponseCount,
	)
	return nil
}

func validate(msg models.TripFinishedMessage) error {
	switch {
	case msg.TripID == uuid.Nil:
		return fmt.Errorf("%w: trip_id is required", types.ErrInvalidInput)
	case msg.DriverID == uuid.Nil:
		return fmt.Errorf("%w: driver_id is required", types.ErrInvalidInput)
	case msg.CompanyID == uuid.Nil:
		return fmt.Errorf("%w: company_id is required", types.ErrInvalidInput)
	case msg.ElapsedSeconds < 0 || msg.AlertCount < 0 || msg.ResponseCount < 0:
		return fmt.Errorf("%w: counters must not be negative", types.ErrInvalidInput)
	case msg.ResponseCount > msg.AlertCount:
		return fmt.Errorf("%w: response_count exceeds alert_count", types.ErrInvalidInput)
	}
	return nil
}
