package trip

import (
	"context"
	"time"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/service/monitor"
	"github.com/google/uuid"
)

type TripRepo interface {
	Create(ctx context.Context, trip *models.Trip) error
	Get(ctx context.Context, id uuid.UUID) (*models.Trip, error)
	List(ctx context.Context, f models.TripFilters) ([]models.Trip, int, error)
	Update(ctx context.Context, trip *models.Trip) error
	Delete(ctx context.Context, id uuid.UUID) error
	FinishOrphaned(ctx context.Context, endDate time.Time) ([]models.Trip, error)
}

type UserRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type SessionMonitor interface {
	Start(ctx context.Context, destination string, observer monitor.Observer) (*monitor.Session, error)
	Routes() []string
}

type EventPublisher interface {
	PublishTripStarted(ctx context.Context, msg models.TripStartedMessage) error
	PublishTripFinished(ctx context.Context, msg models.TripFinishedMessage) error
}

// Streamer forwards live session state to the clients watching a trip.
type Streamer interface {
	PushSnapshot(tripID uuid.UUID, snap monitor.Snapshot)
	PushStopped(tripID uuid.UUID, summary monitor.TripSummary)
}
