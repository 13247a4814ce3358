package user

import (
	"context"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/google/uuid"
)

type UserRepo interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, companyID uuid.UUID, role types.UserRole, f models.Filters) ([]models.User, int, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, companyID, id uuid.UUID) error
}

type TokenRevoker interface {
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

// LiveTrips reports whether a driver is currently being monitored.
type LiveTrips interface {
	HasLiveTrip(driverID uuid.UUID) bool
}
