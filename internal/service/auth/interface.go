package auth

import (
	"context"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/google/uuid"
)

type UserRepo interface {
	Create(ctx context.Context, u *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
}

type CompanyRepo interface {
	Create(ctx context.Context, c *models.Company) error
	Get(ctx context.Context, id uuid.UUID) (*models.Company, error)
}

type RefreshTokenRepo interface {
	Save(ctx context.Context, record *models.RefreshToken) error
	Get(ctx context.Context, tokenID uuid.UUID) (*models.RefreshToken, error)
	MarkUsed(ctx context.Context, tokenID uuid.UUID) error
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

type TokenProvider interface {
	GenerateTokens(ctx context.Context, user *models.User) (*models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Validate(ctx context.Context, token string) (*Claims, error)
}
