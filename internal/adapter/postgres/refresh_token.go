package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RefreshTokenRepo struct {
	db *pgxpool.Pool
}

func NewRefreshTokenRepo(db *pgxpool.Pool) *RefreshTokenRepo {
	return &RefreshTokenRepo{db: db}
}

func (r *RefreshTokenRepo) Save(ctx context.Context, record *models.RefreshToken) error {
	const op = "RefreshTokenRepo.Save"
	if record == nil {
		return fmt.Errorf("%s: nil record", op)
	}

	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked, created_at)
		VALUES ($1, $2, $3, $4, false, $5)
		ON CONFLICT (id)
		DO UPDATE SET
			token_hash = EXCLUDED.token_hash,
			expires_at = EXCLUDED.expires_at,
			revoked = false,
			last_used_at = NULL;`

	if _, err := TxorDB(ctx, r.db).Exec(ctx, query, record.ID, record.UserID, record.TokenHash, record.ExpiresAt, record.CreatedAt); err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return nil
}

// Get locks the row when called inside a transaction so concurrent refreshes serialize.
func (r *RefreshTokenRepo) Get(ctx context.Context, tokenID uuid.UUID) (*models.RefreshToken, error) {
	const op = "RefreshTokenRepo.Get"
	query := `
		SELECT id, user_id, token_hash, expires_at, revoked, created_at
		FROM refresh_tokens
		WHERE id = $1
		FOR UPDATE;`

	var rec models.RefreshToken
	err := TxorDB(ctx, r.db).QueryRow(ctx, query, tokenID).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.TokenHash,
		&rec.ExpiresAt,
		&rec.Revoked,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}

	return &rec, nil
}

func (r *RefreshTokenRepo) MarkUsed(ctx context.Context, tokenID uuid.UUID) error {
	const op = "RefreshTokenRepo.MarkUsed"
	query := `
		UPDATE refresh_tokens
		SET revoked = true,
		    last_used_at = $2
		WHERE id = $1;`

	if _, err := TxorDB(ctx, r.db).Exec(ctx, query, tokenID, time.Now().UTC()); err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return nil
}

// RevokeAll revokes every refresh token of a user, e.g. after deactivation.
func (r *RefreshTokenRepo) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	const op = "RefreshTokenRepo.RevokeAll"
	if _, err := TxorDB(ctx, r.db).Exec(ctx, `UPDATE refresh_tokens SET revoked = true WHERE user_id = $1 AND NOT revoked;`, userID); err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return nil
}
