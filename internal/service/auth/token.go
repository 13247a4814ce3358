package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/pkg/clock"
	"github.com/Temutjin2k/ispeed/pkg/hasher"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
	"github.com/Temutjin2k/ispeed/pkg/trm"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the validated contents of an access or refresh token.
type Claims struct {
	UserID    uuid.UUID
	CompanyID uuid.UUID
	TokenID   uuid.UUID
	TokenType string
	Email     string
	Role      types.UserRole
	ExpiresAt time.Time
}

type TokenService struct {
	userRepo    UserRepo
	refreshRepo RefreshTokenRepo
	txManager   trm.TxManager
	clock       clock.Clock
	RefreshTTL  time.Duration
	AccessTTL   time.Duration
	secret      []byte
	log         logger.Logger
}

func NewTokenService(secret string, userRepo UserRepo, refreshRepo RefreshTokenRepo, txManager trm.TxManager, clk clock.Clock, refreshTTL, accessTTL time.Duration, log logger.Logger) *TokenService {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &TokenService{
		userRepo:    userRepo,
		refreshRepo: refreshRepo,
		txManager:   txManager,
		clock:       clk,
		RefreshTTL:  refreshTTL,
		AccessTTL:   accessTTL,
		secret:      []byte(secret),
		log:         log,
	}
}

// GenerateTokens issues an access/refresh pair for user and stores the refresh token hash.
func (s *TokenService) GenerateTokens(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	ctx = wrap.WithAction(ctx, "generate_tokens")
	if user == nil {
		return nil, wrap.Error(ctx, errors.New("user is nil"))
	}

	issuedAt := s.clock.Now().UTC()
	refreshID := uuid.New()

	accessExp := issuedAt.Add(s.AccessTTL)
	refreshExp := issuedAt.Add(s.RefreshTTL)

	accessToken, err := s.signClaims(NewAccessClaim(user, issuedAt, s.AccessTTL, uuid.New()))
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	refreshToken, err := s.signClaims(NewRefreshClaim(user, issuedAt, s.RefreshTTL, refreshID))
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	record := &models.RefreshToken{
		ID:        refreshID,
		UserID:    user.ID,
		TokenHash: hasher.Hash(refreshToken),
		ExpiresAt: refreshExp,
		CreatedAt: issuedAt,
	}
	if err := s.refreshRepo.Save(ctx, record); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to persist refresh token: %w", err))
	}

	return &models.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new pair is issued.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	ctx = wrap.WithAction(ctx, "refresh_token")

	claims, err := s.Validate(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != models.Refresh {
		return nil, wrap.Error(ctx, ErrInvalidToken)
	}

	var pair *models.TokenPair
	txErr := s.txManager.Do(ctx, func(txCtx context.Context) error {
		record, err := s.refreshRepo.Get(txCtx, claims.TokenID)
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				return ErrInvalidToken
			}
			return fmt.Errorf("failed to load refresh token record: %w", err)
		}

		if record.Revoked {
			return ErrInvalidToken
		}

		if s.clock.Now().After(record.ExpiresAt) {
			if err := s.refreshRepo.MarkUsed(txCtx, record.ID); err != nil {
				return fmt.Errorf("failed to revoke expired refresh token: %w", err)
			}
			return ErrExpToken
		}

		if !hasher.Verify(refreshToken, record.TokenHash) {
			if err := s.refreshRepo.MarkUsed(txCtx, record.ID); err != nil {
				return fmt.Errorf("failed to revoke mismatched refresh token: %w", err)
			}
			return ErrInvalidToken
		}

		if err := s.refreshRepo.MarkUsed(txCtx, record.ID); err != nil {
			return fmt.Errorf("failed to mark refresh token as used: %w", err)
		}

		user, err := s.userRepo.GetByID(txCtx, claims.UserID)
		if err != nil {
			return fmt.Errorf("failed to load user for refresh token: %w", err)
		}
		if user.Status == types.InActiveStatus {
			return ErrUserInactive
		}

		pair, err = s.GenerateTokens(txCtx, user)
		return err
	})
	if txErr != nil {
		return nil, wrap.Error(ctx, txErr)
	}

	return pair, nil
}

// Validate parses token and checks its signature, expiry and required claims.
func (s *TokenService) Validate(ctx context.Context, token string) (*Claims, error) {
	ctx = wrap.WithAction(ctx, "validate_token")

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, wrap.Error(ctx, ErrExpToken)
		}
		return nil, wrap.Error(ctx, ErrInvalidToken)
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, wrap.Error(ctx, ErrInvalidToken)
	}

	typ, _ := mc["typ"].(string)
	if typ != models.Access && typ != models.Refresh {
		return nil, wrap.Error(ctx, ErrInvalidToken)
	}

	userID, err := uuidClaim(mc, "user_id")
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	tokenID, err := uuidClaim(mc, "jti")
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	claims := &Claims{
		UserID:    userID,
		TokenID:   tokenID,
		TokenType: typ,
	}
	claims.Email, _ = mc["email"].(string)
	if role, ok := mc["role"].(string); ok {
		claims.Role = types.UserRole(role)
	}
	if cid, err := uuidClaim(mc, "company_id"); err == nil {
		claims.CompanyID = cid
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}

	return claims, nil
}

func uuidClaim(mc jwt.MapClaims, key string) (uuid.UUID, error) {
	raw, _ := mc[key].(string)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%w: missing %q claim", ErrInvalidToken, key)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed %q claim", ErrInvalidToken, key)
	}
	return id, nil
}

func (s *TokenService) signClaims(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func NewAccessClaim(user *models.User, issuedAt time.Time, accessTTL time.Duration, tokenID uuid.UUID) jwt.Claims {
	return jwt.MapClaims{
		"typ":        models.Access,
		"jti":        tokenID.String(),
		"user_id":    user.ID.String(),
		"company_id": user.CompanyID.String(),
		"email":      user.Email,
		"role":       string(user.Role),
		"iat":        issuedAt.Unix(),
		"exp":        issuedAt.Add(accessTTL).Unix(),
	}
}

func NewRefreshClaim(user *models.User, issuedAt time.Time, refreshTTL time.Duration, tokenID uuid.UUID) jwt.Claims {
	return jwt.MapClaims{
		"typ":     models.Refresh,
		"jti":     tokenID.String(),
		"user_id": user.ID.String(),
		"iat":     issuedAt.Unix(),
		"exp":     issuedAt.Add(refreshTTL).Unix(),
	}
}
