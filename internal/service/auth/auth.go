package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
	"github.com/Temutjin2k/ispeed/pkg/trm"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	userRepo     UserRepo
	companyRepo  CompanyRepo
	refreshRepo  RefreshTokenRepo
	tokenService TokenProvider
	txManager    trm.TxManager
	log          logger.Logger
}

func NewAuthService(userRepo UserRepo, companyRepo CompanyRepo, refreshRepo RefreshTokenRepo, tokens TokenProvider, txManager trm.TxManager, log logger.Logger) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		companyRepo:  companyRepo,
		refreshRepo:  refreshRepo,
		tokenService: tokens,
		txManager:    txManager,
		log:          log,
	}
}

// Register creates a company together with its first supervisor account.
func (s *AuthService) Register(ctx context.Context, reg *models.Registration) (*models.Company, *models.User, error) {
	ctx = wrap.WithAction(ctx, "company_register")

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, wrap.Error(ctx, fmt.Errorf("failed to hash password: %w", err))
	}

	company := reg.Company
	company.Email = strings.ToLower(strings.TrimSpace(company.Email))

	supervisor := &models.User{
		Name:   reg.ContactName,
		Email:  company.Email,
		Phone:  reg.ContactPhone,
		Role:   types.SupervisorRole,
		Status: types.ActiveStatus,
	}
	supervisor.SetPassword(string(hash))

	err = s.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := s.companyRepo.Create(txCtx, &company); err != nil {
			return err
		}
		supervisor.CompanyID = company.ID
		return s.userRepo.Create(txCtx, supervisor)
	})
	if err != nil {
		if errors.Is(err, types.ErrRUCTaken) || errors.Is(err, types.ErrEmailTaken) {
			return nil, nil, err
		}
		s.log.Error(ctx, "failed to register company", err)
		return nil, nil, wrap.Error(ctx, err)
	}

	s.log.Info(wrap.WithUserID(ctx, supervisor.ID.String()), "company registered", "company_id", company.ID, "ruc", company.RUC)
	return &company, supervisor, nil
}

// Login checks the credentials and issues a token pair. The first login of an invited account activates it.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.TokenPair, *models.User, error) {
	ctx = wrap.WithAction(ctx, "user_login")

	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.GetPassword()), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	switch user.Status {
	case types.InActiveStatus:
		return nil, nil, ErrUserInactive
	case types.InvitedStatus:
		user.Status = types.ActiveStatus
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, nil, fmt.Errorf("failed to activate invited user: %w", err)
		}
		s.log.Info(wrap.WithUserID(ctx, user.ID.String()), "invited user activated")
	}

	tokens, err := s.tokenService.GenerateTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return tokens, user, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	return s.tokenService.Refresh(ctx, refreshToken)
}

// Logout revokes every refresh token of the user.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	ctx = wrap.WithAction(ctx, "user_logout")
	if err := s.refreshRepo.RevokeAll(ctx, userID); err != nil {
		return wrap.Error(ctx, err)
	}
	return nil
}

// RoleCheck resolves an access token to the active user it was issued for.
func (s *AuthService) RoleCheck(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokenService.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != models.Access {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if user.Status == types.InActiveStatus {
		return nil, ErrUserInactive
	}

	return user, nil
}

// Profile returns the user with its company.
func (s *AuthService) Profile(ctx context.Context, userID uuid.UUID) (*models.User, *models.Company, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	company, err := s.companyRepo.Get(ctx, user.CompanyID)
	if err != nil {
		return nil, nil, err
	}
	return user, company, nil
}
