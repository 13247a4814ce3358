package user

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

// Service manages the accounts of a company. Every call is scoped to the actor's company.
type Service struct {
	repo      UserRepo
	tokens    TokenRevoker
	live      LiveTrips
	txManager trm.TxManager
	hashCost  int
	log       logger.Logger
}

func NewService(repo UserRepo, tokens TokenRevoker, live LiveTrips, txManager trm.TxManager, log logger.Logger) *Service {
	return &Service{
		repo:      repo,
		tokens:    tokens,
		live:      live,
		txManager: txManager,
		hashCost:  bcrypt.DefaultCost,
		log:       log,
	}
}

// Create adds an account to the actor's company. Drivers start INVITED and become ACTIVE on first login.
func (s *Service) Create(ctx context.Context, actor *models.User, u *models.User, password string) error {
	ctx = wrap.WithAction(ctx, "user_create")

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to hash password: %w", err))
	}

	u.CompanyID = actor.CompanyID
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = types.DriverRole
	}
	if u.Role == types.DriverRole {
		u.Status = types.InvitedStatus
	} else {
		u.Status = types.ActiveStatus
	}
	u.SetPassword(string(hash))

	if err := s.repo.Create(ctx, u); err != nil {
		return err
	}

	s.log.Info(wrap.WithUserID(ctx, actor.ID.String()), "user created", "new_user_id", u.ID, "role", u.Role)
	return nil
}

func (s *Service) Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// other companies' users do not exist for the actor
	if u.CompanyID != actor.CompanyID {
		return nil, types.ErrUserNotFound
	}
	return u, nil
}

func (s *Service) List(ctx context.Context, actor *models.User, role types.UserRole, f models.Filters) ([]models.User, models.Metadata, error) {
	users, total, err := s.repo.List(ctx, actor.CompanyID, role, f)
	if err != nil {
		return nil, models.Metadata{}, err
	}
	return users, models.CalculateMetadata(total, f.Page, f.PageSize), nil
}

// Update applies upd. Deactivating an account revokes its refresh tokens.
// Supervisors cannot change their own role or status.
func (s *Service) Update(ctx context.Context, actor *models.User, id uuid.UUID, upd models.UserUpdate) (*models.User, error) {
	ctx = wrap.WithAction(ctx, "user_update")

	if id == actor.ID && (upd.Role != nil || upd.Status != nil) {
		return nil, fmt.Errorf("%w: cannot change own role or status", types.ErrForbidden)
	}

	var updated *models.User
	err := s.txManager.Do(ctx, func(txCtx context.Context) error {
		u, err := s.Get(txCtx, actor, id)
		if err != nil {
			return err
		}

		if upd.Name != nil {
			u.Name = *upd.Name
		}
		if upd.Phone != nil {
			u.Phone = *upd.Phone
		}
		if upd.Role != nil {
			u.Role = *upd.Role
		}
		deactivated := false
		if upd.Status != nil {
			deactivated = *upd.Status == types.InActiveStatus && u.Status != types.InActiveStatus
			u.Status = *upd.Status
		}

		if err := s.repo.Update(txCtx, u); err != nil {
			return err
		}
		if deactivated {
			if err := s.tokens.RevokeAll(txCtx, u.ID); err != nil {
				return fmt.Errorf("failed to revoke tokens: %w", err)
			}
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	return updated, nil
}

// Delete removes an account of the actor's company. Drivers on a live trip cannot be removed.
func (s *Service) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	ctx = wrap.WithAction(ctx, "user_delete")

	if id == actor.ID {
		return fmt.Errorf("%w: cannot delete own account", types.ErrForbidden)
	}
	if s.live != nil && s.live.HasLiveTrip(id) {
		return types.ErrTripIsLive
	}

	if err := s.repo.Delete(ctx, actor.CompanyID, id); err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return err
		}
		return wrap.Error(ctx, err)
	}

	s.log.Info(wrap.WithUserID(ctx, actor.ID.String()), "user deleted", "deleted_user_id", id)
	return nil
}
