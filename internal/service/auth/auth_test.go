package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/pkg/clock"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type noTx struct{}

func (noTx) Do(ctx context.Context, fn func(ctx context.Context) error) error         { return fn(ctx) }
func (noTx) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type memUsers struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*models.User
	calls int
}

func newMemUsers() *memUsers { return &memUsers{byID: map[uuid.UUID]*models.User{}} }

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return types.ErrEmailTaken
		}
	}
	u.ID = uuid.New()
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, types.ErrUserNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, types.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Update(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[u.ID]; !ok {
		return types.ErrUserNotFound
	}
	m.calls++
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

type memCompanies struct {
	byID map[uuid.UUID]*models.Company
}

func (m *memCompanies) Create(_ context.Context, c *models.Company) error {
	for _, existing := range m.byID {
		if existing.RUC == c.RUC {
			return types.ErrRUCTaken
		}
	}
	c.ID = uuid.New()
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memCompanies) Get(_ context.Context, id uuid.UUID) (*models.Company, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, types.ErrCompanyNotFound
	}
	cp := *c
	return &cp, nil
}

type memTokens struct {
	mu      sync.Mutex
	records map[uuid.UUID]*models.RefreshToken
}

func (m *memTokens) Save(_ context.Context, r *models.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.records[r.ID] = &cp
	return nil
}

func (m *memTokens) Get(_ context.Context, id uuid.UUID) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memTokens) MarkUsed(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[id]; ok {
		r.Revoked = true
	}
	return nil
}

func (m *memTokens) RevokeAll(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.UserID == userID {
			r.Revoked = true
		}
	}
	return nil
}

type fixture struct {
	users     *memUsers
	companies *memCompanies
	tokens    *memTokens
	clock     *clock.MockClock
	tokenSvc  *TokenService
	svc       *AuthService
}

func newFixture() *fixture {
	f := &fixture{
		users:     newMemUsers(),
		companies: &memCompanies{byID: map[uuid.UUID]*models.Company{}},
		tokens:    &memTokens{records: map[uuid.UUID]*models.RefreshToken{}},
		clock:     clock.NewMockClock(time.Now()),
	}
	f.tokenSvc = NewTokenService("test-secret", f.users, f.tokens, noTx{}, f.clock, time.Hour, time.Minute, logger.NewNop())
	f.svc = NewAuthService(f.users, f.companies, f.tokens, f.tokenSvc, noTx{}, logger.NewNop())
	return f
}

func registration() *models.Registration {
	return &models.Registration{
		Company: models.Company{
			Name:    "Transportes Andinos",
			RUC:     "20123456789",
			Address: "Av. Arequipa 123",
			Phone:   "+51 1 555 0101",
			Email:   "Ops@Andinos.pe",
		},
		ContactName:  "Rosa Quispe",
		ContactPhone: "+51 999 111 222",
		Password:     "s3cure-pass",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	company, supervisor, err := f.svc.Register(ctx, registration())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, company.ID)
	assert.Equal(t, company.ID, supervisor.CompanyID)
	assert.Equal(t, types.SupervisorRole, supervisor.Role)
	assert.Equal(t, "ops@andinos.pe", supervisor.Email)

	_, _, err = f.svc.Register(ctx, registration())
	assert.ErrorIs(t, err, types.ErrRUCTaken)

	pair, user, err := f.svc.Login(ctx, " OPS@andinos.pe ", "s3cure-pass")
	require.NoError(t, err)
	assert.Equal(t, supervisor.ID, user.ID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Equal(t, f.clock.Now().UTC().Add(time.Minute), pair.AccessExpiresAt)

	_, _, err = f.svc.Login(ctx, "ops@andinos.pe", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = f.svc.Login(ctx, "nobody@andinos.pe", "s3cure-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	got, err := f.svc.RoleCheck(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, supervisor.ID, got.ID)

	_, err = f.svc.RoleCheck(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "refresh token is not an access token")

	profile, profileCompany, err := f.svc.Profile(ctx, supervisor.ID)
	require.NoError(t, err)
	assert.Equal(t, supervisor.Email, profile.Email)
	assert.Equal(t, "20123456789", profileCompany.RUC)
}

func TestLoginActivatesInvitedDriver(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("driver-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	driver := &models.User{Email: "driver@andinos.pe", Role: types.DriverRole, Status: types.InvitedStatus}
	driver.SetPassword(string(hash))
	require.NoError(t, f.users.Create(ctx, driver))

	_, user, err := f.svc.Login(ctx, "driver@andinos.pe", "driver-pass")
	require.NoError(t, err)
	assert.Equal(t, types.ActiveStatus, user.Status)

	stored, _ := f.users.GetByID(ctx, driver.ID)
	assert.Equal(t, types.ActiveStatus, stored.Status)

	stored.Status = types.InActiveStatus
	require.NoError(t, f.users.Update(ctx, stored))
	_, _, err = f.svc.Login(ctx, "driver@andinos.pe", "driver-pass")
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestAccessTokenExpires(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, supervisor, err := f.svc.Register(ctx, registration())
	require.NoError(t, err)

	pair, err := f.tokenSvc.GenerateTokens(ctx, supervisor)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Minute)
	_, err = f.svc.RoleCheck(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpToken)
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, supervisor, err := f.svc.Register(ctx, registration())
	require.NoError(t, err)

	pair, err := f.tokenSvc.GenerateTokens(ctx, supervisor)
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	next, err := f.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	_, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "a used refresh token cannot be replayed")

	_, err = f.svc.Refresh(ctx, next.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, f.svc.Logout(ctx, supervisor.ID))
	_, err = f.svc.Refresh(ctx, next.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsForeignTokens(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	other := NewTokenService("other-secret", f.users, f.tokens, noTx{}, f.clock, time.Hour, time.Minute, logger.NewNop())
	pair, err := other.GenerateTokens(ctx, &models.User{ID: uuid.New(), Role: types.DriverRole})
	require.NoError(t, err)

	_, err = f.tokenSvc.Validate(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = f.tokenSvc.Validate(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims, err := other.Validate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, types.DriverRole, claims.Role)
	assert.Equal(t, models.Access, claims.TokenType)
}
