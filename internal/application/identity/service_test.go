package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/predictpesa/predictpesa-api/internal/config"
	"github.com/predictpesa/predictpesa-api/internal/domain/events"
	"github.com/predictpesa/predictpesa-api/internal/domain/market"
	"github.com/predictpesa/predictpesa-api/internal/domain/user"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/auth/jwtauth"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/database/memory"
	"github.com/predictpesa/predictpesa-api/internal/testutil"
	"github.com/predictpesa/predictpesa-api/pkg/errors"
)

func init() { user.SetPasswordHashCost(bcrypt.MinCost) }

type fakeSessions struct {
	cached    []*jwtauth.Identity
	loggedOut []string
}

func (f *fakeSessions) CacheIdentity(_ context.Context, id *jwtauth.Identity) bool {
	f.cached = append(f.cached, id)
	return true
}

func (f *fakeSessions) Logout(_ context.Context, userID, token string) {
	f.loggedOut = append(f.loggedOut, userID+"|"+token)
}

type fixture struct {
	svc      Service
	users    *memory.UserRepository
	markets  *memory.MarketRepository
	stakes   *memory.StakeRepository
	sessions *fakeSessions
	events   *events.Recorder
	logger   *testutil.MockLogger
	issuer   *jwtauth.Issuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	issuer, err := jwtauth.NewIssuer(config.AuthConfig{SecretKey: "identity-test", AccessTokenTTL: 30 * time.Minute})
	require.NoError(t, err)
	f := &fixture{
		users:    memory.NewUserRepository(),
		markets:  memory.NewMarketRepository(),
		stakes:   memory.NewStakeRepository(),
		sessions: &fakeSessions{},
		events:   &events.Recorder{},
		logger:   testutil.NewMockLogger(),
		issuer:   issuer,
	}
	f.svc = NewService(Deps{
		Users:    f.users,
		Markets:  f.markets,
		Stakes:   f.stakes,
		Issuer:   issuer,
		Sessions: f.sessions,
		Events:   f.events,
		Logger:   f.logger,
	})
	return f
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, &RegisterRequest{Email: " Achieng@PredictPesa.com ", Password: "longenough", FirstName: "Achieng", CountryCode: "ke"})
	require.NoError(t, err)
	assert.Equal(t, "achieng@predictpesa.com", u.Email)
	assert.Equal(t, user.RoleUser, u.Role)
	assert.False(t, u.IsVerified)
	assert.Equal(t, "KE", u.CountryCode)
	assert.True(t, u.CheckPassword("longenough"))
	assert.Equal(t, []string{events.TopicUserRegistered}, f.events.Topics())

	_, err = f.svc.Register(ctx, &RegisterRequest{Email: "achieng@predictpesa.com", Password: "longenough"})
	assert.ErrorIs(t, err, user.ErrEmailExists)
	assert.Equal(t, 400, errors.HTTPStatusForCode(errors.GetCode(err)))

	_, err = f.svc.Register(ctx, &RegisterRequest{Email: "short@predictpesa.com", Password: "short"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	_, err = f.svc.Register(ctx, &RegisterRequest{Email: "x@predictpesa.com", Password: "longenough", CountryCode: "KEN"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestRegister_PublishFailureIsLogged(t *testing.T) {
	f := newFixture(t)
	f.events.Err = errors.New(errors.ErrCodeExternalService, "broker down")

	_, err := f.svc.Register(context.Background(), &RegisterRequest{Email: "kofi@predictpesa.com", Password: "longenough"})
	require.NoError(t, err)
	assert.True(t, f.logger.HasMessage("warn", "Failed to publish event"))
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := testutil.NewUser(t, f.users, "baraka@predictpesa.com", user.RoleOracle, true)

	resp, err := f.svc.Login(ctx, &LoginRequest{Email: "BARAKA@predictpesa.com", Password: testutil.Password})
	require.NoError(t, err)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.InDelta(t, 1800, resp.ExpiresIn, 2)
	assert.Equal(t, u.ID, resp.User.ID)

	v, err := jwtauth.NewValidator(config.AuthConfig{SecretKey: "identity-test"})
	require.NoError(t, err)
	claims, err := v.Validate(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.Subject)
	assert.Equal(t, "oracle", claims.Role)
	assert.True(t, claims.IsVerified)
	assert.Equal(t, "baraka@predictpesa.com", claims.Email)

	require.Len(t, f.sessions.cached, 1)
	assert.Equal(t, u.ID, f.sessions.cached[0].UserID)

	stored, _ := f.users.GetByID(ctx, u.ID)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := testutil.NewUser(t, f.users, "chebet@predictpesa.com", user.RoleUser, false)

	_, err := f.svc.Login(ctx, &LoginRequest{Email: "chebet@predictpesa.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 401, errors.HTTPStatusForCode(errors.GetCode(err)))

	_, err = f.svc.Login(ctx, &LoginRequest{Email: "nobody@predictpesa.com", Password: testutil.Password})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	u.Status = user.StatusSuspended
	require.NoError(t, f.users.Update(ctx, u))
	_, err = f.svc.Login(ctx, &LoginRequest{Email: "chebet@predictpesa.com", Password: testutil.Password})
	assert.ErrorIs(t, err, ErrInactiveUser)
	assert.Empty(t, f.sessions.cached)
}

func TestLogoutAndRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := testutil.NewUser(t, f.users, "daudi@predictpesa.com", user.RoleUser, true)
	id := &jwtauth.Identity{UserID: u.ID, Role: "user"}

	resp, err := f.svc.Refresh(ctx, id)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	f.svc.Logout(ctx, id, resp.AccessToken)
	assert.Equal(t, []string{u.ID + "|" + resp.AccessToken}, f.sessions.loggedOut)
	assert.Equal(t, []string{events.TopicUserLoggedOut}, f.events.Topics())

	_, err = f.svc.Refresh(ctx, &jwtauth.Identity{UserID: "ghost"})
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestUpdateProfileAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := testutil.NewUser(t, f.users, "esther@predictpesa.com", user.RoleUser, true)

	bio := "  Markets nerd  "
	updated, err := f.svc.UpdateProfile(ctx, u.ID, &UpdateProfileRequest{Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "Markets nerd", updated.Bio)
	assert.Equal(t, "Test", updated.FirstName)
	assert.Len(t, f.sessions.cached, 1)

	bad := "KEN"
	_, err = f.svc.UpdateProfile(ctx, u.ID, &UpdateProfileRequest{CountryCode: &bad})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	now := time.Now().UTC()
	require.NoError(t, f.markets.Create(ctx, &market.Market{ID: "m-1", CreatorID: u.ID, CreatedAt: now}))
	for i, st := range []market.StakeStatus{market.StakePending, market.StakeSettled, market.StakeCancelled} {
		require.NoError(t, f.stakes.Create(ctx, &market.Stake{
			ID: string(rune('a' + i)), UserID: u.ID, MarketID: "m-1", Amount: 0.5, Status: st, CreatedAt: now,
		}))
	}

	stats, err := f.svc.Stats(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalStakes)
	assert.Equal(t, 1, stats.ActiveStakes)
	assert.InDelta(t, 1.0, stats.TotalStaked, 1e-9)
	assert.Equal(t, 1, stats.MarketsCreated)
}

func TestSeedDemoUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SeedDemoUser(ctx))
	require.NoError(t, f.svc.SeedDemoUser(ctx))

	demo, err := f.users.GetByEmail(ctx, DemoEmail)
	require.NoError(t, err)
	assert.True(t, demo.IsVerified)
	assert.True(t, demo.CanStake())
	assert.True(t, demo.CheckPassword(DemoPassword))
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, u *user.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, u *user.User) error {
	return m.Called(ctx, u).Error(0)
}

func TestSource_LookupIdentity(t *testing.T) {
	ctx := context.Background()
	repo := new(mockUserRepo)
	src := NewSource(repo)
	var _ jwtauth.IdentitySource = src

	active := &user.User{ID: "u-1", Email: "f@predictpesa.com", Role: user.RoleAdmin, IsActive: true, Status: user.StatusActive, IsVerified: true}
	banned := &user.User{ID: "u-2", IsActive: true, Status: user.StatusBanned}

	repo.On("GetByID", ctx, "u-1").Return(active, nil)
	repo.On("GetByID", ctx, "u-2").Return(banned, nil)
	repo.On("GetByID", ctx, "u-3").Return(nil, user.ErrNotFound)
	repo.On("GetByID", ctx, "u-4").Return(nil, errors.New(errors.ErrCodeDatabaseError, "connection refused"))

	id, err := src.LookupIdentity(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, &jwtauth.Identity{UserID: "u-1", Email: "f@predictpesa.com", Role: "admin", IsVerified: true}, id)

	_, err = src.LookupIdentity(ctx, "u-2")
	assert.True(t, errors.IsCode(err, errors.ErrCodeUserInactive))

	_, err = src.LookupIdentity(ctx, "u-3")
	assert.True(t, errors.IsCode(err, errors.ErrCodeUserNotFound))

	_, err = src.LookupIdentity(ctx, "u-4")
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
	assert.False(t, errors.IsCode(err, errors.ErrCodeUserNotFound))

	repo.AssertExpectations(t)
}
