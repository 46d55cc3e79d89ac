// Package identity implements account registration, login, logout and the
// profile endpoints.
package identity

import (
	"context"
	"strings"
	"time"

	"github.com/predictpesa/predictpesa-api/internal/domain/events"
	"github.com/predictpesa/predictpesa-api/internal/domain/market"
	"github.com/predictpesa/predictpesa-api/internal/domain/user"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/auth/jwtauth"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/logging"
	"github.com/predictpesa/predictpesa-api/pkg/errors"
)

// TokenType is reported in every token response.
const TokenType = "bearer"

// Demo account seeded outside production.
const (
	DemoEmail           = "demo@predictpesa.com"
	DemoPassword        = "demo123456"
	demoHederaAccountID = "0.0.1001"
)

var (
	ErrInvalidCredentials = errors.New(errors.ErrCodeInvalidCredentials, "Incorrect email or password")
	ErrInactiveUser       = errors.New(errors.ErrCodeUserInactive, "Inactive user")
)

// Sessions is the part of the authenticator the service drives.  The
// *jwtauth.Authenticator type satisfies it.
type Sessions interface {
	CacheIdentity(ctx context.Context, identity *jwtauth.Identity) bool
	Logout(ctx context.Context, userID, token string)
}

// RegisterRequest is the input of Register.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Username    string `json:"username,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// Validate checks the fields NewUser does not.
func (r *RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return errors.Validation("email is required")
	}
	if len(r.FirstName) > 100 || len(r.LastName) > 100 {
		return errors.Validation("names must be at most 100 characters")
	}
	if r.CountryCode != "" && len(r.CountryCode) != 2 {
		return errors.Validation("country_code must be a two-letter code")
	}
	return nil
}

// LoginRequest is the input of Login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by Login and Refresh.
type TokenResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresIn   int64      `json:"expires_in"`
	User        *user.User `json:"user"`
}

// UpdateProfileRequest carries the editable profile fields.  Nil fields are
// left unchanged.
type UpdateProfileRequest struct {
	FirstName         *string `json:"first_name,omitempty"`
	LastName          *string `json:"last_name,omitempty"`
	Username          *string `json:"username,omitempty"`
	PhoneNumber       *string `json:"phone_number,omitempty"`
	CountryCode       *string `json:"country_code,omitempty"`
	Timezone          *string `json:"timezone,omitempty"`
	PreferredCurrency *string `json:"preferred_currency,omitempty"`
	Bio               *string `json:"bio,omitempty"`
	AvatarURL         *string `json:"avatar_url,omitempty"`
	HederaAccountID   *string `json:"hedera_account_id,omitempty"`
}

// Stats summarises a user's activity.
type Stats struct {
	TotalStakes     int     `json:"total_stakes"`
	ActiveStakes    int     `json:"active_stakes"`
	TotalStaked     float64 `json:"total_staked"`
	TotalWinnings   float64 `json:"total_winnings"`
	SuccessRate     float64 `json:"success_rate"`
	ReputationScore int     `json:"reputation_score"`
	MarketsCreated  int     `json:"markets_created"`
}

// Service is the identity use-case boundary.
type Service interface {
	Register(ctx context.Context, req *RegisterRequest) (*user.User, error)
	Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error)
	Logout(ctx context.Context, identity *jwtauth.Identity, token string)
	Refresh(ctx context.Context, identity *jwtauth.Identity) (*TokenResponse, error)
	Me(ctx context.Context, userID string) (*user.User, error)
	UpdateProfile(ctx context.Context, userID string, req *UpdateProfileRequest) (*user.User, error)
	Stats(ctx context.Context, userID string) (*Stats, error)
	SeedDemoUser(ctx context.Context) error
}

// Deps are the collaborators of the service.  Events and Logger may be nil.
type Deps struct {
	Users    user.Repository
	Markets  market.Repository
	Stakes   market.StakeRepository
	Issuer   *jwtauth.Issuer
	Sessions Sessions
	Events   events.Publisher
	Logger   logging.Logger
}

type serviceImpl struct {
	users    user.Repository
	markets  market.Repository
	stakes   market.StakeRepository
	issuer   *jwtauth.Issuer
	sessions Sessions
	events   events.Publisher
	logger   logging.Logger
	now      func() time.Time
}

// NewService wires the identity service.
func NewService(d Deps) Service {
	s := &serviceImpl{
		users:    d.Users,
		markets:  d.Markets,
		stakes:   d.Stakes,
		issuer:   d.Issuer,
		sessions: d.Sessions,
		events:   d.Events,
		logger:   d.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	if s.events == nil {
		s.events = events.NopPublisher{}
	}
	if s.logger == nil {
		s.logger = logging.NewNopLogger()
	}
	s.logger = s.logger.Named("identity")
	return s
}

func (s *serviceImpl) Register(ctx context.Context, req *RegisterRequest) (*user.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	u, err := user.NewUser(req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		return nil, err
	}
	u.Username = strings.TrimSpace(req.Username)
	u.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	u.CountryCode = strings.ToUpper(req.CountryCode)

	if _, err := s.users.GetByEmail(ctx, u.Email); err == nil {
		return nil, user.ErrEmailExists
	} else if !errors.IsCode(err, errors.ErrCodeUserNotFound) {
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", logging.String(logging.FieldUserID, u.ID))
	s.publish(ctx, events.New(events.TopicUserRegistered, u.ID, events.UserRegistered{UserID: u.ID, Email: u.Email}))
	return u, nil
}

// Login answers an unknown email and a wrong password with the same
// ErrInvalidCredentials.
func (s *serviceImpl) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !u.CheckPassword(req.Password) {
		return nil, ErrInvalidCredentials
	}
	if !u.InGoodStanding() {
		return nil, ErrInactiveUser
	}

	u.RecordLogin(s.now())
	if err := s.users.Update(ctx, u); err != nil {
		s.logger.Warn("Failed to record login", logging.String(logging.FieldUserID, u.ID), logging.Err(err))
	}

	resp, err := s.issue(ctx, u)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User logged in", logging.String(logging.FieldUserID, u.ID))
	return resp, nil
}

func (s *serviceImpl) Logout(ctx context.Context, identity *jwtauth.Identity, token string) {
	s.sessions.Logout(ctx, identity.UserID, token)
	s.publish(ctx, events.New(events.TopicUserLoggedOut, identity.UserID, events.UserLoggedOut{UserID: identity.UserID}))
}

func (s *serviceImpl) Refresh(ctx context.Context, identity *jwtauth.Identity) (*TokenResponse, error) {
	u, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	if !u.InGoodStanding() {
		return nil, ErrInactiveUser
	}
	return s.issue(ctx, u)
}

func (s *serviceImpl) Me(ctx context.Context, userID string) (*user.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *serviceImpl) UpdateProfile(ctx context.Context, userID string, req *UpdateProfileRequest) (*user.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.CountryCode != nil && *req.CountryCode != "" && len(*req.CountryCode) != 2 {
		return nil, errors.Validation("country_code must be a two-letter code")
	}
	if req.Bio != nil && len(*req.Bio) > 500 {
		return nil, errors.Validation("bio must be at most 500 characters")
	}

	apply(&u.FirstName, req.FirstName)
	apply(&u.LastName, req.LastName)
	apply(&u.Username, req.Username)
	apply(&u.PhoneNumber, req.PhoneNumber)
	apply(&u.CountryCode, req.CountryCode)
	apply(&u.Timezone, req.Timezone)
	apply(&u.PreferredCurrency, req.PreferredCurrency)
	apply(&u.Bio, req.Bio)
	apply(&u.AvatarURL, req.AvatarURL)
	apply(&u.HederaAccountID, req.HederaAccountID)
	u.UpdatedAt = s.now()

	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	// The cached snapshot follows the record.
	s.sessions.CacheIdentity(ctx, identityOf(u))
	return u, nil
}

func (s *serviceImpl) Stats(ctx context.Context, userID string) (*Stats, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	st := &Stats{
		TotalWinnings:   u.TotalWinnings,
		SuccessRate:     u.SuccessRate,
		ReputationScore: u.ReputationScore,
	}

	if s.stakes != nil {
		stakes, total, err := s.stakes.ListByUser(ctx, userID, 0, 0)
		if err != nil {
			return nil, err
		}
		st.TotalStakes = total
		for _, stake := range stakes {
			if stake.Status == market.StakeCancelled {
				continue
			}
			st.TotalStaked += stake.Amount
			if stake.Status == market.StakePending || stake.Status == market.StakeConfirmed {
				st.ActiveStakes++
			}
		}
	}
	if s.markets != nil {
		_, created, err := s.markets.List(ctx, market.Filter{CreatorID: userID, Limit: 1})
		if err != nil {
			return nil, err
		}
		st.MarketsCreated = created
	}
	return st, nil
}

// SeedDemoUser creates the verified demo account unless it already exists.
func (s *serviceImpl) SeedDemoUser(ctx context.Context) error {
	if _, err := s.users.GetByEmail(ctx, DemoEmail); err == nil {
		return nil
	} else if !errors.IsCode(err, errors.ErrCodeUserNotFound) {
		return err
	}

	u, err := user.NewUser(DemoEmail, DemoPassword, "Demo", "User")
	if err != nil {
		return err
	}
	u.Username = "demo"
	u.HederaAccountID = demoHederaAccountID
	u.MarkVerified(s.now())
	if err := s.users.Create(ctx, u); err != nil {
		return err
	}
	s.logger.Info("Seeded demo user", logging.String(logging.FieldUserID, u.ID))
	return nil
}

func (s *serviceImpl) issue(ctx context.Context, u *user.User) (*TokenResponse, error) {
	id := identityOf(u)
	token, exp, err := s.issuer.Issue(*id)
	if err != nil {
		return nil, err
	}
	s.sessions.CacheIdentity(ctx, id)

	expiresIn := int64(exp.Sub(s.now()).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}
	return &TokenResponse{
		AccessToken: token,
		TokenType:   TokenType,
		ExpiresIn:   expiresIn,
		User:        u,
	}, nil
}

func (s *serviceImpl) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.Warn("Failed to publish event",
			logging.String("topic", e.Topic),
			logging.Err(err),
		)
	}
}

func apply(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func identityOf(u *user.User) *jwtauth.Identity {
	return &jwtauth.Identity{
		UserID:     u.ID,
		Email:      u.Email,
		Role:       string(u.Role),
		IsVerified: u.IsVerified,
	}
}
