package user

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/predictpesa/predictpesa-api/pkg/errors"
)

// Role is the platform role of an account.
type Role string

const (
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleOracle    Role = "oracle"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleModerator, RoleOracle:
		return true
	}
	return false
}

// Status is the moderation state of an account.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
	StatusBanned    Status = "banned"
)

// MinPasswordLength is enforced by NewUser.
const MinPasswordLength = 8

var hashCost = bcrypt.DefaultCost

// SetPasswordHashCost changes the bcrypt cost used by NewUser.  Tests lower
// it to bcrypt.MinCost.
func SetPasswordHashCost(cost int) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashCost = cost
}

// User is a registered account.
type User struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	Username          string     `json:"username,omitempty"`
	PasswordHash      string     `json:"-"`
	FirstName         string     `json:"first_name,omitempty"`
	LastName          string     `json:"last_name,omitempty"`
	PhoneNumber       string     `json:"phone_number,omitempty"`
	CountryCode       string     `json:"country_code,omitempty"`
	Timezone          string     `json:"timezone"`
	PreferredCurrency string     `json:"preferred_currency"`
	Bio               string     `json:"bio,omitempty"`
	AvatarURL         string     `json:"avatar_url,omitempty"`
	Role              Role       `json:"role"`
	Status            Status     `json:"status"`
	IsActive          bool       `json:"is_active"`
	IsVerified        bool       `json:"is_verified"`
	HederaAccountID   string     `json:"hedera_account_id,omitempty"`
	WalletAddress     string     `json:"wallet_address,omitempty"`
	TotalStakes       int        `json:"total_stakes"`
	TotalWinnings     float64    `json:"total_winnings"`
	SuccessRate       float64    `json:"success_rate"`
	ReputationScore   int        `json:"reputation_score"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
	EmailVerifiedAt   *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// NewUser validates the registration input and returns an active,
// unverified account with a bcrypt password hash.
func NewUser(email, password, firstName, lastName string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, errors.Validation("invalid email address")
	}
	if len(password) < MinPasswordLength {
		return nil, errors.Validation("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to hash password")
	}

	now := time.Now().UTC()
	return &User{
		ID:                uuid.NewString(),
		Email:             email,
		PasswordHash:      string(hash),
		FirstName:         strings.TrimSpace(firstName),
		LastName:          strings.TrimSpace(lastName),
		Timezone:          "UTC",
		PreferredCurrency: "USD",
		Role:              RoleUser,
		Status:            StatusActive,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// CheckPassword compares password with the stored hash.
func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// FullName joins the first and last name, falling back to username, then
// email.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}

// DisplayName prefers the username.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.FullName()
}

func (u *User) IsAdmin() bool     { return u.Role == RoleAdmin }
func (u *User) IsModerator() bool { return u.Role == RoleAdmin || u.Role == RoleModerator }
func (u *User) IsOracle() bool    { return u.Role == RoleOracle }

// CanCreateMarkets requires an active, verified account in good standing.
func (u *User) CanCreateMarkets() bool {
	return u.IsActive && u.IsVerified && u.Status == StatusActive
}

// CanStake additionally requires a linked Hedera account.
func (u *User) CanStake() bool {
	return u.CanCreateMarkets() && u.HederaAccountID != ""
}

// InGoodStanding reports whether the account may authenticate at all.
func (u *User) InGoodStanding() bool {
	return u.IsActive && u.Status == StatusActive
}

// MarkVerified records email verification.
func (u *User) MarkVerified(at time.Time) {
	u.IsVerified = true
	u.EmailVerifiedAt = &at
	u.UpdatedAt = at
}

// RecordLogin stamps the last login time.
func (u *User) RecordLogin(at time.Time) {
	u.LastLoginAt = &at
	u.UpdatedAt = at
}
