package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/predictpesa/predictpesa-api/pkg/errors"
)

func init() { hashCost = bcrypt.MinCost }

func TestNewUser(t *testing.T) {
	u, err := NewUser("  Alice@PredictPesa.com ", "correct-horse", "Alice", "Wanjiru")
	require.NoError(t, err)

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice@predictpesa.com", u.Email)
	assert.Equal(t, RoleUser, u.Role)
	assert.Equal(t, StatusActive, u.Status)
	assert.True(t, u.IsActive)
	assert.False(t, u.IsVerified)
	assert.NotEqual(t, "correct-horse", u.PasswordHash)
	assert.True(t, u.CheckPassword("correct-horse"))
	assert.False(t, u.CheckPassword("wrong-horse"))
}

func TestNewUser_Validation(t *testing.T) {
	_, err := NewUser("not-an-email", "correct-horse", "", "")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	_, err = NewUser("Bob <bob@predictpesa.com>", "correct-horse", "", "")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	_, err = NewUser("bob@predictpesa.com", "short", "", "")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestUser_Names(t *testing.T) {
	u := &User{Email: "e@x.io"}
	assert.Equal(t, "e@x.io", u.DisplayName())

	u.LastName = "Otieno"
	assert.Equal(t, "Otieno", u.FullName())

	u.FirstName = "Grace"
	assert.Equal(t, "Grace Otieno", u.FullName())
	assert.Equal(t, "Grace Otieno", u.DisplayName())

	u.Username = "grace"
	assert.Equal(t, "grace", u.DisplayName())
}

func TestUser_Roles(t *testing.T) {
	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
	assert.True(t, (&User{Role: RoleAdmin}).IsModerator())
	assert.True(t, (&User{Role: RoleModerator}).IsModerator())
	assert.False(t, (&User{Role: RoleUser}).IsModerator())
	assert.True(t, (&User{Role: RoleOracle}).IsOracle())
	assert.True(t, RoleOracle.IsValid())
	assert.False(t, Role("root").IsValid())
}

func TestUser_Permissions(t *testing.T) {
	tests := []struct {
		name         string
		u            User
		canCreate    bool
		canStake     bool
		goodStanding bool
	}{
		{"verified with hedera", User{IsActive: true, IsVerified: true, Status: StatusActive, HederaAccountID: "0.0.1234"}, true, true, true},
		{"verified without hedera", User{IsActive: true, IsVerified: true, Status: StatusActive}, true, false, true},
		{"unverified", User{IsActive: true, Status: StatusActive, HederaAccountID: "0.0.1"}, false, false, true},
		{"suspended", User{IsActive: true, IsVerified: true, Status: StatusSuspended, HederaAccountID: "0.0.1"}, false, false, false},
		{"deactivated", User{IsVerified: true, Status: StatusActive}, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.canCreate, tt.u.CanCreateMarkets())
			assert.Equal(t, tt.canStake, tt.u.CanStake())
			assert.Equal(t, tt.goodStanding, tt.u.InGoodStanding())
		})
	}
}

func TestUser_Stamps(t *testing.T) {
	u := &User{}
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	u.MarkVerified(at)
	assert.True(t, u.IsVerified)
	assert.Equal(t, at, *u.EmailVerifiedAt)

	u.RecordLogin(at.Add(time.Hour))
	assert.Equal(t, at.Add(time.Hour), *u.LastLoginAt)
	assert.Equal(t, at.Add(time.Hour), u.UpdatedAt)
}
