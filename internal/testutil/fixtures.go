package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/predictpesa/predictpesa-api/internal/domain/market"
	"github.com/predictpesa/predictpesa-api/internal/domain/user"
)

// Password is the password of every fixture user.
const Password = "correct-horse-battery"

// NewUser creates an active account in repo.  verified also links a Hedera
// account so the user may create markets and stake.
func NewUser(t *testing.T, repo user.Repository, email string, role user.Role, verified bool) *user.User {
	t.Helper()
	u, err := user.NewUser(email, Password, "Test", "User")
	require.NoError(t, err)
	u.Role = role
	if verified {
		u.MarkVerified(time.Now().UTC())
		u.HederaAccountID = "0.0.4242"
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

// MarketDraft returns a draft that passes validation and ends after end.
func MarketDraft(end time.Time) market.Draft {
	return market.Draft{
		Title:       "Will Nairobi record over 100mm of rain in April?",
		Description: "Resolves YES if the Kenya Meteorological Department reports more than 100mm for April.",
		Question:    "Will April rainfall in Nairobi exceed 100mm?",
		Category:    market.CategoryWeather,
		EndDate:     end,
		Tags:        []string{"weather", "kenya"},
	}
}
