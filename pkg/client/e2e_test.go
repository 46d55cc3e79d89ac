package client_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/predictpesa/predictpesa-api/internal/application/identity"
	"github.com/predictpesa/predictpesa-api/internal/config"
	"github.com/predictpesa/predictpesa-api/internal/domain/user"
	"github.com/predictpesa/predictpesa-api/internal/interfaces/cli"
	"github.com/predictpesa/predictpesa-api/pkg/client"
)

// newAPI starts the full API stack over miniredis and returns an SDK client
// pointed at it.
func newAPI(t *testing.T, rpm int) (*client.Client, *miniredis.Miniredis) {
	t.Helper()
	user.SetPasswordHashCost(bcrypt.MinCost)

	mr := miniredis.RunT(t)
	cfg, err := config.LoadFromEnv()
	require.NoError(t, err)
	cfg.Server.Environment = config.EnvTesting
	cfg.Redis.Addr = mr.Addr()
	cfg.RateLimit.RequestsPerMinute = rpm

	app, err := cli.NewApp(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	srv := httptest.NewServer(app.Handler)
	t.Cleanup(srv.Close)

	c, err := client.NewClient(srv.URL, client.WithRetryWait(time.Millisecond, 10*time.Millisecond))
	require.NoError(t, err)
	return c, mr
}

func TestSDK_MarketAndStakeLifecycle(t *testing.T) {
	c, _ := newAPI(t, 100)
	ctx := context.Background()

	list, err := c.Markets().List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, list.Total)

	_, err = c.Markets().OracleSources(ctx)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsUnauthorized())
	assert.Equal(t, "COMMON_003", apiErr.Code)

	tok, err := c.Auth().Login(ctx, identity.DemoEmail, identity.DemoPassword)
	require.NoError(t, err)
	assert.Equal(t, tok.AccessToken, c.Token())
	assert.Equal(t, identity.DemoEmail, tok.User.Email)

	me, err := c.Auth().Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, tok.User.ID, me.ID)

	sources, err := c.Markets().OracleSources(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, sources)

	m, err := c.Markets().Create(ctx, &client.CreateMarketRequest{
		Title:       "Will Nairobi record over 100mm of rain in April?",
		Description: "Resolves YES if the Kenya Meteorological Department reports more than 100mm for April.",
		Question:    "Will April rainfall in Nairobi exceed 100mm?",
		Category:    "weather",
		EndDate:     time.Now().Add(72 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, me.ID, m.CreatorID)

	got, err := c.Markets().Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Title, got.Title)

	st, err := c.Stakes().Place(ctx, &client.PlaceStakeRequest{MarketID: m.ID, Position: "yes", Amount: 0.5})
	require.NoError(t, err)
	assert.Equal(t, "pending", st.Status)

	mine, err := c.Stakes().Mine(ctx, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 1, mine.Total)
	assert.Equal(t, st.ID, mine.Stakes[0].ID)

	stats, err := c.Markets().Stats(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalParticipants)
	assert.InDelta(t, 0.5, stats.YesStakeAmount, 1e-9)

	require.NoError(t, c.Stakes().Cancel(ctx, st.ID))
	cancelled, err := c.Stakes().Get(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)
}

func TestSDK_LogoutRevokesToken(t *testing.T) {
	c, mr := newAPI(t, 100)
	ctx := context.Background()

	_, err := c.Auth().Login(ctx, identity.DemoEmail, identity.DemoPassword)
	require.NoError(t, err)
	revoked := c.Token()

	require.NoError(t, c.Auth().Logout(ctx))
	assert.Empty(t, c.Token())
	assert.NotEmpty(t, mr.Keys())

	c.SetToken(revoked)
	_, err = c.Auth().Me(ctx)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsUnauthorized())
}

func TestSDK_RateLimitSurfacesRetryAfter(t *testing.T) {
	c, _ := newAPI(t, 100)
	ctx := context.Background()

	// Auth writes allow 5 per window.
	for i := 0; i < 5; i++ {
		_, err := c.Auth().Login(ctx, identity.DemoEmail, "wrong-password")
		var apiErr *client.APIError
		require.ErrorAs(t, err, &apiErr)
		require.True(t, apiErr.IsUnauthorized(), "attempt %d: %v", i+1, err)
	}

	_, err := c.Auth().Login(ctx, identity.DemoEmail, identity.DemoPassword)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsRateLimited())
	assert.Equal(t, "COMMON_007", apiErr.Code)
	assert.Equal(t, 60*time.Second, apiErr.RetryAfter)
	assert.NotEmpty(t, apiErr.RequestID)
}
