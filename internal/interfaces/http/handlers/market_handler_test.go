package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/predictpesa/predictpesa-api/internal/application/marketsvc"
	"github.com/predictpesa/predictpesa-api/internal/application/staking"
	"github.com/predictpesa/predictpesa-api/internal/config"
	"github.com/predictpesa/predictpesa-api/internal/domain/market"
	"github.com/predictpesa/predictpesa-api/internal/domain/oracle"
	"github.com/predictpesa/predictpesa-api/internal/domain/user"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/auth/jwtauth"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/database/memory"
	"github.com/predictpesa/predictpesa-api/internal/testutil"
	"github.com/predictpesa/predictpesa-api/pkg/errors"
)

func init() { user.SetPasswordHashCost(bcrypt.MinCost) }

// marketAPI mounts the market, oracle and stake handlers over in-memory
// storage.
type marketAPI struct {
	router  chi.Router
	markets *memory.MarketRepository

	creator *jwtauth.Identity
	staker  *jwtauth.Identity
	viewer  *jwtauth.Identity
	admin   *jwtauth.Identity
	oracle  *jwtauth.Identity
}

func identityOf(u *user.User) *jwtauth.Identity {
	return &jwtauth.Identity{UserID: u.ID, Email: u.Email, Role: string(u.Role), IsVerified: u.IsVerified}
}

func newMarketAPI(t *testing.T) *marketAPI {
	t.Helper()
	users := memory.NewUserRepository()
	markets := memory.NewMarketRepository()
	stakes := memory.NewStakeRepository()
	txs := memory.NewTransactionRepository()

	msvc := marketsvc.NewService(marketsvc.Deps{
		Markets:      markets,
		Stakes:       stakes,
		Users:        users,
		Oracle:       memory.NewOracleRepository(oracle.DefaultSources()...),
		Transactions: txs,
	})
	ssvc := staking.NewService(staking.Deps{
		Markets:      markets,
		Stakes:       stakes,
		Users:        users,
		Transactions: txs,
		Config:       config.MarketConfig{MinStakeAmount: 0.001, MaxStakeAmount: 10},
	})

	mh := NewMarketHandler(msvc)
	r := chi.NewRouter()
	r.Route("/markets", mh.RegisterRoutes)
	r.Route("/oracle", mh.RegisterOracleRoutes)
	r.Route("/stakes", NewStakeHandler(ssvc).RegisterRoutes)

	return &marketAPI{
		router:  r,
		markets: markets,
		creator: identityOf(testutil.NewUser(t, users, "creator@predictpesa.com", user.RoleUser, true)),
		staker:  identityOf(testutil.NewUser(t, users, "staker@predictpesa.com", user.RoleUser, true)),
		viewer:  identityOf(testutil.NewUser(t, users, "viewer@predictpesa.com", user.RoleUser, false)),
		admin:   identityOf(testutil.NewUser(t, users, "admin@predictpesa.com", user.RoleAdmin, true)),
		oracle:  identityOf(testutil.NewUser(t, users, "oracle@predictpesa.com", user.RoleOracle, true)),
	}
}

// do serves one request.  A nil id sends it anonymously.
func (a *marketAPI) do(t *testing.T, id *jwtauth.Identity, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, jsonBody(t, body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if id != nil {
		req = asUser(req, id)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *marketAPI) createMarket(t *testing.T) *market.Market {
	t.Helper()
	d := testutil.MarketDraft(time.Now().Add(72 * time.Hour))
	w := a.do(t, a.creator, "POST", "/markets/create", map[string]interface{}{
		"title":       d.Title,
		"description": d.Description,
		"question":    d.Question,
		"category":    d.Category,
		"end_date":    d.EndDate.Format(time.RFC3339),
		"tags":        d.Tags,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var m market.Market
	require.NoError(t, json.NewDecoder(w.Body).Decode(&m))
	return &m
}

func TestMarketHandler_CreateAndGet(t *testing.T) {
	api := newMarketAPI(t)
	m := api.createMarket(t)

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, market.StatusActive, m.Status)
	assert.Equal(t, api.creator.UserID, m.CreatorID)
	assert.Equal(t, 0.5, m.YesProbability)

	w := api.do(t, nil, "GET", "/markets/"+m.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), m.ID)

	w = api.do(t, nil, "GET", "/markets/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errors.ErrCodeMarketNotFound, decodeError(t, w).Code)
}

func TestMarketHandler_CreateRejections(t *testing.T) {
	api := newMarketAPI(t)
	d := testutil.MarketDraft(time.Now().Add(72 * time.Hour))
	valid := map[string]interface{}{
		"title": d.Title, "description": d.Description, "question": d.Question,
		"category": d.Category, "end_date": d.EndDate.Format(time.RFC3339),
	}

	w := api.do(t, api.viewer, "POST", "/markets/create", valid)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "User not authorized to create markets", decodeError(t, w).Message)

	short := map[string]interface{}{}
	for k, v := range valid {
		short[k] = v
	}
	short["title"] = "Too short"
	w = api.do(t, api.creator, "POST", "/markets/create", short)
	assert.GreaterOrEqual(t, w.Code, 400)
	assert.Less(t, w.Code, 500)

	w = api.do(t, nil, "POST", "/markets/create", valid)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMarketHandler_List(t *testing.T) {
	api := newMarketAPI(t)
	for i := 0; i < 3; i++ {
		api.createMarket(t)
	}

	w := api.do(t, nil, "GET", "/markets/?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res marketsvc.ListResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, 3, res.Total)
	assert.Len(t, res.Markets, 2)
	assert.Equal(t, 2, res.Limit)

	w = api.do(t, nil, "GET", "/markets/?category=weather&search=nairobi", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, 3, res.Total)

	for _, q := range []string{"limit=500", "category=astrology", "featured_only=maybe"} {
		w = api.do(t, nil, "GET", "/markets/?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestMarketHandler_UpdateAndDelete(t *testing.T) {
	api := newMarketAPI(t)
	m := api.createMarket(t)

	w := api.do(t, api.staker, "PUT", "/markets/"+m.ID, map[string]interface{}{"is_featured": true})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, api.admin, "PUT", "/markets/"+m.ID, map[string]interface{}{"is_featured": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_featured":true`)

	w = api.do(t, nil, "GET", "/markets/featured/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var featured []*market.Market
	require.NoError(t, json.NewDecoder(w.Body).Decode(&featured))
	require.Len(t, featured, 1)
	assert.Equal(t, m.ID, featured[0].ID)

	w = api.do(t, api.creator, "DELETE", "/markets/"+m.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Market deleted successfully"}`, w.Body.String())

	w = api.do(t, nil, "GET", "/markets/"+m.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarketHandler_StatsAndTrending(t *testing.T) {
	api := newMarketAPI(t)
	m := api.createMarket(t)

	w := api.do(t, api.staker, "POST", "/stakes/create", map[string]interface{}{"market_id": m.ID, "position": "yes", "amount": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(t, nil, "GET", "/markets/"+m.ID+"/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st marketsvc.Stats
	require.NoError(t, json.NewDecoder(w.Body).Decode(&st))
	assert.Equal(t, 2.0, st.TotalStakeAmount)
	assert.Equal(t, 1, st.TotalParticipants)
	assert.Equal(t, 1.0, st.YesProbability)
	assert.Positive(t, st.TimeRemaining)

	quiet := api.createMarket(t)
	w = api.do(t, nil, "GET", "/markets/trending/?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var trending []*market.Market
	require.NoError(t, json.NewDecoder(w.Body).Decode(&trending))
	require.Len(t, trending, 2)
	assert.Equal(t, m.ID, trending[0].ID)
	assert.Equal(t, quiet.ID, trending[1].ID)

	w = api.do(t, nil, "GET", "/markets/trending/?limit=51", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarketHandler_Resolve(t *testing.T) {
	api := newMarketAPI(t)
	m := api.createMarket(t)
	body := map[string]interface{}{"outcome": "yes", "source": "chainlink", "confidence": 0.9}

	w := api.do(t, api.staker, "POST", "/markets/"+m.ID+"/resolve", body)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Not authorized to resolve this market", decodeError(t, w).Message)

	// Markets without early resolution cannot settle before they end.
	w = api.do(t, api.oracle, "POST", "/markets/"+m.ID+"/resolve", body)
	assert.Equal(t, http.StatusConflict, w.Code)

	stored, err := api.markets.Get(context.Background(), m.ID)
	require.NoError(t, err)
	stored.AllowEarlyResolution = true
	require.NoError(t, api.markets.Update(context.Background(), stored))

	w = api.do(t, api.oracle, "POST", "/markets/"+m.ID+"/resolve", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resolved market.Market
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resolved))
	assert.Equal(t, market.StatusSettled, resolved.Status)
	assert.Equal(t, "yes", resolved.WinningOutcome)
}

func TestMarketHandler_Oracle(t *testing.T) {
	api := newMarketAPI(t)
	m := api.createMarket(t)

	w := api.do(t, api.staker, "GET", "/oracle/sources", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sources []*oracle.Source
	require.NoError(t, json.NewDecoder(w.Body).Decode(&sources))
	assert.Len(t, sources, 5)

	w = api.do(t, nil, "GET", "/oracle/market/"+m.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = api.do(t, api.oracle, "POST", "/oracle/submit", map[string]interface{}{
		"market_id": m.ID, "source_id": "chainlink", "outcome": "YES", "confidence": 0.95,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"verified"`)

	w = api.do(t, nil, "GET", "/oracle/market/"+m.ID, nil)
	var data []*oracle.Data
	require.NoError(t, json.NewDecoder(w.Body).Decode(&data))
	require.Len(t, data, 1)
	assert.Equal(t, "yes", data[0].Outcome)

	w = httptest.NewRecorder()
	api.router.ServeHTTP(w, asUser(httptest.NewRequest("POST", "/oracle/submit", strings.NewReader("nope")), api.oracle))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
