package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictpesa/predictpesa-api/pkg/errors"
)

func defiRouter(enabled bool) chi.Router {
	r := chi.NewRouter()
	r.Route("/defi", NewDeFiHandler(enabled).RegisterRoutes)
	return r
}

func TestDeFiHandler_SimulatedOperations(t *testing.T) {
	tests := []struct {
		path     string
		body     string
		wantHash string
	}{
		{"/defi/add_liquidity", `{"token_a":"yesBTC","token_b":"noBTC","amount_a":0.01,"amount_b":0.01}`, "0x" + strings.Repeat("b", 64)},
		{"/defi/stake_yield_farm", `{"pool":"yesBTC-noBTC","amount":0.02}`, "0x" + strings.Repeat("c", 64)},
		{"/defi/use_as_collateral", `{"token_id":"yesBTC","lending_pool":"aave"}`, "0x" + strings.Repeat("d", 64)},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			defiRouter(true).ServeHTTP(w, asUser(httptest.NewRequest("POST", tt.path, strings.NewReader(tt.body)), alice))

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var resp map[string]interface{}
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.wantHash, resp["txHash"])
			assert.Equal(t, TxStatusConfirmed, resp["status"])
		})
	}
}

func TestDeFiHandler_YieldFarmEchoesAmount(t *testing.T) {
	w := httptest.NewRecorder()
	defiRouter(true).ServeHTTP(w, asUser(httptest.NewRequest("POST", "/defi/stake_yield_farm", strings.NewReader(`{"pool":"p","amount":2.5}`)), alice))

	var resp YieldFarmResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 2.5, resp.StakedAmount)
	assert.Equal(t, 0.352, resp.APY)
}

func TestDeFiHandler_Validation(t *testing.T) {
	for _, tc := range []struct{ path, body string }{
		{"/defi/add_liquidity", `{"token_a":"yesBTC"}`},
		{"/defi/add_liquidity", `{"token_a":"a","token_b":"b","amount_a":-1,"amount_b":1}`},
		{"/defi/use_as_collateral", `{}`},
		{"/defi/stake_yield_farm", `{"amount":-3}`},
	} {
		w := httptest.NewRecorder()
		defiRouter(true).ServeHTTP(w, asUser(httptest.NewRequest("POST", tc.path, strings.NewReader(tc.body)), alice))
		assert.Equal(t, http.StatusBadRequest, w.Code, tc.body)
	}
}

func TestDeFiHandler_PortfolioAndPools(t *testing.T) {
	w := httptest.NewRecorder()
	defiRouter(true).ServeHTTP(w, asUser(httptest.NewRequest("GET", "/defi/portfolio", nil), alice))
	require.Equal(t, http.StatusOK, w.Code)
	var p PortfolioResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&p))
	assert.Equal(t, 4150.0, p.TotalValueUSD)
	require.Len(t, p.Assets, 3)
	require.NotNil(t, p.Assets[2].Tokens[0].APY)
	assert.Nil(t, p.Assets[0].Tokens[0].APY)

	w = httptest.NewRecorder()
	defiRouter(true).ServeHTTP(w, httptest.NewRequest("GET", "/defi/pools", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var pools []Pool
	require.NoError(t, json.NewDecoder(w.Body).Decode(&pools))
	assert.Len(t, pools, 2)
}

func TestDeFiHandler_Disabled(t *testing.T) {
	for _, tc := range []struct{ method, path string }{
		{"POST", "/defi/add_liquidity"},
		{"GET", "/defi/portfolio"},
		{"GET", "/defi/pools"},
	} {
		w := httptest.NewRecorder()
		defiRouter(false).ServeHTTP(w, asUser(httptest.NewRequest(tc.method, tc.path, strings.NewReader(`{}`)), alice))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, errors.ErrCodeFeatureDisabled, decodeError(t, w).Code)
	}
}

func TestDeFiHandler_RequiresIdentity(t *testing.T) {
	w := httptest.NewRecorder()
	defiRouter(true).ServeHTTP(w, httptest.NewRequest("GET", "/defi/portfolio", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
