package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictpesa/predictpesa-api/internal/infrastructure/ratelimit"
)

// countingLimiter is an in-process fixed window keyed like the real one.
type countingLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	keys   []string
	down   bool
}

func newCountingLimiter() *countingLimiter {
	return &countingLimiter{counts: make(map[string]int)}
}

func (l *countingLimiter) IsAllowed(_ context.Context, key string, limit int, _ time.Duration) ratelimit.Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	if l.down {
		return ratelimit.Decision{Allowed: true, Remaining: limit, Limit: limit, FailOpen: true}
	}
	l.counts[key]++
	n := l.counts[key]
	return ratelimit.Decision{Allowed: n <= limit, Remaining: max(limit-n, 0), Limit: limit, Count: int64(n)}
}

func TestRateLimitPolicy_LimitFor(t *testing.T) {
	p := DefaultRateLimitPolicy(100)
	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodPost, "/api/v1/markets/create", 5},
		{http.MethodPut, "/api/v1/markets/create", 5},
		{http.MethodPost, "/api/v1/stakes/create", 10},
		{http.MethodPost, "/api/v1/auth/login", 5},
		{http.MethodDelete, "/api/v1/auth/logout", 5},
		{http.MethodPost, "/api/v1/oracle/submit", 50},
		{http.MethodDelete, "/api/v1/markets/abc", 50},
		{http.MethodGet, "/api/v1/markets/abc", 200},
		{http.MethodGet, "/api/v1/markets/trending/", 200},
		{http.MethodGet, "/api/v1/markets", 100},
		{http.MethodGet, "/api/v1/users/me", 100},
		{http.MethodPatch, "/api/v1/markets/abc", 100},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, p.LimitFor(tc.method, tc.path), "%s %s", tc.method, tc.path)
	}

	assert.Equal(t, 1, DefaultRateLimitPolicy(1).LimitFor(http.MethodPost, "/api/v1/oracle/submit"))
}

func TestRateLimit_BoundaryAndHeaders(t *testing.T) {
	limiter := newCountingLimiter()
	h := RateLimit(limiter, DefaultRateLimitPolicy(100))(okHandler())

	for i, want := range []string{"4", "3", "2", "1", "0"} {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/api/v1/markets/create", nil)
		r.RemoteAddr = "10.0.0.1:5555"
		h.ServeHTTP(w, r)

		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, want, w.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, "60", w.Header().Get("X-RateLimit-Reset"))
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/markets/create", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"code": "COMMON_007", "message": "Rate limit exceeded"}, body["error"])

	assert.Equal(t, "rate_limit:ip:10.0.0.1:/api/v1/markets/create", limiter.keys[0])
}

func TestRateLimit_SeparateClientsAndPaths(t *testing.T) {
	limiter := newCountingLimiter()
	h := RateLimit(limiter, DefaultRateLimitPolicy(100))(okHandler())

	for i := 0; i < 5; i++ {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		r.Header.Set("X-Forwarded-For", "1.1.1.1")
		h.ServeHTTP(httptest.NewRecorder(), r)
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	r.Header.Set("X-Forwarded-For", "2.2.2.2")
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", nil)
	r.Header.Set("X-Forwarded-For", "1.1.1.1")
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_ExemptPaths(t *testing.T) {
	limiter := newCountingLimiter()
	h := RateLimit(limiter, DefaultRateLimitPolicy(1))(okHandler())

	for _, path := range []string{"/health", "/health/detailed", "/metrics"} {
		for i := 0; i < 10; i++ {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			require.Equal(t, http.StatusOK, w.Code)
			assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
		}
	}
	assert.Empty(t, limiter.keys)
}

func TestRateLimit_FailOpen(t *testing.T) {
	limiter := newCountingLimiter()
	limiter.down = true
	h := RateLimit(limiter, DefaultRateLimitPolicy(100))(okHandler())

	for i := 0; i < 20; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/markets/create", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Remaining"))
	}
}
