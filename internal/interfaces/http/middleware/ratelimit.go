package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/logging"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/ratelimit"
	"github.com/predictpesa/predictpesa-api/pkg/errors"
)

// RateLimitWindowSeconds is the fixed window reported in X-RateLimit-Reset
// and Retry-After.
const RateLimitWindowSeconds = 60

// Limiter is the admission check the middleware consults.  *ratelimit.Limiter
// satisfies it.
type Limiter interface {
	IsAllowed(ctx context.Context, key string, limit int, window time.Duration) ratelimit.Decision
}

// RateLimitPolicy maps a request to its per-window limit.
type RateLimitPolicy struct {
	// Default is the global requests-per-window budget.
	Default int
	Window  time.Duration
	// ExemptPaths bypass rate limiting entirely.
	ExemptPaths []string
}

// DefaultRateLimitPolicy returns the policy for a global budget of
// requestsPerMinute.
func DefaultRateLimitPolicy(requestsPerMinute int) RateLimitPolicy {
	return RateLimitPolicy{
		Default:     requestsPerMinute,
		Window:      RateLimitWindowSeconds * time.Second,
		ExemptPaths: []string{"/health", "/health/detailed", "/metrics"},
	}
}

// LimitFor returns the limit of the first matching rule:
//
//	POST/PUT/DELETE  .../markets/create   5
//	POST/PUT/DELETE  .../stakes/create    10
//	POST/PUT/DELETE  .../auth/...         5
//	POST/PUT/DELETE  anything else        Default/2
//	GET              .../markets/...      Default*2
//	anything else                         Default
func (p RateLimitPolicy) LimitFor(method, path string) int {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		switch {
		case strings.Contains(path, "/markets/create"):
			return 5
		case strings.Contains(path, "/stakes/create"):
			return 10
		case strings.Contains(path, "/auth/"):
			return 5
		default:
			return max(p.Default/2, 1)
		}
	case http.MethodGet:
		if strings.Contains(path, "/markets/") {
			return p.Default * 2
		}
	}
	return p.Default
}

func (p RateLimitPolicy) isExempt(path string) bool {
	for _, e := range p.ExemptPaths {
		if path == e {
			return true
		}
	}
	return false
}

// RateLimit counts each request against rate_limit:<client>:<path> and
// rejects it with 429 once the route's limit is exhausted.  The three
// X-RateLimit-* headers are set on every counted request.
func RateLimit(limiter Limiter, policy RateLimitPolicy) func(http.Handler) http.Handler {
	window := policy.Window
	if window <= 0 {
		window = RateLimitWindowSeconds * time.Second
	}
	reset := strconv.Itoa(RateLimitWindowSeconds)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if policy.isExempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			client := ClientKeyFromContext(r)
			limit := policy.LimitFor(r.Method, r.URL.Path)
			d := limiter.IsAllowed(r.Context(), ratelimit.Key(client, r.URL.Path), limit, window)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", reset)

			if !d.Allowed {
				logging.FromContext(r.Context()).Warn("Rate limit exceeded",
					logging.String(logging.FieldClientKey, client),
					logging.String(logging.FieldMethod, r.Method),
					logging.String(logging.FieldPath, r.URL.Path),
					logging.Int("limit", limit),
				)
				h.Set("Retry-After", reset)
				writeError(w, http.StatusTooManyRequests, errors.ErrCodeTooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
