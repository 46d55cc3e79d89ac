package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/predictpesa/predictpesa-api/internal/infrastructure/auth/jwtauth"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/logging"
	"github.com/predictpesa/predictpesa-api/pkg/errors"
)

// APIPrefix is the versioned API root.  Paths outside it never require a
// token.
const APIPrefix = "/api/v1/"

// PublicMarketsPrefix is open to GET requests without a token.
const PublicMarketsPrefix = "/api/v1/markets/"

// Authenticator resolves a bearer token.  *jwtauth.Authenticator satisfies
// it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*jwtauth.Identity, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	// ExemptPaths are matched exactly and never require a token.
	ExemptPaths []string
}

// DefaultAuthConfig lists the public endpoints of the API.
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		ExemptPaths: []string{
			"/",
			"/health",
			"/health/detailed",
			"/metrics",
			"/docs",
			"/redoc",
			"/openapi.json",
			"/api/v1/auth/register",
			"/api/v1/auth/login",
			"/api/v1/markets",
			"/api/v1/markets/",
		},
	}
}

// AuthMiddleware provides HTTP authentication middleware.
type AuthMiddleware struct {
	authn  Authenticator
	exempt map[string]bool
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(authn Authenticator, config AuthConfig) *AuthMiddleware {
	exempt := make(map[string]bool, len(config.ExemptPaths))
	for _, p := range config.ExemptPaths {
		exempt[p] = true
	}
	return &AuthMiddleware{authn: authn, exempt: exempt}
}

// IsPublic reports whether method and path may be served without a token.
func (m *AuthMiddleware) IsPublic(method, path string) bool {
	if m.exempt[path] || !strings.HasPrefix(path, APIPrefix) {
		return true
	}
	return method == http.MethodGet && strings.HasPrefix(path, PublicMarketsPrefix)
}

// Handler attaches the caller's identity to the request context.  Protected
// routes without a valid token get 401.  On public routes a missing or
// invalid token leaves the request anonymous.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		public := m.IsPublic(r.Method, r.URL.Path)
		token := extractBearerToken(r)

		if token == "" {
			if public {
				next.ServeHTTP(w, r)
				return
			}
			m.reject(w, r, jwtauth.ErrTokenMissing, "")
			return
		}

		identity, err := m.authn.Authenticate(r.Context(), token)
		if err != nil {
			if public {
				next.ServeHTTP(w, r)
				return
			}
			m.reject(w, r, err, token)
			return
		}

		ctx := WithIdentity(r.Context(), identity, token)
		logger := logging.FromContext(ctx).With(logging.String(logging.FieldUserID, identity.UserID))
		ctx = logging.WithContext(ctx, logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, cause error, token string) {
	fields := []logging.Field{
		logging.String(logging.FieldMethod, r.Method),
		logging.String(logging.FieldPath, r.URL.Path),
		logging.String("reason", jwtauth.FailureReason(cause)),
		logging.Err(cause),
	}
	if token != "" {
		fields = append(fields, logging.String(logging.FieldTokenRef, jwtauth.TokenRef(token)))
	}
	logging.FromContext(r.Context()).Warn("Authentication failed", fields...)

	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Could not validate credentials")
}
