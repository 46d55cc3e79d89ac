package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/predictpesa/predictpesa-api/internal/infrastructure/auth/jwtauth"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	requestIDContextKey contextKey = iota
	identityContextKey
	tokenContextKey
)

// WithRequestID returns a copy of ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

// RequestIDFromContext returns the request id, or "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}

// WithIdentity returns a copy of ctx carrying the authenticated caller and
// the token they presented.
func WithIdentity(ctx context.Context, identity *jwtauth.Identity, token string) context.Context {
	ctx = context.WithValue(ctx, identityContextKey, identity)
	return context.WithValue(ctx, tokenContextKey, token)
}

// IdentityFromContext returns the authenticated caller, or nil for an
// anonymous request.
func IdentityFromContext(ctx context.Context) *jwtauth.Identity {
	identity, _ := ctx.Value(identityContextKey).(*jwtauth.Identity)
	return identity
}

// TokenFromContext returns the bearer token that authenticated the request.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}

// UserIDFromContext returns the subject of the authenticated caller, or "".
func UserIDFromContext(ctx context.Context) string {
	if identity := IdentityFromContext(ctx); identity != nil {
		return identity.UserID
	}
	return ""
}

// ClientKeyFromContext derives the rate-limit client key of r:
// "user:<sub>" for an authenticated caller, otherwise "ip:<addr>" where addr
// is the first X-Forwarded-For hop, then X-Real-IP, then the peer address,
// then "unknown".
func ClientKeyFromContext(r *http.Request) string {
	if sub := UserIDFromContext(r.Context()); sub != "" {
		return "user:" + sub
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	}
	return "unknown"
}

// extractBearerToken extracts the Bearer token from the Authorization header.
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
