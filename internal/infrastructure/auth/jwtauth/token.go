// Package jwtauth issues and validates the API's bearer tokens and owns the
// two cache namespaces that back them: the revocation blacklist
// ("blacklist:<token>") and the identity cache ("user:<sub>").
package jwtauth

import (
	"crypto/sha256"
	"encoding/hex"
	stdliberrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/predictpesa/predictpesa-api/internal/config"
	"github.com/predictpesa/predictpesa-api/pkg/errors"
)

var (
	ErrTokenMissing   = errors.New(errors.ErrCodeTokenMissing, "missing bearer token")
	ErrTokenMalformed = errors.New(errors.ErrCodeTokenInvalid, "malformed token")
	ErrTokenSignature = errors.New(errors.ErrCodeTokenInvalid, "invalid token signature")
	ErrTokenExpired   = errors.New(errors.ErrCodeTokenExpired, "token expired")
	ErrTokenNoExpiry  = errors.New(errors.ErrCodeTokenInvalid, "token has no exp claim")
	ErrTokenNoSubject = errors.New(errors.ErrCodeTokenInvalid, "token has no sub claim")
	ErrTokenRevoked   = errors.New(errors.ErrCodeTokenRevoked, "token revoked")
	ErrInvalidConfig  = errors.New(errors.ErrCodeValidation, "invalid token configuration")
)

// DefaultRole is assumed when a token carries no role claim.
const DefaultRole = "user"

// Claims is the payload of an access token.
type Claims struct {
	Email      string `json:"email,omitempty"`
	Role       string `json:"role,omitempty"`
	IsVerified bool   `json:"is_verified"`
	jwt.RegisteredClaims
}

// Identity is the resolved caller attached to a request.  It is also the
// JSON document cached at "user:<sub>".
type Identity struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	IsVerified bool   `json:"is_verified"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool { return i != nil && i.Role == "admin" }

// IdentityFromClaims builds the trust-the-token identity.
func IdentityFromClaims(c *Claims) *Identity {
	role := c.Role
	if role == "" {
		role = DefaultRole
	}
	return &Identity{
		UserID:     c.Subject,
		Email:      c.Email,
		Role:       role,
		IsVerified: c.IsVerified,
	}
}

// TokenRef returns a short, stable reference to token that is safe to log.
func TokenRef(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])[:12]
}

func signingMethod(alg string) (jwt.SigningMethod, error) {
	switch strings.ToUpper(alg) {
	case "", "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	default:
		return nil, ErrInvalidConfig.WithDetail(fmt.Sprintf("unsupported algorithm %q", alg))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Issuer
// ─────────────────────────────────────────────────────────────────────────────

// Issuer mints HMAC-signed access tokens.
type Issuer struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer builds an Issuer from the auth section of the configuration.
func NewIssuer(cfg config.AuthConfig) (*Issuer, error) {
	if cfg.SecretKey == "" {
		return nil, ErrInvalidConfig.WithDetail("secret key is empty")
	}
	method, err := signingMethod(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	ttl := cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = config.DefaultAccessTokenTTL
	}
	return &Issuer{secret: []byte(cfg.SecretKey), method: method, ttl: ttl, now: time.Now}, nil
}

// TTL is the lifetime given to every issued token.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue signs a token for identity that expires after the configured
// lifetime.
func (i *Issuer) Issue(identity Identity) (string, time.Time, error) {
	return i.IssueWithTTL(identity, i.ttl)
}

// IssueWithTTL signs a token with an explicit lifetime.
func (i *Issuer) IssueWithTTL(identity Identity, ttl time.Duration) (string, time.Time, error) {
	if identity.UserID == "" {
		return "", time.Time{}, ErrTokenNoSubject
	}
	role := identity.Role
	if role == "" {
		role = DefaultRole
	}
	now := i.now()
	exp := now.Add(ttl)
	claims := Claims{
		Email:      identity.Email,
		Role:       role,
		IsVerified: identity.IsVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to sign token")
	}
	return signed, exp, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Validator
// ─────────────────────────────────────────────────────────────────────────────

// Validator checks signature, expiry and subject of presented tokens.  It
// knows nothing about revocation; see Authenticator.
type Validator struct {
	secret []byte
	method jwt.SigningMethod
	parser *jwt.Parser
}

// NewValidator builds a Validator that accepts only the configured algorithm.
func NewValidator(cfg config.AuthConfig) (*Validator, error) {
	if cfg.SecretKey == "" {
		return nil, ErrInvalidConfig.WithDetail("secret key is empty")
	}
	method, err := signingMethod(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	return &Validator{
		secret: []byte(cfg.SecretKey),
		method: method,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{method.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// Validate parses raw and returns its claims.  Errors are *errors.AppError
// values from this package.
func (v *Validator) Validate(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrTokenMissing
	}
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		switch {
		case stdliberrors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case stdliberrors.Is(err, jwt.ErrTokenRequiredClaimMissing):
			return nil, ErrTokenNoExpiry
		case stdliberrors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenSignature
		case stdliberrors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, ErrTokenSignature.WithCause(err)
		default:
			return nil, ErrTokenMalformed.WithCause(err)
		}
	}
	if !token.Valid {
		return nil, ErrTokenSignature
	}
	if claims.Subject == "" {
		return nil, ErrTokenNoSubject
	}
	return claims, nil
}
