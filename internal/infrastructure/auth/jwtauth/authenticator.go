package jwtauth

import (
	"context"
	"time"

	"github.com/predictpesa/predictpesa-api/internal/config"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/logging"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/prometheus"
	"github.com/predictpesa/predictpesa-api/pkg/errors"
)

// Failure reasons used as the "reason" label of auth_attempts_total.
const (
	ReasonMissing      = "missing"
	ReasonRevoked      = "revoked"
	ReasonExpired      = "expired"
	ReasonInvalid      = "invalid"
	ReasonUserNotFound = "user_not_found"
	ReasonUserInactive = "user_inactive"
)

// IdentitySource re-reads a user from the system of record when the
// identity cache misses.  Implementations return errors coded
// ErrCodeUserNotFound or ErrCodeUserInactive to reject the token; any other
// error is treated as the source being unavailable.
type IdentitySource interface {
	LookupIdentity(ctx context.Context, userID string) (*Identity, error)
}

// Authenticator turns a presented bearer token into an Identity.
type Authenticator struct {
	validator   *Validator
	blacklist   *Blacklist
	store       Store
	source      IdentitySource
	identityTTL time.Duration
	logger      logging.Logger
	metrics     *prometheus.AppMetrics
}

// Option customises an Authenticator.
type Option func(*Authenticator)

// WithIdentitySource makes cache misses consult src instead of trusting the
// token claims.
func WithIdentitySource(src IdentitySource) Option {
	return func(a *Authenticator) { a.source = src }
}

// WithMetrics records outcomes in auth_attempts_total and
// auth_blacklist_write_failures_total.
func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(a *Authenticator) { a.metrics = m }
}

// WithBlacklistBackoff overrides the pause between blacklist write attempts.
func WithBlacklistBackoff(d time.Duration) Option {
	return func(a *Authenticator) { a.blacklist.backoff = d }
}

// NewAuthenticator wires a Validator and a Blacklist over store.
func NewAuthenticator(cfg config.AuthConfig, store Store, log logging.Logger, opts ...Option) (*Authenticator, error) {
	validator, err := NewValidator(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = config.DefaultAccessTokenTTL
	}
	identityTTL := cfg.IdentityCacheTTL
	if identityTTL <= 0 {
		identityTTL = config.DefaultIdentityCacheTTL
	}
	attempts := cfg.BlacklistRetryAttempts
	if attempts <= 0 {
		attempts = config.DefaultBlacklistAttempts
	}

	a := &Authenticator{
		validator:   validator,
		blacklist:   NewBlacklist(store, accessTTL, attempts, 50*time.Millisecond),
		store:       store,
		identityTTL: identityTTL,
		logger:      log.Named("auth"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Blacklist exposes the revocation list, for the CLI's token revoke command.
func (a *Authenticator) Blacklist() *Blacklist { return a.blacklist }

// Authenticate checks token against the blacklist, verifies it and resolves
// the caller's identity.  A blacklisted token is rejected even when its
// signature and expiry are valid.  Store failures never reject a request.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*Identity, error) {
	identity, err := a.authenticate(ctx, token)
	if err != nil {
		prometheus.RecordAuthAttempt(a.metrics, false, FailureReason(err))
		return nil, err
	}
	prometheus.RecordAuthAttempt(a.metrics, true, "")
	return identity, nil
}

func (a *Authenticator) authenticate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrTokenMissing
	}

	revoked, err := a.blacklist.IsRevoked(ctx, token)
	if err != nil {
		a.logger.Warn("Blacklist check failed, continuing with signature validation",
			logging.String(logging.FieldTokenRef, TokenRef(token)),
			logging.Err(err),
		)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	claims, err := a.validator.Validate(token)
	if err != nil {
		return nil, err
	}

	return a.resolveIdentity(ctx, claims)
}

func (a *Authenticator) resolveIdentity(ctx context.Context, claims *Claims) (*Identity, error) {
	key := IdentityKey(claims.Subject)

	var cached Identity
	if a.store.Get(ctx, key, &cached) && cached.UserID == claims.Subject {
		return &cached, nil
	}

	identity := IdentityFromClaims(claims)
	if a.source != nil {
		fresh, err := a.source.LookupIdentity(ctx, claims.Subject)
		switch {
		case err == nil && fresh != nil:
			identity = fresh
		case errors.IsCode(err, errors.ErrCodeUserNotFound), errors.IsCode(err, errors.ErrCodeUserInactive):
			return nil, err
		case err != nil:
			a.logger.Warn("Identity lookup failed, using token claims",
				logging.String(logging.FieldUserID, claims.Subject),
				logging.Err(err),
			)
		}
	}

	a.store.Set(ctx, key, identity, a.identityTTL)
	return identity, nil
}

// CacheIdentity stores identity under its user key, as login does.
func (a *Authenticator) CacheIdentity(ctx context.Context, identity *Identity) bool {
	if identity == nil || identity.UserID == "" {
		return false
	}
	return a.store.Set(ctx, IdentityKey(identity.UserID), identity, a.identityTTL)
}

// Logout revokes token and drops the cached identity of userID.  The two
// writes are independent.  A blacklist write that still fails after every
// retry is logged at ERROR and counted in
// auth_blacklist_write_failures_total; a failed identity delete is logged at
// WARN.  Neither failure is returned: logout always succeeds for the caller.
func (a *Authenticator) Logout(ctx context.Context, userID, token string) {
	log := a.logger.With(
		logging.String(logging.FieldUserID, userID),
		logging.String(logging.FieldTokenRef, TokenRef(token)),
	)

	if err := a.blacklist.Revoke(ctx, token); err != nil {
		prometheus.RecordBlacklistWriteFailure(a.metrics)
		log.Error("Failed to blacklist token on logout", logging.Err(err))
	}

	if !a.store.Delete(ctx, IdentityKey(userID)) {
		log.Warn("Failed to clear cached identity on logout")
	}

	log.Info("User logged out")
}

// FailureReason maps an Authenticate error to its metric label.
func FailureReason(err error) string {
	switch errors.GetCode(err) {
	case errors.ErrCodeTokenMissing:
		return ReasonMissing
	case errors.ErrCodeTokenRevoked:
		return ReasonRevoked
	case errors.ErrCodeTokenExpired:
		return ReasonExpired
	case errors.ErrCodeUserNotFound:
		return ReasonUserNotFound
	case errors.ErrCodeUserInactive:
		return ReasonUserInactive
	default:
		return ReasonInvalid
	}
}
