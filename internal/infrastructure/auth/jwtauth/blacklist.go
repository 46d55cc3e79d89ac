package jwtauth

import (
	"context"
	"time"
)

// Cache key namespaces owned by this package.
const (
	BlacklistKeyPrefix = "blacklist:"
	IdentityKeyPrefix  = "user:"
)

// Store is the slice of the cache facade the authenticator needs.  The
// *redis.Cache type satisfies it.
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) bool
	SetE(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) bool
	ExistsE(ctx context.Context, key string) (bool, error)
}

// BlacklistKey returns the logical cache key marking token as revoked.
func BlacklistKey(token string) string { return BlacklistKeyPrefix + token }

// IdentityKey returns the logical cache key of the identity snapshot for sub.
func IdentityKey(sub string) string { return IdentityKeyPrefix + sub }

// Blacklist records revoked tokens.  An entry lives as long as a token could
// still be valid, so its mere existence is the revocation signal.
type Blacklist struct {
	store    Store
	ttl      time.Duration
	attempts int
	backoff  time.Duration
}

// NewBlacklist builds a Blacklist whose entries expire after ttl.  Revoke
// tries the write up to attempts times, sleeping backoff times the attempt
// number between tries.
func NewBlacklist(store Store, ttl time.Duration, attempts int, backoff time.Duration) *Blacklist {
	if attempts < 1 {
		attempts = 1
	}
	return &Blacklist{store: store, ttl: ttl, attempts: attempts, backoff: backoff}
}

// Revoke writes the blacklist entry for token.  It returns the last error
// when every attempt failed, or ctx.Err() when ctx ends between attempts.
func (b *Blacklist) Revoke(ctx context.Context, token string) error {
	var err error
	for attempt := 1; attempt <= b.attempts; attempt++ {
		if err = b.store.SetE(ctx, BlacklistKey(token), true, b.ttl); err == nil {
			return nil
		}
		if attempt == b.attempts {
			break
		}
		if b.backoff > 0 {
			timer := time.NewTimer(b.backoff * time.Duration(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return err
}

// IsRevoked reports whether token has a blacklist entry.  A store error is
// returned alongside false so the caller can decide how to degrade.
func (b *Blacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	return b.store.ExistsE(ctx, BlacklistKey(token))
}
