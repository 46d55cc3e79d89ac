// Package ratelimit implements a fixed-window request limiter whose counters
// live in the shared key-value store.  Each (client, route) pair gets one
// counter that expires with its window; there is no in-process state, so
// every API replica enforces the same budget.
package ratelimit

import (
	"context"
	"time"

	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/logging"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/prometheus"
)

// KeyPrefix namespaces counter keys inside the cache.
const KeyPrefix = "rate_limit"

// WindowCounter atomically increments the counter at key and reports whether
// the increment created it.  Implementations set the window TTL on creation.
type WindowCounter interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (count int64, created bool, err error)
}

// Decision is the outcome of one IsAllowed call.
type Decision struct {
	Allowed   bool
	Remaining int
	Limit     int

	// Count is the counter value after this request; zero on fail-open.
	Count int64
	// Created is true for the request that opened the window.
	Created bool
	// FailOpen is true when the store could not be consulted.
	FailOpen bool
}

// Limiter decides admission against WindowCounter.
type Limiter struct {
	counter WindowCounter
	logger  logging.Logger
	metrics *prometheus.AppMetrics
	timeout time.Duration
}

// Option customises a Limiter.
type Option func(*Limiter)

// WithMetrics records decisions in rate_limit_decisions_total.
func WithMetrics(m *prometheus.AppMetrics) Option {
	return func(l *Limiter) { l.metrics = m }
}

// WithTimeout bounds each store round trip.  Zero leaves the caller's
// context deadline as the only bound.
func WithTimeout(d time.Duration) Option {
	return func(l *Limiter) { l.timeout = d }
}

// New builds a Limiter over counter.
func New(counter WindowCounter, log logging.Logger, opts ...Option) *Limiter {
	if log == nil {
		log = logging.NewNopLogger()
	}
	l := &Limiter{counter: counter, logger: log.Named("ratelimit")}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Key builds the counter key for a client and route.
func Key(clientID, path string) string {
	return KeyPrefix + ":" + clientID + ":" + path
}

// IsAllowed counts one request against key and admits it while the count
// stays within limit.  When the store fails the request is admitted with
// Remaining equal to limit: rate limiting must never cause an outage.
func (l *Limiter) IsAllowed(ctx context.Context, key string, limit int, window time.Duration) Decision {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	count, created, err := l.counter.IncrementWindow(ctx, key, window)
	if err != nil {
		l.logger.Debug("rate limit check failed, admitting", logging.Err(err))
		prometheus.RecordRateLimitDecision(l.metrics, prometheus.DecisionFailOpen)
		return Decision{Allowed: true, Remaining: limit, Limit: limit, FailOpen: true}
	}

	d := Decision{
		Allowed:   count <= int64(limit),
		Remaining: remaining(limit, count),
		Limit:     limit,
		Count:     count,
		Created:   created,
	}
	if d.Allowed {
		prometheus.RecordRateLimitDecision(l.metrics, prometheus.DecisionAllowed)
	} else {
		prometheus.RecordRateLimitDecision(l.metrics, prometheus.DecisionRejected)
	}
	return d
}

func remaining(limit int, count int64) int {
	r := int64(limit) - count
	if r < 0 {
		return 0
	}
	return int(r)
}
