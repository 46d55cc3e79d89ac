package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/logging"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/prometheus"
)

// Cache operation names, used as log and metric labels.
const (
	OpGet       = "get"
	OpSet       = "set"
	OpDelete    = "delete"
	OpExists    = "exists"
	OpIncrement = "increment"
	OpExpire    = "expire"
	OpWindow    = "increment_window"
)

// incrementWindowScript increments KEYS[1] and sets its expiry to ARGV[1]
// milliseconds when the increment created the key.  A counter left without
// a TTL is given one too.  Returns {count, created}.
var incrementWindowScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
local created = 0
if n == 1 then
  created = 1
end
if created == 1 or redis.call('PTTL', KEYS[1]) < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return {n, created}
`)

// Cache is the fail-soft facade over Client.  Every method swallows
// transport and serialization errors: reads report a miss, writes report
// false.  Keys are namespaced as "<prefix>:<key>".
type Cache struct {
	client  *Client
	prefix  string
	logger  logging.Logger
	metrics *prometheus.AppMetrics

	warnMu   sync.Mutex
	warnings map[string]*rate.Sometimes
}

// CacheOption customises a Cache.
type CacheOption func(*Cache)

// WithPrefix sets the key namespace.  An empty prefix disables namespacing.
func WithPrefix(prefix string) CacheOption {
	return func(c *Cache) { c.prefix = strings.TrimSuffix(prefix, ":") }
}

// WithMetrics records every operation in cache_operations_total.
func WithMetrics(m *prometheus.AppMetrics) CacheOption {
	return func(c *Cache) { c.metrics = m }
}

// NewCache builds a Cache over client.  The default prefix is "predictpesa".
func NewCache(client *Client, log logging.Logger, opts ...CacheOption) *Cache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &Cache{
		client:   client,
		prefix:   "predictpesa",
		logger:   log.Named("cache"),
		warnings: make(map[string]*rate.Sometimes),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the namespaced form of key as stored in Redis.
func (c *Cache) Key(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

// Get decodes the JSON value stored at key into dest.  It reports false on a
// miss and on any error.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	data, err := c.client.Get(ctx, c.Key(key)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		c.record(OpGet, prometheus.ResultMiss)
		return false
	}
	if err != nil {
		c.fail(OpGet, key, err)
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.fail(OpGet, key, err)
		return false
	}
	c.record(OpGet, prometheus.ResultHit)
	return true
}

// Set stores value as JSON.  A ttl of zero or less stores without expiry.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) bool {
	data, err := json.Marshal(value)
	if err != nil {
		c.fail(OpSet, key, err)
		return false
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.Key(key), data, ttl).Err(); err != nil {
		c.fail(OpSet, key, err)
		return false
	}
	c.record(OpSet, prometheus.ResultSuccess)
	return true
}

// Delete removes key.  It reports true when the command succeeded, whether
// or not the key existed.
func (c *Cache) Delete(ctx context.Context, key string) bool {
	if err := c.client.Del(ctx, c.Key(key)).Err(); err != nil {
		c.fail(OpDelete, key, err)
		return false
	}
	c.record(OpDelete, prometheus.ResultSuccess)
	return true
}

// Exists reports whether key is present.  Errors report false.
func (c *Cache) Exists(ctx context.Context, key string) bool {
	n, err := c.client.Exists(ctx, c.Key(key)).Result()
	if err != nil {
		c.fail(OpExists, key, err)
		return false
	}
	if n > 0 {
		c.record(OpExists, prometheus.ResultHit)
		return true
	}
	c.record(OpExists, prometheus.ResultMiss)
	return false
}

// ExistsE is Exists for callers that must tell "absent" from "unknown".
func (c *Cache) ExistsE(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.Key(key)).Result()
	if err != nil {
		c.fail(OpExists, key, err)
		return false, err
	}
	c.record(OpExists, prometheus.ResultSuccess)
	return n > 0, nil
}

// SetE is Set for callers that retry on failure.
func (c *Cache) SetE(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		c.fail(OpSet, key, err)
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.Key(key), data, ttl).Err(); err != nil {
		c.fail(OpSet, key, err)
		return err
	}
	c.record(OpSet, prometheus.ResultSuccess)
	return nil
}

// Increment adds by to the integer at key, creating it at zero first.  The
// second result is false when the store could not be reached.
func (c *Cache) Increment(ctx context.Context, key string, by int64) (int64, bool) {
	n, err := c.client.IncrBy(ctx, c.Key(key), by).Result()
	if err != nil {
		c.fail(OpIncrement, key, err)
		return 0, false
	}
	c.record(OpIncrement, prometheus.ResultSuccess)
	return n, true
}

// Expire sets a TTL on key.  It reports false when the key does not exist or
// on error.
func (c *Cache) Expire(ctx context.Context, key string, ttl time.Duration) bool {
	ok, err := c.client.Expire(ctx, c.Key(key), ttl).Result()
	if err != nil {
		c.fail(OpExpire, key, err)
		return false
	}
	c.record(OpExpire, prometheus.ResultSuccess)
	return ok
}

// IncrementWindow atomically increments the counter at key and, when the
// increment created it, sets its TTL to window.  created is true for exactly
// one caller per window.  Unlike the other methods it returns the error so the
// rate limiter can apply its own failure policy.
func (c *Cache) IncrementWindow(ctx context.Context, key string, window time.Duration) (count int64, created bool, err error) {
	res, err := c.client.RunScript(ctx, incrementWindowScript, []string{c.Key(key)}, window.Milliseconds()).Int64Slice()
	if err != nil {
		c.fail(OpWindow, key, err)
		return 0, false, err
	}
	if len(res) != 2 {
		err = stderrors.New("cache: unexpected increment_window reply")
		c.fail(OpWindow, key, err)
		return 0, false, err
	}
	c.record(OpWindow, prometheus.ResultSuccess)
	return res[0], res[1] == 1, nil
}

// Ping checks the underlying connection.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}

func (c *Cache) record(op, result string) {
	prometheus.RecordCacheOperation(c.metrics, op, result)
}

// fail counts the error and logs at most one warning per second per
// operation.  Only the key's namespace is logged; blacklist keys embed
// tokens.
func (c *Cache) fail(op, key string, err error) {
	c.record(op, prometheus.ResultError)
	c.sometimes(op).Do(func() {
		c.logger.Warn("Cache operation failed",
			logging.String("operation", op),
			logging.String("key_space", keySpace(key)),
			logging.Err(err),
		)
	})
}

func (c *Cache) sometimes(op string) *rate.Sometimes {
	c.warnMu.Lock()
	defer c.warnMu.Unlock()
	s, ok := c.warnings[op]
	if !ok {
		s = &rate.Sometimes{Interval: time.Second}
		c.warnings[op] = s
	}
	return s
}

func keySpace(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}
