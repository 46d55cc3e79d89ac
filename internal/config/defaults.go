package config

import (
	"time"

	"github.com/spf13/viper"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost        = "0.0.0.0"
	DefaultServerPort        = 8000
	DefaultEnvironment       = EnvDevelopment
	DefaultReadTimeout       = 15 * time.Second
	DefaultWriteTimeout      = 15 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultRedisMode         = "standalone"
	DefaultRedisAddr         = "localhost:6379"
	DefaultRedisPoolSize     = 10
	DefaultRedisTimeout      = 5 * time.Second
	DefaultRedisKeyPrefix    = "predictpesa"
	DefaultAuthSecretKey     = "your-secret-key-change-in-production"
	DefaultAuthAlgorithm     = "HS256"
	DefaultAccessTokenTTL    = 30 * time.Minute
	DefaultRefreshTokenTTL   = 7 * 24 * time.Hour
	DefaultIdentityCacheTTL  = 300 * time.Second
	DefaultBlacklistAttempts = 3
	DefaultRequestsPerMinute = 100
	DefaultRateLimitBurst    = 20
	DefaultRateLimitWindow   = 60 * time.Second
	DefaultDBHost            = "localhost"
	DefaultDBPort            = 5432
	DefaultDBUser            = "predictpesa"
	DefaultDBName            = "predictpesa"
	DefaultDBSSLMode         = "disable"
	DefaultDBMaxOpenConns    = 20
	DefaultDBMaxIdleConns    = 5
	DefaultDBConnMaxLifetime = 30 * time.Minute
	DefaultMetricsNamespace  = "predictpesa"
	DefaultMetricsPath       = "/metrics"
	DefaultKafkaBroker       = "localhost:9092"
	DefaultKafkaTopicPrefix  = "predictpesa"
	DefaultKafkaWriteTimeout = 10 * time.Second
	DefaultMinStakeAmount    = 0.001
	DefaultMaxStakeAmount    = 10.0
	DefaultCreationFee       = 0.01
	DefaultProtocolFeeRate   = 0.1
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "json"
)

// defaultValues lists every key that has a default.  Registering them with
// viper makes each key visible to AutomaticEnv so PREDICTPESA_* overrides work
// without a config file.
var defaultValues = map[string]interface{}{
	"server.host":             DefaultServerHost,
	"server.port":             DefaultServerPort,
	"server.environment":      DefaultEnvironment,
	"server.debug":            false,
	"server.read_timeout":     DefaultReadTimeout,
	"server.write_timeout":    DefaultWriteTimeout,
	"server.idle_timeout":     DefaultIdleTimeout,
	"server.shutdown_timeout": DefaultShutdownTimeout,

	"log.level":  DefaultLogLevel,
	"log.format": DefaultLogFormat,

	"redis.mode":          DefaultRedisMode,
	"redis.addr":          DefaultRedisAddr,
	"redis.master_name":   "",
	"redis.password":      "",
	"redis.db":            0,
	"redis.pool_size":     DefaultRedisPoolSize,
	"redis.dial_timeout":  DefaultRedisTimeout,
	"redis.read_timeout":  DefaultRedisTimeout,
	"redis.write_timeout": DefaultRedisTimeout,
	"redis.key_prefix":    DefaultRedisKeyPrefix,

	"auth.secret_key":               DefaultAuthSecretKey,
	"auth.algorithm":                DefaultAuthAlgorithm,
	"auth.access_token_ttl":         DefaultAccessTokenTTL,
	"auth.refresh_token_ttl":        DefaultRefreshTokenTTL,
	"auth.identity_cache_ttl":       DefaultIdentityCacheTTL,
	"auth.blacklist_retry_attempts": DefaultBlacklistAttempts,
	"auth.identity_lookup":          true,
	"auth.seed_demo_user":           true,

	"rate_limit.enabled":             true,
	"rate_limit.requests_per_minute": DefaultRequestsPerMinute,
	"rate_limit.burst":               DefaultRateLimitBurst,
	"rate_limit.window":              DefaultRateLimitWindow,

	"database.enabled":           false,
	"database.host":              DefaultDBHost,
	"database.port":              DefaultDBPort,
	"database.user":              DefaultDBUser,
	"database.password":          "",
	"database.db_name":           DefaultDBName,
	"database.ssl_mode":          DefaultDBSSLMode,
	"database.max_open_conns":    DefaultDBMaxOpenConns,
	"database.max_idle_conns":    DefaultDBMaxIdleConns,
	"database.conn_max_lifetime": DefaultDBConnMaxLifetime,

	"metrics.enabled":   true,
	"metrics.namespace": DefaultMetricsNamespace,
	"metrics.path":      DefaultMetricsPath,

	"cors.allowed_origins":   []string{"*"},
	"cors.allowed_methods":   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
	"cors.allowed_headers":   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
	"cors.allow_credentials": true,

	"kafka.enabled":       false,
	"kafka.brokers":       []string{DefaultKafkaBroker},
	"kafka.topic_prefix":  DefaultKafkaTopicPrefix,
	"kafka.write_timeout": DefaultKafkaWriteTimeout,

	"market.min_stake_amount":         DefaultMinStakeAmount,
	"market.max_stake_amount":         DefaultMaxStakeAmount,
	"market.creation_fee":             DefaultCreationFee,
	"market.protocol_fee_rate":        DefaultProtocolFeeRate,
	"market.enable_ai_processing":     true,
	"market.enable_defi":              true,
	"market.allow_unverified_staking": false,
}

func registerDefaults(v *viper.Viper) {
	for key, val := range defaultValues {
		v.SetDefault(key, val)
	}
}

// ApplyDefaults fills zero-value fields in cfg with the service defaults.
// Explicit non-zero values always win.  Loaders already register defaults
// with viper; this covers configs built in code, such as in tests.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Environment == "" {
		cfg.Server.Environment = DefaultEnvironment
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Mode == "" {
		cfg.Redis.Mode = DefaultRedisMode
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = DefaultRedisTimeout
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = DefaultRedisTimeout
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = DefaultRedisTimeout
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	// DB 0 is both the default and a valid explicit value.

	// ── Auth ──────────────────────────────────────────────────────────────────
	if cfg.Auth.SecretKey == "" && !cfg.IsProduction() {
		cfg.Auth.SecretKey = DefaultAuthSecretKey
	}
	if cfg.Auth.Algorithm == "" {
		cfg.Auth.Algorithm = DefaultAuthAlgorithm
	}
	if cfg.Auth.AccessTokenTTL == 0 {
		cfg.Auth.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if cfg.Auth.RefreshTokenTTL == 0 {
		cfg.Auth.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if cfg.Auth.IdentityCacheTTL == 0 {
		cfg.Auth.IdentityCacheTTL = DefaultIdentityCacheTTL
	}
	if cfg.Auth.BlacklistRetryAttempts == 0 {
		cfg.Auth.BlacklistRetryAttempts = DefaultBlacklistAttempts
	}

	// ── Rate limit ────────────────────────────────────────────────────────────
	if cfg.RateLimit.RequestsPerMinute == 0 {
		cfg.RateLimit.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = DefaultRateLimitBurst
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = DefaultRateLimitWindow
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.User == "" {
		cfg.Database.User = DefaultDBUser
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = DefaultDBSSLMode
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = DefaultDBMaxOpenConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = DefaultDBMaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = DefaultDBConnMaxLifetime
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.TopicPrefix == "" {
		cfg.Kafka.TopicPrefix = DefaultKafkaTopicPrefix
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = DefaultKafkaWriteTimeout
	}

	// ── Market ────────────────────────────────────────────────────────────────
	if cfg.Market.MinStakeAmount == 0 {
		cfg.Market.MinStakeAmount = DefaultMinStakeAmount
	}
	if cfg.Market.MaxStakeAmount == 0 {
		cfg.Market.MaxStakeAmount = DefaultMaxStakeAmount
	}
	if cfg.Market.CreationFee == 0 {
		cfg.Market.CreationFee = DefaultCreationFee
	}
	if cfg.Market.ProtocolFeeRate == 0 {
		cfg.Market.ProtocolFeeRate = DefaultProtocolFeeRate
	}
}
