// Package config defines the configuration structures of the PredictPesa API.
// Loading and defaulting live in loader.go and defaults.go; this file holds
// only data types and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/logging"
)

// Deployment environments.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
	EnvTesting     = "testing"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	Debug           bool          `mapstructure:"debug"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// RedisConfig holds key-value store connection parameters.
type RedisConfig struct {
	Mode          string        `mapstructure:"mode"`
	Addr          string        `mapstructure:"addr"`
	MasterName    string        `mapstructure:"master_name"`
	SentinelAddrs []string      `mapstructure:"sentinel_addrs"`
	ClusterAddrs  []string      `mapstructure:"cluster_addrs"`
	Password      string        `mapstructure:"password"`
	DB            int           `mapstructure:"db"`
	PoolSize      int           `mapstructure:"pool_size"`
	DialTimeout   time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
}

// AuthConfig holds token signing and identity-cache parameters.
type AuthConfig struct {
	SecretKey              string        `mapstructure:"secret_key"`
	Algorithm              string        `mapstructure:"algorithm"`
	AccessTokenTTL         time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL        time.Duration `mapstructure:"refresh_token_ttl"`
	IdentityCacheTTL       time.Duration `mapstructure:"identity_cache_ttl"`
	BlacklistRetryAttempts int           `mapstructure:"blacklist_retry_attempts"`
	IdentityLookup         bool          `mapstructure:"identity_lookup"`
	SeedDemoUser           bool          `mapstructure:"seed_demo_user"`
}

// RateLimitConfig holds the global request budget.
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Burst             int           `mapstructure:"burst"`
	Window            time.Duration `mapstructure:"window"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// CORSConfig holds cross-origin settings.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

// KafkaConfig holds domain-event producer settings.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	TopicPrefix  string        `mapstructure:"topic_prefix"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// MarketConfig holds market economics and feature flags.
type MarketConfig struct {
	MinStakeAmount     float64 `mapstructure:"min_stake_amount"`
	MaxStakeAmount     float64 `mapstructure:"max_stake_amount"`
	CreationFee        float64 `mapstructure:"creation_fee"`
	ProtocolFeeRate    float64 `mapstructure:"protocol_fee_rate"`
	EnableAIProcessing bool    `mapstructure:"enable_ai_processing"`
	EnableDeFi         bool    `mapstructure:"enable_defi"`

	// AllowUnverifiedStaking lets users without a verified linked account
	// place stakes.  Off by default.
	AllowUnverifiedStaking bool `mapstructure:"allow_unverified_staking"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root configuration
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object.
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	Log       logging.LogConfig `mapstructure:"log"`
	Redis     RedisConfig       `mapstructure:"redis"`
	Auth      AuthConfig        `mapstructure:"auth"`
	RateLimit RateLimitConfig   `mapstructure:"rate_limit"`
	Database  DatabaseConfig    `mapstructure:"database"`
	Metrics   MetricsConfig     `mapstructure:"metrics"`
	CORS      CORSConfig        `mapstructure:"cors"`
	Kafka     KafkaConfig       `mapstructure:"kafka"`
	Market    MarketConfig      `mapstructure:"market"`
}

// IsDebug reports whether error responses may include internal detail.
func (c *Config) IsDebug() bool {
	return c.Server.Debug || c.Server.Environment == EnvDevelopment
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	switch c.Server.Environment {
	case EnvDevelopment, EnvStaging, EnvProduction, EnvTesting:
	default:
		return fmt.Errorf("config: server.environment %q is not one of development|staging|production|testing", c.Server.Environment)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}

	if c.Auth.SecretKey == "" {
		return fmt.Errorf("config: auth.secret_key is required")
	}
	if c.IsProduction() && c.Auth.SecretKey == DefaultAuthSecretKey {
		return fmt.Errorf("config: auth.secret_key must be changed in production")
	}
	switch strings.ToUpper(c.Auth.Algorithm) {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("config: auth.algorithm %q is not supported", c.Auth.Algorithm)
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("config: auth.access_token_ttl must be positive")
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("config: rate_limit.requests_per_minute must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("config: rate_limit.window must be positive")
	}

	if c.Redis.Addr == "" && len(c.Redis.ClusterAddrs) == 0 && len(c.Redis.SentinelAddrs) == 0 {
		return fmt.Errorf("config: redis.addr is required")
	}

	if c.Database.Enabled && c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required when database is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers is required when kafka is enabled")
	}

	if c.Market.MinStakeAmount <= 0 {
		return fmt.Errorf("config: market.min_stake_amount must be positive")
	}
	if c.Market.MinStakeAmount > c.Market.MaxStakeAmount {
		return fmt.Errorf("config: market.min_stake_amount %.8f exceeds max_stake_amount %.8f",
			c.Market.MinStakeAmount, c.Market.MaxStakeAmount)
	}
	return nil
}
