package cli

import (
	"context"
	"net/http"

	"github.com/predictpesa/predictpesa-api/internal/application/identity"
	"github.com/predictpesa/predictpesa-api/internal/application/marketsvc"
	"github.com/predictpesa/predictpesa-api/internal/application/staking"
	"github.com/predictpesa/predictpesa-api/internal/config"
	"github.com/predictpesa/predictpesa-api/internal/domain/events"
	"github.com/predictpesa/predictpesa-api/internal/domain/oracle"
	"github.com/predictpesa/predictpesa-api/internal/domain/user"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/auth/jwtauth"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/database/memory"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/database/postgres"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/database/postgres/repositories"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/database/redis"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/messaging/kafka"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/logging"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/prometheus"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/ratelimit"
	httpserver "github.com/predictpesa/predictpesa-api/internal/interfaces/http"
	"github.com/predictpesa/predictpesa-api/internal/interfaces/http/handlers"
	"github.com/predictpesa/predictpesa-api/internal/interfaces/http/middleware"
)

// ServiceName is reported by the root and health endpoints.
const ServiceName = "PredictPesa"

// App is the fully wired API process.
type App struct {
	Config  *config.Config
	Logger  logging.Logger
	Handler http.Handler
	Server  *httpserver.Server

	closers []func() error
}

// NewApp builds every dependency described by cfg.  Redis is fail-soft: when
// it cannot be reached the App still starts, with a client that reconnects
// on its own and a cache whose calls degrade until it does.  Postgres and
// Kafka are only dialled when enabled, and their failures are fatal.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	app := &App{Config: cfg, Logger: log}

	var (
		metrics        *prometheus.AppMetrics
		metricsHandler http.Handler
	)
	if cfg.Metrics.Enabled {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableGoMetrics:      true,
			EnableProcessMetrics: true,
		}, log)
		if err != nil {
			return nil, err
		}
		metrics = prometheus.NewAppMetrics(collector)
		metricsHandler = collector.Handler()
	}

	rdb, err := redis.NewClient(cfg.Redis, log)
	if err != nil {
		log.Error("Redis unavailable, caching and rate limiting degrade until it recovers",
			logging.String("addr", cfg.Redis.Addr), logging.Err(err))
		rdb = redis.New(cfg.Redis, log)
	}
	app.closers = append(app.closers, rdb.Close)
	cache := redis.NewCache(rdb, log, redis.WithPrefix(cfg.Redis.KeyPrefix), redis.WithMetrics(metrics))

	checkers := []handlers.HealthChecker{handlers.NewChecker("redis", cache.Ping)}

	var users user.Repository = memory.NewUserRepository()
	if cfg.Database.Enabled {
		conn, err := postgres.NewConnection(cfg.Database, log)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, conn.Close)
		users = repositories.NewUserRepository(conn, log)
		checkers = append(checkers, handlers.NewChecker("database", conn.HealthCheck))
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka, log, kafka.WithMetrics(metrics))
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, producer.Close)
		publisher = producer
	}

	authOpts := []jwtauth.Option{jwtauth.WithMetrics(metrics)}
	if cfg.Auth.IdentityLookup {
		authOpts = append(authOpts, jwtauth.WithIdentitySource(identity.NewSource(users)))
	}
	authn, err := jwtauth.NewAuthenticator(cfg.Auth, cache, log, authOpts...)
	if err != nil {
		app.Close()
		return nil, err
	}
	issuer, err := jwtauth.NewIssuer(cfg.Auth)
	if err != nil {
		app.Close()
		return nil, err
	}

	markets := memory.NewMarketRepository()
	stakes := memory.NewStakeRepository()
	txs := memory.NewTransactionRepository()

	idsvc := identity.NewService(identity.Deps{
		Users:    users,
		Markets:  markets,
		Stakes:   stakes,
		Issuer:   issuer,
		Sessions: authn,
		Events:   publisher,
		Logger:   log,
	})
	msvc := marketsvc.NewService(marketsvc.Deps{
		Markets:      markets,
		Stakes:       stakes,
		Users:        users,
		Oracle:       memory.NewOracleRepository(oracle.DefaultSources()...),
		Transactions: txs,
		Events:       publisher,
		Config:       cfg.Market,
		Logger:       log,
	})
	ssvc := staking.NewService(staking.Deps{
		Markets:      markets,
		Stakes:       stakes,
		Users:        users,
		Transactions: txs,
		Events:       publisher,
		Config:       cfg.Market,
		Logger:       log,
	})

	if cfg.Auth.SeedDemoUser {
		if err := idsvc.SeedDemoUser(ctx); err != nil {
			log.Warn("Failed to seed demo user", logging.Err(err))
		}
	}

	var limiter middleware.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(cache, log, ratelimit.WithMetrics(metrics))
	}
	policy := middleware.DefaultRateLimitPolicy(cfg.RateLimit.RequestsPerMinute)
	policy.Window = cfg.RateLimit.Window
	policy.ExemptPaths = append(policy.ExemptPaths, cfg.Metrics.Path)

	app.Handler = httpserver.NewRouter(httpserver.RouterConfig{
		HealthHandler: handlers.NewHealthHandler(handlers.ServiceInfo{
			Name:        ServiceName,
			Version:     Version,
			Environment: cfg.Server.Environment,
		}, metrics, checkers...),
		AuthHandler:     handlers.NewAuthHandler(idsvc),
		UserHandler:     handlers.NewUserHandler(idsvc),
		MarketHandler:   handlers.NewMarketHandler(msvc),
		StakeHandler:    handlers.NewStakeHandler(ssvc),
		DeFiHandler:     handlers.NewDeFiHandler(cfg.Market.EnableDeFi),
		Limiter:         limiter,
		RateLimitPolicy: policy,
		Authenticator:   authn,
		AuthConfig:      middleware.DefaultAuthConfig(),
		CORS:            middleware.CORSFromConfig(cfg.CORS),
		Logging:         middleware.DefaultLoggingConfig(),
		Logger:          log,
		Metrics:         metrics,
		MetricsHandler:  metricsHandler,
		MetricsPath:     cfg.Metrics.Path,
		Debug:           cfg.IsDebug(),
	})
	app.Server = httpserver.NewServer(cfg.Server, app.Handler, log)
	return app, nil
}

// Run serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.Logger.Info("Starting "+ServiceName+" API",
		logging.String("version", Version),
		logging.String("environment", a.Config.Server.Environment),
		logging.String("addr", a.Server.Addr()),
	)
	return a.Server.Run(ctx)
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("Failed to close dependency", logging.Err(err))
		}
	}
	a.closers = nil
}
