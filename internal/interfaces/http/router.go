package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/logging"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/prometheus"
	"github.com/predictpesa/predictpesa-api/internal/interfaces/http/handlers"
	"github.com/predictpesa/predictpesa-api/internal/interfaces/http/middleware"
)

// RouterConfig aggregates all handler and middleware dependencies required
// to construct the complete HTTP route tree.
type RouterConfig struct {
	// Handlers
	HealthHandler *handlers.HealthHandler
	AuthHandler   *handlers.AuthHandler
	UserHandler   *handlers.UserHandler
	MarketHandler *handlers.MarketHandler
	StakeHandler  *handlers.StakeHandler
	DeFiHandler   *handlers.DeFiHandler

	// Middleware
	Limiter         middleware.Limiter
	RateLimitPolicy middleware.RateLimitPolicy
	Authenticator   middleware.Authenticator
	AuthConfig      middleware.AuthConfig
	CORS            middleware.CORSConfig
	Logging         middleware.LoggingConfig

	// Infrastructure
	Logger         logging.Logger
	Metrics        *prometheus.AppMetrics
	MetricsHandler http.Handler
	// MetricsPath defaults to /metrics.
	MetricsPath string
	Debug       bool
}

// NewRouter constructs the complete HTTP route tree from the given
// configuration.  Every request passes RequestID, Recover, RequestLogging,
// Metrics, CORS, RateLimit and Auth in that order before dispatch.  A nil
// Limiter or Authenticator leaves its stage out.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// --- Global middleware (applied to every request) ---
	r.Use(middleware.RequestID(cfg.Logger))
	r.Use(middleware.Recover(cfg.Debug))
	r.Use(middleware.RequestLogging(cfg.Logging))
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.Limiter != nil {
		r.Use(middleware.RateLimit(cfg.Limiter, cfg.RateLimitPolicy))
	}
	if cfg.Authenticator != nil {
		r.Use(middleware.NewAuthMiddleware(cfg.Authenticator, cfg.AuthConfig).Handler)
	}

	// --- Public service endpoints ---
	if h := cfg.HealthHandler; h != nil {
		r.Get("/", h.Root)
		r.Get("/health", h.Health)
		r.Get("/health/detailed", h.Detailed)
		r.Get("/live", h.Liveness)
		r.Get("/ready", h.Readiness)
	}
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsHandler)
	}

	// --- API v1 ---
	r.Route("/api/v1", func(api chi.Router) {
		registerAuthRoutes(api, cfg.AuthHandler)
		registerUserRoutes(api, cfg.UserHandler)
		registerMarketRoutes(api, cfg.MarketHandler)
		registerStakeRoutes(api, cfg.StakeHandler)
		registerDeFiRoutes(api, cfg.DeFiHandler)
	})

	return r
}

// registerAuthRoutes mounts registration and session endpoints under /auth.
func registerAuthRoutes(r chi.Router, h *handlers.AuthHandler) {
	if h == nil {
		return
	}
	r.Route("/auth", h.RegisterRoutes)
}

// registerUserRoutes mounts profile endpoints under /users.
func registerUserRoutes(r chi.Router, h *handlers.UserHandler) {
	if h == nil {
		return
	}
	r.Route("/users", h.RegisterRoutes)
}

// registerMarketRoutes mounts market endpoints under /markets and the
// oracle endpoints under /oracle.
func registerMarketRoutes(r chi.Router, h *handlers.MarketHandler) {
	if h == nil {
		return
	}
	r.Route("/markets", h.RegisterRoutes)
	r.Route("/oracle", h.RegisterOracleRoutes)
}

// registerStakeRoutes mounts stake endpoints under /stakes.
func registerStakeRoutes(r chi.Router, h *handlers.StakeHandler) {
	if h == nil {
		return
	}
	r.Route("/stakes", h.RegisterRoutes)
}

// registerDeFiRoutes mounts the simulated DeFi endpoints under /defi.
func registerDeFiRoutes(r chi.Router, h *handlers.DeFiHandler) {
	if h == nil {
		return
	}
	r.Route("/defi", h.RegisterRoutes)
}
