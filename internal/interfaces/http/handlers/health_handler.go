package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/prometheus"
)

// Overall health states.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthChecker is an interface for components that can report their health.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

type checkerFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func (c checkerFunc) Name() string                    { return c.name }
func (c checkerFunc) Check(ctx context.Context) error { return c.fn(ctx) }

// NewChecker adapts a ping function such as (*redis.Cache).Ping or
// (*postgres.Connection).HealthCheck.
func NewChecker(name string, fn func(ctx context.Context) error) HealthChecker {
	return checkerFunc{name: name, fn: fn}
}

// ServiceInfo identifies the running service in health and info responses.
type ServiceInfo struct {
	Name        string
	Version     string
	Environment string
}

// HealthHandler handles health check HTTP requests.
type HealthHandler struct {
	info     ServiceInfo
	checkers []HealthChecker
	metrics  *prometheus.AppMetrics
	timeout  time.Duration
	startAt  time.Time
}

// NewHealthHandler creates a new HealthHandler.  metrics may be nil.
func NewHealthHandler(info ServiceInfo, metrics *prometheus.AppMetrics, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{
		info:     info,
		checkers: checkers,
		metrics:  metrics,
		timeout:  5 * time.Second,
		startAt:  time.Now(),
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string    `json:"status"`
	Service     string    `json:"service"`
	Version     string    `json:"version"`
	Environment string    `json:"environment"`
	Timestamp   time.Time `json:"timestamp"`
}

// DetailedResponse is the body of GET /health/detailed.
type DetailedResponse struct {
	HealthResponse
	Uptime       string                    `json:"uptime"`
	Dependencies map[string]ComponentCheck `json:"dependencies"`
}

// ReadinessResponse is the response for readiness probe.
type ReadinessResponse struct {
	Status     string                    `json:"status"`
	Components map[string]ComponentCheck `json:"components,omitempty"`
}

// ComponentCheck represents the health status of a single component.
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// InfoResponse is the body of GET /.
type InfoResponse struct {
	Message     string `json:"message"`
	Service     string `json:"service"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
	Health      string `json:"health"`
	Metrics     string `json:"metrics"`
	API         string `json:"api"`
}

// Root handles GET /.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, InfoResponse{
		Message:     "Welcome to " + h.info.Name + " API",
		Service:     h.info.Name,
		Version:     h.info.Version,
		Environment: h.info.Environment,
		Health:      "/health",
		Metrics:     "/metrics",
		API:         "/api/v1",
	})
}

// Health handles GET /health.  It never touches a dependency.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.base(StatusHealthy))
}

// Liveness handles GET /live.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "alive",
		"uptime": time.Since(h.startAt).Truncate(time.Second).String(),
	})
}

// Readiness handles GET /ready.  It answers 503 when any dependency fails.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	components := h.checkAll(r.Context())
	if allHealthy(components) {
		writeJSON(w, http.StatusOK, ReadinessResponse{Status: "ready", Components: components})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, ReadinessResponse{Status: "not_ready", Components: components})
}

// Detailed handles GET /health/detailed.  A failing dependency degrades the
// reported status but the endpoint itself still answers 200.
func (h *HealthHandler) Detailed(w http.ResponseWriter, r *http.Request) {
	components := h.checkAll(r.Context())
	status := StatusHealthy
	if !allHealthy(components) {
		status = StatusDegraded
	}
	writeJSON(w, http.StatusOK, DetailedResponse{
		HealthResponse: h.base(status),
		Uptime:         time.Since(h.startAt).Truncate(time.Second).String(),
		Dependencies:   components,
	})
}

func (h *HealthHandler) base(status string) HealthResponse {
	return HealthResponse{
		Status:      status,
		Service:     h.info.Name,
		Version:     h.info.Version,
		Environment: h.info.Environment,
		Timestamp:   time.Now().UTC(),
	}
}

// checkAll runs all health checkers concurrently and returns results.
func (h *HealthHandler) checkAll(ctx context.Context) map[string]ComponentCheck {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	results := make(map[string]ComponentCheck, len(h.checkers))
	var mu sync.Mutex
	var g errgroup.Group

	for _, checker := range h.checkers {
		c := checker
		g.Go(func() error {
			start := time.Now()
			err := c.Check(ctx)
			cc := ComponentCheck{
				Status:  StatusHealthy,
				Latency: time.Since(start).Truncate(time.Microsecond).String(),
			}
			if err != nil {
				cc.Status = StatusUnhealthy
				cc.Error = err.Error()
			}
			prometheus.RecordHealthCheck(h.metrics, c.Name(), err == nil)

			mu.Lock()
			results[c.Name()] = cc
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func allHealthy(components map[string]ComponentCheck) bool {
	for _, c := range components {
		if c.Status != StatusHealthy {
			return false
		}
	}
	return true
}
