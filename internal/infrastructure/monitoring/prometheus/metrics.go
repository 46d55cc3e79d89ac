package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every metric family the API records.
type AppMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Request pipeline
	AuthAttemptsTotal               CounterVec
	AuthBlacklistWriteFailuresTotal CounterVec
	RateLimitDecisionsTotal         CounterVec

	// Infrastructure
	CacheOperationsTotal       CounterVec
	DomainEventsPublishedTotal CounterVec
	HealthCheckStatus          GaugeVec
}

// DefaultHTTPDurationBuckets are tuned for an API answering in milliseconds.
var DefaultHTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Label values shared by recorders.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultHit     = "hit"
	ResultMiss    = "miss"
	ResultError   = "error"

	DecisionAllowed  = "allowed"
	DecisionRejected = "rejected"
	DecisionFailOpen = "fail_open"
)

// NewAppMetrics registers all metric families on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	if collector == nil {
		collector = NewNopCollector()
	}
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "In-flight HTTP requests")

	m.AuthAttemptsTotal = collector.RegisterCounter("auth_attempts_total", "Bearer token authentication attempts", "result", "reason")
	m.AuthBlacklistWriteFailuresTotal = collector.RegisterCounter("auth_blacklist_write_failures_total", "Logouts whose blacklist write failed after every retry")
	m.RateLimitDecisionsTotal = collector.RegisterCounter("rate_limit_decisions_total", "Rate limiter decisions", "decision")

	m.CacheOperationsTotal = collector.RegisterCounter("cache_operations_total", "Cache facade operations", "operation", "result")
	m.DomainEventsPublishedTotal = collector.RegisterCounter("domain_events_published_total", "Domain events handed to the broker", "topic", "result")
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "1 when a dependency check passes, 0 otherwise", "component")

	return m
}

// NewNopAppMetrics returns AppMetrics that record nothing.
func NewNopAppMetrics() *AppMetrics {
	return NewAppMetrics(NewNopCollector())
}

// RecordHTTPRequest counts one finished request.
func RecordHTTPRequest(m *AppMetrics, method, route string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordAuthAttempt counts one authentication outcome.  reason is empty on
// success.
func RecordAuthAttempt(m *AppMetrics, success bool, reason string) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if !success {
		result = ResultFailure
	}
	m.AuthAttemptsTotal.WithLabelValues(result, reason).Inc()
}

// RecordBlacklistWriteFailure counts a logout whose revocation never landed.
func RecordBlacklistWriteFailure(m *AppMetrics) {
	if m == nil {
		return
	}
	m.AuthBlacklistWriteFailuresTotal.WithLabelValues().Inc()
}

// RecordRateLimitDecision counts one limiter verdict.
func RecordRateLimitDecision(m *AppMetrics, decision string) {
	if m == nil {
		return
	}
	m.RateLimitDecisionsTotal.WithLabelValues(decision).Inc()
}

// RecordCacheOperation counts one cache facade call.
func RecordCacheOperation(m *AppMetrics, operation, result string) {
	if m == nil {
		return
	}
	m.CacheOperationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordEventPublished counts one domain event publish attempt.
func RecordEventPublished(m *AppMetrics, topic string, err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	m.DomainEventsPublishedTotal.WithLabelValues(topic, result).Inc()
}

// RecordHealthCheck sets the health gauge for component.
func RecordHealthCheck(m *AppMetrics, component string, healthy bool) {
	if m == nil {
		return
	}
	v := 0.0
	if healthy {
		v = 1
	}
	m.HealthCheckStatus.WithLabelValues(component).Set(v)
}
