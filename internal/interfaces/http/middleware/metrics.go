package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/prometheus"
)

// Metrics records http_requests_total, http_request_duration_seconds and
// the in-flight gauge.
// The path label is the matched chi route pattern; unmatched requests are
// labelled "unmatched".
func Metrics(m *prometheus.AppMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m != nil {
				m.HTTPActiveRequests.WithLabelValues().Inc()
				defer m.HTTPActiveRequests.WithLabelValues().Dec()
			}
			start := time.Now()
			wrapped := newWrappedResponseWriter(w)
			next.ServeHTTP(wrapped, r)
			prometheus.RecordHTTPRequest(m, r.Method, routePattern(r), wrapped.statusCode, time.Since(start))
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
