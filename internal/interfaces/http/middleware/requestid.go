package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/logging"
)

// RequestIDHeader carries the correlation id in both directions.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 128

// RequestID echoes a client-supplied X-Request-ID or generates a UUID, sets
// it on the response, and stores it in the request context together with a
// logger that carries it.
func RequestID(logger logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if id == "" || len(id) > maxRequestIDLen {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			ctx := WithRequestID(r.Context(), id)
			ctx = logging.WithContext(ctx, logger.With(logging.String(logging.FieldRequestID, id)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
