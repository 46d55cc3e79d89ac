package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/logging"
)

// Recover turns a panic in a downstream handler into a 500.  With debug set
// the body names the panic value and its type; otherwise it is generic.
func Recover(debugMode bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logging.FromContext(r.Context()).Error("Unhandled panic",
					logging.String(logging.FieldMethod, r.Method),
					logging.String(logging.FieldPath, r.URL.Path),
					logging.Any("panic", rec),
					logging.String("stack", string(debug.Stack())),
				)

				body := map[string]string{"error": "Internal server error"}
				if debugMode {
					body["detail"] = fmt.Sprint(rec)
					body["type"] = fmt.Sprintf("%T", rec)
				} else {
					body["message"] = "An unexpected error occurred"
				}
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(body)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
