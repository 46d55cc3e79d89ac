package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/predictpesa/predictpesa-api/pkg/errors"
)

type errorBody struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

// writeError writes the {"error":{"code":...,"message":...}} envelope.
func writeError(w http.ResponseWriter, status int, code errors.ErrorCode, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]errorBody{"error": {Code: code, Message: message}})
}
