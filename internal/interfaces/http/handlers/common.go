// Package handlers implements the /api/v1 resource endpoints and the public
// health and info endpoints.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/predictpesa/predictpesa-api/internal/infrastructure/auth/jwtauth"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/logging"
	"github.com/predictpesa/predictpesa-api/internal/interfaces/http/middleware"
	"github.com/predictpesa/predictpesa-api/pkg/errors"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

// MessageResponse acknowledges an operation that returns no resource.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorBody is the inner object of the error envelope.
type ErrorBody struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

// ErrorResponse is the {"error":{...}} envelope every failure uses.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, statusCode int, code errors.ErrorCode, message string) {
	writeJSON(w, statusCode, ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
}

// writeAppError maps err to its HTTP status.  Server-side failures are logged
// with the request logger and masked.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *errors.AppError
	if !errors.As(err, &appErr) {
		appErr = errors.Wrap(err, errors.ErrCodeInternal, "internal server error")
	}
	status := errors.HTTPStatusForCode(appErr.Code)
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("Request failed",
			logging.String(logging.FieldPath, r.URL.Path),
			logging.String("code", appErr.Code.String()),
			logging.Err(err),
		)
		writeError(w, status, appErr.Code, "Internal server error")
		return
	}
	writeError(w, status, appErr.Code, appErr.Message)
}

// decodeJSON reads a JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return errors.Validation("request body is required")
		}
		return errors.Validation("invalid request body").WithCause(err)
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err != nil && err != io.EOF {
		return errors.Validation("invalid request body").WithCause(err)
	}
	return nil
}

// parsePagination reads skip and limit from the query string.  A missing
// limit yields defaultLimit.
func parsePagination(r *http.Request, defaultLimit, maxLimit int) (skip, limit int, err error) {
	q := r.URL.Query()
	limit = defaultLimit
	if v := q.Get("skip"); v != "" {
		if skip, err = strconv.Atoi(v); err != nil || skip < 0 {
			return 0, 0, errors.Validation("skip must be a non-negative integer")
		}
	}
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 1 || limit > maxLimit {
			return 0, 0, errors.Validation("limit must be between 1 and " + strconv.Itoa(maxLimit))
		}
	}
	return skip, limit, nil
}

// queryBool reads an optional boolean query parameter.
func queryBool(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Validation(name + " must be a boolean")
	}
	return b, nil
}

// requireIdentity returns the authenticated caller or writes a 401.
func requireIdentity(w http.ResponseWriter, r *http.Request) (*jwtauth.Identity, bool) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Could not validate credentials")
		return nil, false
	}
	return identity, true
}
