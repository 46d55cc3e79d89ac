package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
	ErrCodeNotImplemented     ErrorCode = "COMMON_016"
)

// Short aliases used at call sites.
const (
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeUnauthorized   = ErrCodeUnauthorized
	CodeForbidden      = ErrCodeForbidden
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeRateLimit      = ErrCodeTooManyRequests
	CodeNotImplemented = ErrCodeNotImplemented
	CodeOK             = ErrorCode("OK")
	CodeUnknown        = ErrorCode("UNKNOWN")
)

// Auth Module Error Codes
const (
	ErrCodeTokenMissing       ErrorCode = "AUTH_001"
	ErrCodeTokenInvalid       ErrorCode = "AUTH_002"
	ErrCodeTokenExpired       ErrorCode = "AUTH_003"
	ErrCodeTokenRevoked       ErrorCode = "AUTH_004"
	ErrCodeInvalidCredentials ErrorCode = "AUTH_005"
	ErrCodeEmailExists        ErrorCode = "AUTH_006"
	ErrCodeUserNotFound       ErrorCode = "AUTH_007"
	ErrCodeUserInactive       ErrorCode = "AUTH_008"
)

// Market Module Error Codes
const (
	ErrCodeMarketNotFound     ErrorCode = "MKT_001"
	ErrCodeMarketInvalidState ErrorCode = "MKT_002"
	ErrCodeMarketNotPermitted ErrorCode = "MKT_003"
	ErrCodeMarketInvalidData  ErrorCode = "MKT_004"
)

// Stake Module Error Codes
const (
	ErrCodeStakeNotFound       ErrorCode = "STK_001"
	ErrCodeStakeAmountInvalid  ErrorCode = "STK_002"
	ErrCodeMarketNotStakeable  ErrorCode = "STK_003"
	ErrCodeStakeNotCancellable ErrorCode = "STK_004"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeFeatureDisabled:    http.StatusForbidden,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeTokenMissing:       http.StatusUnauthorized,
	ErrCodeTokenInvalid:       http.StatusUnauthorized,
	ErrCodeTokenExpired:       http.StatusUnauthorized,
	ErrCodeTokenRevoked:       http.StatusUnauthorized,
	ErrCodeInvalidCredentials: http.StatusUnauthorized,
	ErrCodeEmailExists:        http.StatusBadRequest,
	ErrCodeUserNotFound:       http.StatusNotFound,
	ErrCodeUserInactive:       http.StatusForbidden,

	ErrCodeMarketNotFound:     http.StatusNotFound,
	ErrCodeMarketInvalidState: http.StatusConflict,
	ErrCodeMarketNotPermitted: http.StatusForbidden,
	ErrCodeMarketInvalidData:  http.StatusUnprocessableEntity,

	ErrCodeStakeNotFound:       http.StatusNotFound,
	ErrCodeStakeAmountInvalid:  http.StatusBadRequest,
	ErrCodeMarketNotStakeable:  http.StatusConflict,
	ErrCodeStakeNotCancellable: http.StatusConflict,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeFeatureDisabled:    "feature disabled",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeTokenMissing:       "missing bearer token",
	ErrCodeTokenInvalid:       "invalid token",
	ErrCodeTokenExpired:       "token has expired",
	ErrCodeTokenRevoked:       "token has been revoked",
	ErrCodeInvalidCredentials: "incorrect email or password",
	ErrCodeEmailExists:        "email already registered",
	ErrCodeUserNotFound:       "user not found",
	ErrCodeUserInactive:       "user account is not active",

	ErrCodeMarketNotFound:     "market not found",
	ErrCodeMarketInvalidState: "market is not in a valid state for this operation",
	ErrCodeMarketNotPermitted: "not authorized for this market",
	ErrCodeMarketInvalidData:  "invalid market data",

	ErrCodeStakeNotFound:       "stake not found",
	ErrCodeStakeAmountInvalid:  "stake amount out of range",
	ErrCodeMarketNotStakeable:  "market is not accepting stakes",
	ErrCodeStakeNotCancellable: "stake cannot be cancelled",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError reports whether code maps to a 4xx status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError reports whether code maps to a 5xx status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of code, e.g. "AUTH" for AUTH_003.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
