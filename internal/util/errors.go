package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned to callers.
const (
	CodeRouteNotFound        = "ROUTE_NOT_FOUND"
	CodeServiceNotConfigured = "SERVICE_NOT_CONFIGURED"
	CodeCircuitOpen          = "CIRCUIT_OPEN"
	CodeUpstreamUnreachable  = "UPSTREAM_UNREACHABLE"
	CodeUpstreamError        = "UPSTREAM_ERROR"
	CodeInternalError        = "INTERNAL_ERROR"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeTooManyRequests      = "TOO_MANY_REQUESTS"
	CodeServiceNotFound      = "SERVICE_NOT_FOUND"
	CodeClientClosedRequest  = "CLIENT_CLOSED_REQUEST"
)

// StatusClientClosedRequest is the non-standard status recorded when the
// caller goes away before the upstream answers.
const StatusClientClosedRequest = 499

// Sentinel errors.
var (
	ErrRouteNotFound        = errors.New("route not found")
	ErrServiceNotConfigured = errors.New("service not configured")
	ErrCircuitOpen          = errors.New("circuit breaker open")
	ErrUpstreamUnreachable  = errors.New("upstream unreachable")
	ErrUpstreamStatus       = errors.New("upstream returned error status")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrRateLimited          = errors.New("rate limit exceeded")
	ErrConfigInvalid        = errors.New("invalid configuration")
	ErrClientClosed         = errors.New("client closed request")
)

// GatewayError is the caller-facing form of every failure leaving the
// request pipeline.
type GatewayError struct {
	Code       string
	StatusCode int
	Message    string
	// Body and ContentType are set for UPSTREAM_ERROR, where the upstream
	// payload is passed through to the caller.
	Body        []byte
	ContentType string
	Cause       error
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%d): %s: %v", e.Code, e.StatusCode, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Unwrap returns the underlying error.
func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// Is matches another GatewayError with the same code, or the cause.
func (e *GatewayError) Is(target error) bool {
	if ge, ok := target.(*GatewayError); ok {
		return ge.Code == e.Code
	}
	return errors.Is(e.Cause, target)
}

// NewRouteNotFoundError creates a ROUTE_NOT_FOUND error.
func NewRouteNotFoundError(method, path string) *GatewayError {
	return &GatewayError{
		Code:       CodeRouteNotFound,
		StatusCode: http.StatusNotFound,
		Message:    fmt.Sprintf("Route %s %s not found", method, path),
		Cause:      ErrRouteNotFound,
	}
}

// NewServiceNotConfiguredError creates a SERVICE_NOT_CONFIGURED error.
func NewServiceNotConfiguredError(service string) *GatewayError {
	return &GatewayError{
		Code:       CodeServiceNotConfigured,
		StatusCode: http.StatusServiceUnavailable,
		Message:    fmt.Sprintf("Service %s not configured", service),
		Cause:      ErrServiceNotConfigured,
	}
}

// NewCircuitOpenError creates a CIRCUIT_OPEN error.
func NewCircuitOpenError() *GatewayError {
	return &GatewayError{
		Code:       CodeCircuitOpen,
		StatusCode: http.StatusServiceUnavailable,
		Message:    "Service temporarily unavailable",
		Cause:      ErrCircuitOpen,
	}
}

// NewUpstreamUnreachableError creates an UPSTREAM_UNREACHABLE error. The
// cause is kept for logging only and never rendered to the caller.
func NewUpstreamUnreachableError(cause error) *GatewayError {
	if cause == nil {
		cause = ErrUpstreamUnreachable
	}
	return &GatewayError{
		Code:       CodeUpstreamUnreachable,
		StatusCode: http.StatusServiceUnavailable,
		Message:    "Service unavailable",
		Cause:      fmt.Errorf("%w: %w", ErrUpstreamUnreachable, cause),
	}
}

// NewUpstreamError creates an UPSTREAM_ERROR mirroring the upstream status.
func NewUpstreamError(statusCode int, body []byte, contentType string) *GatewayError {
	return &GatewayError{
		Code:        CodeUpstreamError,
		StatusCode:  statusCode,
		Message:     http.StatusText(statusCode),
		Body:        body,
		ContentType: contentType,
		Cause:       ErrUpstreamStatus,
	}
}

// NewClientClosedError creates a CLIENT_CLOSED_REQUEST error for a call
// abandoned by the caller.
func NewClientClosedError(cause error) *GatewayError {
	if cause == nil {
		cause = ErrClientClosed
	}
	return &GatewayError{
		Code:       CodeClientClosedRequest,
		StatusCode: StatusClientClosedRequest,
		Message:    "Client closed request",
		Cause:      fmt.Errorf("%w: %w", ErrClientClosed, cause),
	}
}

// NewInternalError creates an INTERNAL_ERROR.
func NewInternalError(cause error) *GatewayError {
	return &GatewayError{
		Code:       CodeInternalError,
		StatusCode: http.StatusInternalServerError,
		Message:    "Internal server error",
		Cause:      cause,
	}
}

// NewUnauthorizedError creates an UNAUTHORIZED error.
func NewUnauthorizedError(message string) *GatewayError {
	if message == "" {
		message = "Authentication required"
	}
	return &GatewayError{
		Code:       CodeUnauthorized,
		StatusCode: http.StatusUnauthorized,
		Message:    message,
		Cause:      ErrUnauthorized,
	}
}

// NewForbiddenError creates a FORBIDDEN error.
func NewForbiddenError(message string) *GatewayError {
	return &GatewayError{
		Code:       CodeForbidden,
		StatusCode: http.StatusForbidden,
		Message:    message,
		Cause:      ErrForbidden,
	}
}

// NewTooManyRequestsError creates a TOO_MANY_REQUESTS error.
func NewTooManyRequestsError() *GatewayError {
	return &GatewayError{
		Code:       CodeTooManyRequests,
		StatusCode: http.StatusTooManyRequests,
		Message:    "Too many requests",
		Cause:      ErrRateLimited,
	}
}

// NewServiceNotFoundError creates a SERVICE_NOT_FOUND error for admin
// operations naming an unknown service.
func NewServiceNotFoundError(service string) *GatewayError {
	return &GatewayError{
		Code:       CodeServiceNotFound,
		StatusCode: http.StatusNotFound,
		Message:    fmt.Sprintf("Service %s not found", service),
		Cause:      ErrServiceNotConfigured,
	}
}

// AsGatewayError converts any error into a GatewayError. Errors that are
// not already GatewayErrors become INTERNAL_ERROR.
func AsGatewayError(err error) *GatewayError {
	if err == nil {
		return nil
	}
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge
	}
	return NewInternalError(err)
}

// CodeForStatus returns the generic error code for an HTTP status that has
// no taxonomy entry of its own.
func CodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusUnprocessableEntity:
		return "UNPROCESSABLE_ENTITY"
	case http.StatusTooManyRequests:
		return CodeTooManyRequests
	case http.StatusBadGateway:
		return "BAD_GATEWAY"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	case http.StatusGatewayTimeout:
		return "GATEWAY_TIMEOUT"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}

// ConfigError represents a configuration-related error.
type ConfigError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error at %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ConfigError) Is(target error) bool {
	if target == ErrConfigInvalid {
		return true
	}
	_, ok := target.(*ConfigError)
	return ok || errors.Is(e.Cause, target)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a new ConfigError with a cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}
