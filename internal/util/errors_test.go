package util

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayErrorConstructors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		err            *GatewayError
		expectedCode   string
		expectedStatus int
		sentinel       error
	}{
		{
			name:           "route not found",
			err:            NewRouteNotFoundError(http.MethodGet, "/api/v1/nothing"),
			expectedCode:   CodeRouteNotFound,
			expectedStatus: http.StatusNotFound,
			sentinel:       ErrRouteNotFound,
		},
		{
			name:           "service not configured",
			err:            NewServiceNotConfiguredError("ghost"),
			expectedCode:   CodeServiceNotConfigured,
			expectedStatus: http.StatusServiceUnavailable,
			sentinel:       ErrServiceNotConfigured,
		},
		{
			name:           "circuit open",
			err:            NewCircuitOpenError(),
			expectedCode:   CodeCircuitOpen,
			expectedStatus: http.StatusServiceUnavailable,
			sentinel:       ErrCircuitOpen,
		},
		{
			name:           "upstream unreachable",
			err:            NewUpstreamUnreachableError(errors.New("connection refused")),
			expectedCode:   CodeUpstreamUnreachable,
			expectedStatus: http.StatusServiceUnavailable,
			sentinel:       ErrUpstreamUnreachable,
		},
		{
			name:           "upstream error mirrors status",
			err:            NewUpstreamError(http.StatusConflict, []byte(`{"x":1}`), "application/json"),
			expectedCode:   CodeUpstreamError,
			expectedStatus: http.StatusConflict,
			sentinel:       ErrUpstreamStatus,
		},
		{
			name:           "unauthorized",
			err:            NewUnauthorizedError(""),
			expectedCode:   CodeUnauthorized,
			expectedStatus: http.StatusUnauthorized,
			sentinel:       ErrUnauthorized,
		},
		{
			name:           "too many requests",
			err:            NewTooManyRequestsError(),
			expectedCode:   CodeTooManyRequests,
			expectedStatus: http.StatusTooManyRequests,
			sentinel:       ErrRateLimited,
		},
		{
			name:           "service not found",
			err:            NewServiceNotFoundError("ghost"),
			expectedCode:   CodeServiceNotFound,
			expectedStatus: http.StatusNotFound,
			sentinel:       ErrServiceNotConfigured,
		},
		{
			name:           "client closed request",
			err:            NewClientClosedError(context.Canceled),
			expectedCode:   CodeClientClosedRequest,
			expectedStatus: StatusClientClosedRequest,
			sentinel:       context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expectedCode, tt.err.Code)
			assert.Equal(t, tt.expectedStatus, tt.err.StatusCode)
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestGatewayError_Is(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("forward: %w", NewCircuitOpenError())

	assert.True(t, errors.Is(err, &GatewayError{Code: CodeCircuitOpen}))
	assert.False(t, errors.Is(err, &GatewayError{Code: CodeRouteNotFound}))
}

func TestUpstreamUnreachableError_KeepsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: connection refused")
	err := NewUpstreamUnreachableError(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Service unavailable", err.Message)
	assert.NotContains(t, err.Message, "dial")
}

func TestAsGatewayError(t *testing.T) {
	t.Parallel()

	assert.Nil(t, AsGatewayError(nil))

	wrapped := fmt.Errorf("wrap: %w", NewRouteNotFoundError(http.MethodGet, "/x"))
	ge := AsGatewayError(wrapped)
	require.NotNil(t, ge)
	assert.Equal(t, CodeRouteNotFound, ge.Code)

	ge = AsGatewayError(errors.New("boom"))
	require.NotNil(t, ge)
	assert.Equal(t, CodeInternalError, ge.Code)
	assert.Equal(t, http.StatusInternalServerError, ge.StatusCode)
}

func TestCodeForStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status   int
		expected string
	}{
		{http.StatusBadRequest, "BAD_REQUEST"},
		{http.StatusUnauthorized, CodeUnauthorized},
		{http.StatusNotFound, "NOT_FOUND"},
		{http.StatusTooManyRequests, CodeTooManyRequests},
		{http.StatusGatewayTimeout, "GATEWAY_TIMEOUT"},
		{http.StatusTeapot, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, CodeForStatus(tt.status))
		})
	}
}

func TestConfigError(t *testing.T) {
	t.Parallel()

	err := NewConfigError("routes[0].service", "unknown service")
	assert.Equal(t, "config error at routes[0].service: unknown service", err.Error())
	assert.ErrorIs(t, err, ErrConfigInvalid)

	cause := errors.New("bad url")
	withCause := NewConfigErrorWithCause("services.auth.url", "invalid url", cause)
	assert.ErrorIs(t, withCause, cause)
	assert.Equal(t, "config error: x", NewConfigError("", "x").Error())
}
