package util

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewErrorResponse(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 12, 30, 0, 5_000_000, time.UTC)
	resp := NewErrorResponse(NewCircuitOpenError(), "/api/v1/challenges", now)

	assert.False(t, resp.Success)
	assert.Equal(t, CodeCircuitOpen, resp.Error.Code)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Error.StatusCode)
	assert.Equal(t, "Service temporarily unavailable", resp.Error.Message)
	assert.Equal(t, "2024-03-01T12:30:00.005Z", resp.Error.Timestamp)
	assert.Equal(t, "/api/v1/challenges", resp.Error.Path)
}

func TestWriteError_Envelope(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteError(rec, "/api/v1/nope", NewRouteNotFoundError(http.MethodGet, "/api/v1/nope"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, CodeRouteNotFound, resp.Error.Code)
	assert.Equal(t, http.StatusNotFound, resp.Error.StatusCode)
	assert.NotEmpty(t, resp.Error.Timestamp)
}

func TestWriteError_UpstreamPassThrough(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteError(rec, "/x", NewUpstreamError(http.StatusConflict, []byte(`{"message":"exists"}`), "application/json"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"message":"exists"}`, rec.Body.String())
}

func TestWriteError_PlainErrorIsInternal(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteError(rec, "/x", errors.New("dial tcp 10.0.0.1:3000: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.1")
	assert.Contains(t, rec.Body.String(), CodeInternalError)
}

func TestWriteStatusError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteStatusError(rec, "/x", http.StatusBadGateway, "Bad gateway")

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "BAD_GATEWAY", resp.Error.Code)
}

func TestWriteError_BodilessStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{name: "not modified", err: NewUpstreamError(http.StatusNotModified, []byte("stale"), "text/plain")},
		{name: "no content", err: &GatewayError{Code: CodeForStatus(http.StatusNoContent), StatusCode: http.StatusNoContent}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			WriteError(rec, "/api/v1/challenge/1", tt.err)

			assert.Equal(t, AsGatewayError(tt.err).StatusCode, rec.Code)
			assert.Zero(t, rec.Body.Len())
			assert.Empty(t, rec.Header().Get("Content-Type"))
		})
	}

	rec := httptest.NewRecorder()
	WriteStatusError(rec, "/x", http.StatusNotModified, "Not Modified")
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestStatusAllowsBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusContinue, false},
		{http.StatusSwitchingProtocols, false},
		{http.StatusOK, true},
		{http.StatusNoContent, false},
		{http.StatusNotModified, false},
		{http.StatusNotFound, true},
		{StatusClientClosedRequest, true},
		{http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusAllowsBody(tt.status), "status %d", tt.status)
	}
}
