package util

import (
	"encoding/json"
	"net/http"
	"time"
)

// TimestampFormat is the layout of timestamps in error responses.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// ErrorResponse is the JSON body of every gateway-generated error.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail describes a single error.
type ErrorDetail struct {
	Message    string `json:"message"`
	Code       string `json:"code"`
	StatusCode int    `json:"statusCode"`
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path"`
}

// NewErrorResponse builds the response body for err.
func NewErrorResponse(err *GatewayError, path string, now time.Time) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Message:    err.Message,
			Code:       err.Code,
			StatusCode: err.StatusCode,
			Timestamp:  now.UTC().Format(TimestampFormat),
			Path:       path,
		},
	}
}

// WriteError writes err to w. An UPSTREAM_ERROR carrying a body is passed
// through with the upstream status and content type; every other error is
// written as an ErrorResponse. Statuses that forbid a body get none.
func WriteError(w http.ResponseWriter, path string, err error) {
	ge := AsGatewayError(err)

	if !StatusAllowsBody(ge.StatusCode) {
		w.WriteHeader(ge.StatusCode)
		return
	}

	if ge.Code == CodeUpstreamError && len(ge.Body) > 0 {
		if ge.ContentType != "" {
			w.Header().Set("Content-Type", ge.ContentType)
		}
		w.WriteHeader(ge.StatusCode)
		_, _ = w.Write(ge.Body)
		return
	}

	body, marshalErr := json.Marshal(NewErrorResponse(ge, path, time.Now()))
	if marshalErr != nil {
		body = []byte(`{"success":false,"error":{"message":"Internal server error","code":"INTERNAL_ERROR","statusCode":500}}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ge.StatusCode)
	_, _ = w.Write(body)
}

// WriteStatusError writes a generic error for an HTTP status that has no
// taxonomy entry of its own.
func WriteStatusError(w http.ResponseWriter, path string, status int, message string) {
	WriteError(w, path, &GatewayError{
		Code:       CodeForStatus(status),
		StatusCode: status,
		Message:    message,
	})
}

// StatusAllowsBody reports whether a response with status may carry a
// body.
func StatusAllowsBody(status int) bool {
	switch {
	case status >= 100 && status <= 199:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}
