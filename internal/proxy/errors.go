package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"

	"github.com/vyrodovalexey/apigateway/internal/circuitbreaker"
	"github.com/vyrodovalexey/apigateway/internal/util"
)

// Sentinel errors for proxy operations.
var (
	// ErrUpstreamTimeout indicates that the upstream request timed out.
	ErrUpstreamTimeout = errors.New("upstream request timed out")

	// ErrConnectionRefused indicates that the upstream refused the connection.
	ErrConnectionRefused = errors.New("upstream refused connection")

	// ErrHostNotFound indicates that the upstream host did not resolve.
	ErrHostNotFound = errors.New("upstream host not found")

	// ErrRequestTooLarge indicates that the inbound body exceeded the limit.
	ErrRequestTooLarge = errors.New("request body too large")
)

// classifyTransportError wraps err with the sentinel naming the
// connection-level failure behind it, when one applies.
func classifyTransportError(err error) error {
	var sentinel error
	var dnsErr *net.DNSError
	var urlErr *url.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		sentinel = ErrUpstreamTimeout
	case errors.Is(err, syscall.ECONNREFUSED):
		sentinel = ErrConnectionRefused
	case errors.As(err, &dnsErr):
		sentinel = ErrHostNotFound
	case errors.As(err, &urlErr) && urlErr.Timeout():
		sentinel = ErrUpstreamTimeout
	default:
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// errorLabel returns a short metric label for a transport failure.
func errorLabel(err error) string {
	switch {
	case errors.Is(err, ErrUpstreamTimeout):
		return "timeout"
	case errors.Is(err, ErrConnectionRefused):
		return "connection_refused"
	case errors.Is(err, ErrHostNotFound):
		return "dns"
	default:
		return "transport"
	}
}

// translateError maps any failure of a forwarded call to the gateway's
// error taxonomy.
func translateError(err error) *util.GatewayError {
	var gwErr *util.GatewayError
	if errors.As(err, &gwErr) {
		return gwErr
	}
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return util.NewCircuitOpenError()
	}

	var transportErr *transportError
	if errors.As(err, &transportErr) {
		return util.NewUpstreamUnreachableError(transportErr.cause)
	}
	return util.NewInternalError(err)
}

// transportError marks a failure to complete the HTTP exchange with the
// upstream. Only these count against the circuit breaker. Exchanges the
// caller abandoned are reported as CLIENT_CLOSED_REQUEST instead.
type transportError struct {
	cause error
}

func (e *transportError) Error() string {
	return "upstream transport failure: " + e.cause.Error()
}

func (e *transportError) Unwrap() error {
	return e.cause
}
