package middleware

import "net/http"

// HTTP header constants.
const (
	HeaderContentType = "Content-Type"
	HeaderRetryAfter  = "Retry-After"
	HeaderOrigin      = "Origin"
	HeaderXRequestID  = "X-Request-ID"

	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"

	HeaderGatewayVersion       = "X-Gateway-Version"
	HeaderGatewayResponseTime  = "X-Gateway-Response-Time"
	HeaderAPIVersion           = "X-API-Version"
	HeaderAPISupportedVersions = "X-API-Supported-Versions"
	HeaderAPILatestVersion     = "X-API-Latest-Version"
)

// ContentTypeJSON is the JSON content type.
const ContentTypeJSON = "application/json"

// GatewayVersion is reported in X-Gateway-Version.
const GatewayVersion = "1.0.0"

// DefaultAPIVersion is reported for paths without a version segment.
const DefaultAPIVersion = "v1"

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain composes middleware so the first one is outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
