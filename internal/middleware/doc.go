// Package middleware provides the HTTP middleware wrapped around the
// gateway's proxy handler.
//
// # Middleware Components
//
//   - Recovery: panic recovery with stack trace logging
//   - RequestID: request identifier propagation
//   - Logging: structured request logging with body redaction
//   - CORS: Cross-Origin Resource Sharing headers
//   - GatewayHeaders: gateway and API version response headers
//   - RateLimit: tiered per-client throttling and per-route limits
//
// Middleware functions follow the standard Go pattern:
//
//	handler := middleware.Chain(
//	    middleware.Recovery(logger, nil),
//	    middleware.RequestID(),
//	    middleware.Logging(logger),
//	)(proxyHandler)
package middleware
