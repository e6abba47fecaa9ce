// Package util provides error types and context helpers shared across the
// gateway.
//
// # Error Conventions
//
//   - Sentinel errors (errors.New) for stable conditions checked with
//     errors.Is(). Example: ErrRouteNotFound.
//   - GatewayError carries the caller-facing code and HTTP status of every
//     failure produced by the request pipeline.
//   - ConfigError describes a configuration validation failure.
//   - fmt.Errorf with %w for ad-hoc wrapping.
//
// # Context Helpers
//
//	ctx = util.ContextWithRequestID(ctx, "req-123")
//	requestID := util.RequestIDFromContext(ctx)
package util
