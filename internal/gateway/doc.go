// Package gateway assembles the HTTP surface of the API gateway.
//
// A gin engine serves the gateway's own endpoints (health, metrics, API
// versions and circuit breaker administration). Every other request falls
// through to the proxy chain: rate limiting, the authentication decision
// and finally the proxy orchestrator. The whole engine is wrapped in the
// common middleware stack (recovery, request ID, tracing, metrics,
// logging, CORS and gateway headers).
package gateway
