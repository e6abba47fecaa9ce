// Package health reports the state of the gateway and its upstreams.
//
// The detailed report probes every configured service at its health path
// and combines the probe result with the service's circuit breaker state:
//
//	checker := health.NewChecker(version, table, breakers,
//	    health.WithProbeTimeout(3*time.Second),
//	    health.WithDependency(health.RedisCheck("redis", client)),
//	)
//	health.NewHandler(checker, logger).RegisterRoutes(engine)
//
// Three endpoints are served:
//
//   - GET /health: detailed report, 503 when the gateway is unhealthy
//   - GET /health/ready: 503 while any circuit breaker is open
//   - GET /health/live: always 200 while the process runs
package health
