package health

import "time"

// Status is a health status.
type Status string

// Health statuses.
const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Readiness and liveness statuses.
const (
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
	StatusAlive    = "alive"
)

// DefaultProbeTimeout bounds a single upstream health probe.
const DefaultProbeTimeout = 3 * time.Second

// Endpoint paths.
const (
	PathHealth = "/health"
	PathReady  = "/health/ready"
	PathLive   = "/health/live"
)
