// Package circuitbreaker provides per-service circuit breakers for the API Gateway.
// It implements the circuit breaker pattern to prevent cascading failures.
package circuitbreaker

import (
	"time"

	"github.com/vyrodovalexey/apigateway/internal/config"
)

// Config holds configuration for a circuit breaker.
type Config struct {
	// FailureThreshold is the number of consecutive failures before opening the circuit.
	FailureThreshold int

	// ResetTimeout is the duration the circuit stays open before transitioning to half-open.
	ResetTimeout time.Duration

	// MonitoringPeriod bounds how long a failure counts toward the threshold
	// while the circuit is closed. A failure arriving after a quiet period
	// longer than this starts a new count.
	MonitoringPeriod time.Duration

	// OnStateChange is called when the circuit breaker state changes.
	OnStateChange func(name string, from, to State)
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		FailureThreshold: config.DefaultFailureThreshold,
		ResetTimeout:     config.DefaultResetTimeout,
		MonitoringPeriod: config.DefaultMonitoringPeriod,
	}
}

// ConfigFromGateway converts the gateway configuration section.
func ConfigFromGateway(cfg config.CircuitBreakerConfig) *Config {
	return &Config{
		FailureThreshold: cfg.FailureThreshold,
		ResetTimeout:     cfg.ResetTimeout.Duration(),
		MonitoringPeriod: cfg.MonitoringPeriod.Duration(),
	}
}

// Validate replaces unset or out of range values with defaults.
func (c *Config) Validate() {
	if c.FailureThreshold < 1 {
		c.FailureThreshold = config.DefaultFailureThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = config.DefaultResetTimeout
	}
	if c.MonitoringPeriod <= 0 {
		c.MonitoringPeriod = config.DefaultMonitoringPeriod
	}
}

// WithFailureThreshold sets the failure threshold.
func (c *Config) WithFailureThreshold(n int) *Config {
	c.FailureThreshold = n
	return c
}

// WithResetTimeout sets the reset timeout.
func (c *Config) WithResetTimeout(d time.Duration) *Config {
	c.ResetTimeout = d
	return c
}

// WithMonitoringPeriod sets the monitoring period.
func (c *Config) WithMonitoringPeriod(d time.Duration) *Config {
	c.MonitoringPeriod = d
	return c
}

// WithOnStateChange sets the state change callback.
func (c *Config) WithOnStateChange(fn func(name string, from, to State)) *Config {
	c.OnStateChange = fn
	return c
}
