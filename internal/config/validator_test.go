package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/apigateway/internal/util"
)

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(*GatewayConfig)
		wantField string
	}{
		{
			name:      "bad port",
			mutate:    func(c *GatewayConfig) { c.Server.Port = 0 },
			wantField: "server.port",
		},
		{
			name: "unknown service",
			mutate: func(c *GatewayConfig) {
				c.Routes = append(c.Routes, RouteConfig{Path: "/x", Service: "ghost", Methods: []string{"GET"}})
			},
			wantField: "routes[15].service",
		},
		{
			name: "invalid method",
			mutate: func(c *GatewayConfig) {
				c.Routes[0].Methods = []string{"FETCH"}
			},
			wantField: "routes[0].methods",
		},
		{
			name: "duplicate route",
			mutate: func(c *GatewayConfig) {
				c.Routes = append(c.Routes, c.Routes[0])
			},
			wantField: "routes[15]",
		},
		{
			name: "wildcard in the middle",
			mutate: func(c *GatewayConfig) {
				c.Routes[0].Path = "/api/*/login"
			},
			wantField: "routes[0].path",
		},
		{
			name: "bad service url",
			mutate: func(c *GatewayConfig) {
				c.Services[0].URL = "not a url"
			},
			wantField: "services[0].url",
		},
		{
			name:      "redis cache without host",
			mutate:    func(c *GatewayConfig) { c.Cache.Type = CacheTypeRedis },
			wantField: "redis.host",
		},
		{
			name:      "zero threshold",
			mutate:    func(c *GatewayConfig) { c.CircuitBreaker.FailureThreshold = 0 },
			wantField: "circuitBreaker.failureThreshold",
		},
		{
			name: "bad route rate limit",
			mutate: func(c *GatewayConfig) {
				c.Routes[0].RateLimit = &RouteRateLimit{WindowMs: 0, MaxRequests: 1}
			},
			wantField: "routes[0].rateLimit",
		},
		{
			name: "bad trusted proxy",
			mutate: func(c *GatewayConfig) {
				c.RateLimit.TrustedProxies = []string{"10.0.0.0/8", "lb.internal"}
			},
			wantField: "rateLimit.trustedProxies[1]",
		},
		{
			name:      "sampling rate out of range",
			mutate:    func(c *GatewayConfig) { c.Observability.Tracing.SamplingRate = 2 },
			wantField: "observability.tracing.samplingRate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, util.ErrConfigInvalid)

			var fields []string
			for _, e := range unwrapAll(err) {
				var ce *util.ConfigError
				if errors.As(e, &ce) {
					fields = append(fields, ce.Field)
				}
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}
}

func TestValidateConfig_Nil(t *testing.T) {
	t.Parallel()

	assert.Error(t, ValidateConfig(nil))
}

func unwrapAll(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
