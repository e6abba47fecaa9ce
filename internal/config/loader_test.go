package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromReader_KeepsDefaultsForMissingSections(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfigFromReader(strings.NewReader(`
server:
  port: 8088
circuitBreaker:
  failureThreshold: 3
`))
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, 3, cfg.CircuitBreaker.FailureThreshold)
	assert.Equal(t, DefaultResetTimeout, cfg.CircuitBreaker.ResetTimeout.Duration())
	assert.Equal(t, DefaultProxyTimeout, cfg.Proxy.Timeout.Duration())
	assert.Len(t, cfg.Services, len(DefaultServices()))
	assert.Len(t, cfg.Routes, len(DefaultRoutes()))
}

func TestLoadConfigFromReader_ReplacesRouteTable(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfigFromReader(strings.NewReader(`
services:
  - name: orders
    url: http://orders:8080
    healthPath: /healthz
routes:
  - path: /api/v2/orders/:id
    service: orders
    methods: [GET, DELETE]
    requiresAuth: true
    rateLimit:
      windowMs: 1000
      maxRequests: 5
`))
	require.NoError(t, err)

	require.Len(t, cfg.Services, 1)
	require.Len(t, cfg.Routes, 1)
	route := cfg.Routes[0]
	assert.Equal(t, "/api/v2/orders/:id", route.Path)
	assert.Equal(t, []string{"GET", "DELETE"}, route.Methods)
	assert.True(t, route.RequiresAuth)
	require.NotNil(t, route.RateLimit)
	assert.Equal(t, 5, route.RateLimit.MaxRequests)
	assert.NoError(t, ValidateConfig(cfg))
}

func TestLoadConfigFromReader_InvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := LoadConfigFromReader(strings.NewReader("server: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadConfigFromReader_InvalidDuration(t *testing.T) {
	t.Parallel()

	_, err := LoadConfigFromReader(strings.NewReader("proxy:\n  timeout: soon\n"))
	assert.Error(t, err)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("GW_TEST_HOST", "redis.internal")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "set variable", input: "host: ${GW_TEST_HOST}", expected: "host: redis.internal"},
		{name: "default used", input: "host: ${GW_TEST_UNSET:-localhost}", expected: "host: localhost"},
		{name: "set variable ignores default", input: "host: ${GW_TEST_HOST:-localhost}", expected: "host: redis.internal"},
		{name: "unset without default", input: "host: ${GW_TEST_UNSET}", expected: "host: "},
		{name: "escaped dollar", input: "secret: $${NOT_A_VAR}", expected: "secret: ${NOT_A_VAR}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, substituteEnvVars(tt.input))
		})
	}
}

func TestLoadConfig_File(t *testing.T) {
	t.Setenv("GW_TEST_THRESHOLD", "7")
	t.Setenv("CHALLENGE_SERVICE_URL", "http://localhost:4002")

	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
circuitBreaker:
  failureThreshold: ${GW_TEST_THRESHOLD}
  resetTimeout: 30s
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.CircuitBreaker.FailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.CircuitBreaker.ResetTimeout.Duration())
	svc, ok := cfg.Service("challenge-service")
	require.True(t, ok)
	assert.Equal(t, "http://localhost:4002", svc.URL)
}

func TestLoadConfig_EmptyPathUsesDefaults(t *testing.T) {
	t.Setenv("PORT", "9700")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 9700, cfg.Server.Port)
	assert.NoError(t, ValidateConfig(cfg))
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig("/nonexistent/path/gateway.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
