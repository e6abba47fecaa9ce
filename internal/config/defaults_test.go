package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateConfig(DefaultConfig()))
}

func TestDefaultRoutes(t *testing.T) {
	t.Parallel()

	routes := DefaultRoutes()
	byPath := make(map[string]RouteConfig, len(routes))
	for _, r := range routes {
		byPath[r.Path] = r
	}

	login := byPath["/api/v1/user/login"]
	assert.False(t, login.RequiresAuth)
	assert.Equal(t, "auth", login.Service)

	env := byPath["/api/v1/environment"]
	assert.True(t, env.RequiresAuth)
	require.NotNil(t, env.RateLimit)
	assert.Equal(t, 60000, env.RateLimit.WindowMs)
	assert.Equal(t, 10, env.RateLimit.MaxRequests)

	terminal := byPath["/terminal/*"]
	assert.Equal(t, "terminal-service", terminal.Service)
}

func TestServiceURLEnvVar(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"auth":                "AUTH_SERVICE_URL",
		"environment-service": "ENVIRONMENT_SERVICE_URL",
		"challenge-service":   "CHALLENGE_SERVICE_URL",
		"progress-service":    "PROGRESS_SERVICE_URL",
		"terminal-service":    "TERMINAL_SERVICE_URL",
		"user-profile":        "USER_PROFILE_SERVICE_URL",
	}

	for service, expected := range tests {
		assert.Equal(t, expected, ServiceURLEnvVar(service), service)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"PORT":              "8081",
		"JWT_SECRET":        "s3cret",
		"REDIS_HOST":        "redis",
		"REDIS_PORT":        "6380",
		"LOG_LEVEL":         "debug",
		"AUTH_SERVICE_URL":  "http://localhost:3000",
		"IGNORED_SOMETHING": "x",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	applyEnvOverrides(cfg, lookup)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "redis", cfg.Redis.Host)
	assert.Equal(t, 6380, cfg.Redis.Port)
	assert.Equal(t, CacheTypeRedis, cfg.Cache.Type)
	assert.Equal(t, "debug", cfg.Logging.Level)

	svc, ok := cfg.Service("auth")
	require.True(t, ok)
	assert.Equal(t, "http://localhost:3000", svc.URL)
}

func TestApplyEnvOverrides_IgnoresBadPort(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	applyEnvOverrides(cfg, func(k string) (string, bool) {
		if k == "PORT" {
			return "not-a-port", true
		}
		return "", false
	})
	assert.Equal(t, DefaultPort, cfg.Server.Port)
}
