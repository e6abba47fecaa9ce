package config

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default values.
const (
	DefaultPort             = 9600
	DefaultFailureThreshold = 5
	DefaultResetTimeout     = 60 * time.Second
	DefaultMonitoringPeriod = 300 * time.Second
	DefaultProxyTimeout     = 10 * time.Second
	DefaultCacheTTL         = 5 * time.Minute
	DefaultCacheMaxEntries  = 10000
	DefaultProbeTimeout     = 3 * time.Second
	DefaultHealthPath       = "/api/health"
	DefaultRedisPort        = 6379
	DefaultAdminRole        = "admin"
)

// DefaultServices returns the built-in upstream service table.
func DefaultServices() []ServiceConfig {
	return []ServiceConfig{
		{Name: "auth", URL: "http://auth-service:3000", HealthPath: DefaultHealthPath},
		{Name: "environment-service", URL: "http://environment-service:3001", HealthPath: DefaultHealthPath},
		{Name: "challenge-service", URL: "http://challenge-service:3002", HealthPath: DefaultHealthPath},
		{Name: "progress-service", URL: "http://progress-service:3003", HealthPath: DefaultHealthPath},
		{Name: "terminal-service", URL: "http://terminal-service:3004", HealthPath: DefaultHealthPath},
	}
}

// DefaultRoutes returns the built-in route table.
func DefaultRoutes() []RouteConfig {
	get := []string{http.MethodGet}
	crud := []string{http.MethodPost, http.MethodGet, http.MethodPut, http.MethodDelete}

	return []RouteConfig{
		{Path: "/api/v1/user/login", Service: "auth", Methods: []string{http.MethodPost}},
		{Path: "/api/v1/user/register", Service: "auth", Methods: []string{http.MethodPost}},
		{Path: "/api/v1/auth/status", Service: "auth", Methods: get},
		{Path: "/api/v1/user", Service: "auth", Methods: []string{http.MethodGet, http.MethodPut, http.MethodDelete}, RequiresAuth: true},
		{Path: "/api/v1/user/:id", Service: "auth", Methods: []string{http.MethodGet, http.MethodPut, http.MethodDelete}, RequiresAuth: true},
		{
			Path:         "/api/v1/environment",
			Service:      "environment-service",
			Methods:      crud,
			RequiresAuth: true,
			RateLimit:    &RouteRateLimit{WindowMs: 60000, MaxRequests: 10},
		},
		{Path: "/api/v1/environment/:id", Service: "environment-service", Methods: crud, RequiresAuth: true},
		{Path: "/api/v1/environments", Service: "environment-service", Methods: get, RequiresAuth: true},
		{Path: "/api/v1/challenges", Service: "challenge-service", Methods: []string{http.MethodGet, http.MethodPost}, RequiresAuth: true},
		{Path: "/api/v1/challenge", Service: "challenge-service", Methods: []string{http.MethodGet, http.MethodPut}, RequiresAuth: true},
		{Path: "/api/v1/challenge/:id", Service: "challenge-service", Methods: []string{http.MethodGet, http.MethodPut}, RequiresAuth: true},
		{Path: "/api/v1/progress", Service: "progress-service", Methods: []string{http.MethodGet, http.MethodPost, http.MethodPut}, RequiresAuth: true},
		{Path: "/api/v1/progress/:id", Service: "progress-service", Methods: []string{http.MethodGet, http.MethodPut}, RequiresAuth: true},
		{Path: "/api/v1/analytics", Service: "progress-service", Methods: get, RequiresAuth: true},
		{Path: "/terminal/*", Service: "terminal-service", Methods: crud, RequiresAuth: true},
	}
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *GatewayConfig {
	return &GatewayConfig{
		Server: ServerConfig{
			Port:            DefaultPort,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			IdleTimeout:     Duration(120 * time.Second),
			ShutdownTimeout: Duration(30 * time.Second),
			MaxBodySize:     10 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Services: DefaultServices(),
		Routes:   DefaultRoutes(),
		CircuitBreaker: CircuitBreakerConfig{
			FailureThreshold: DefaultFailureThreshold,
			ResetTimeout:     Duration(DefaultResetTimeout),
			MonitoringPeriod: Duration(DefaultMonitoringPeriod),
		},
		Proxy: ProxyConfig{
			Timeout: Duration(DefaultProxyTimeout),
		},
		Cache: CacheConfig{
			Enabled:    true,
			Type:       CacheTypeMemory,
			TTL:        Duration(DefaultCacheTTL),
			MaxEntries: DefaultCacheMaxEntries,
		},
		Redis: RedisConfig{
			Port:      DefaultRedisPort,
			KeyPrefix: "gateway:",
		},
		Auth: AuthConfig{
			ForwardIdentity: true,
			AdminRole:       DefaultAdminRole,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Tiers: []RateLimitTier{
				{Name: "short", Limit: 3, Window: Duration(time.Second)},
				{Name: "medium", Limit: 20, Window: Duration(10 * time.Second)},
				{Name: "long", Limit: 100, Window: Duration(time.Minute)},
			},
		},
		CORS: CORSConfig{
			Enabled:      true,
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
			ExposeHeaders: []string{
				"X-Request-ID", "X-Gateway-Version", "X-Gateway-Response-Time",
				"X-API-Version", "X-API-Supported-Versions", "X-API-Latest-Version",
			},
			MaxAge: 86400,
		},
		Health: HealthConfig{
			ProbeTimeout: Duration(DefaultProbeTimeout),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
			Tracing: TracingConfig{SamplingRate: 1.0, ServiceName: "api-gateway"},
		},
	}
}

// ServiceURLEnvVar returns the environment variable that overrides the base
// URL of a service: "challenge-service" -> "CHALLENGE_SERVICE_URL",
// "auth" -> "AUTH_SERVICE_URL".
func ServiceURLEnvVar(service string) string {
	name := strings.TrimSuffix(service, "-service")
	name = strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	return name + "_SERVICE_URL"
}

// ApplyEnvOverrides applies the well-known environment variables on top of
// cfg: PORT, JWT_SECRET, REDIS_HOST, REDIS_PORT, REDIS_PASSWORD, LOG_LEVEL
// and one <NAME>_SERVICE_URL per service.
func ApplyEnvOverrides(cfg *GatewayConfig) {
	applyEnvOverrides(cfg, os.LookupEnv)
}

func applyEnvOverrides(cfg *GatewayConfig, lookup func(string) (string, bool)) {
	if v, ok := lookup("PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		cfg.Logging.Level = v
	}
	if v, ok := lookup("JWT_SECRET"); ok {
		cfg.Auth.JWTSecret = v
	}
	if v, ok := lookup("REDIS_HOST"); ok && v != "" {
		cfg.Redis.Host = v
		cfg.Cache.Type = CacheTypeRedis
	}
	if v, ok := lookup("REDIS_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Redis.Port = port
		}
	}
	if v, ok := lookup("REDIS_PASSWORD"); ok {
		cfg.Redis.Password = v
	}

	for i := range cfg.Services {
		if v, ok := lookup(ServiceURLEnvVar(cfg.Services[i].Name)); ok && v != "" {
			cfg.Services[i].URL = v
		}
	}
}
