package config

// GatewayConfig is the root configuration of the gateway.
type GatewayConfig struct {
	Server         ServerConfig         `yaml:"server" json:"server"`
	Logging        LoggingConfig        `yaml:"logging" json:"logging"`
	Services       []ServiceConfig      `yaml:"services" json:"services"`
	Routes         []RouteConfig        `yaml:"routes" json:"routes"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker" json:"circuitBreaker"`
	Proxy          ProxyConfig          `yaml:"proxy" json:"proxy"`
	Cache          CacheConfig          `yaml:"cache" json:"cache"`
	Redis          RedisConfig          `yaml:"redis" json:"redis"`
	Auth           AuthConfig           `yaml:"auth" json:"auth"`
	RateLimit      RateLimitConfig      `yaml:"rateLimit" json:"rateLimit"`
	CORS           CORSConfig           `yaml:"cors" json:"cors"`
	Health         HealthConfig         `yaml:"health" json:"health"`
	Observability  ObservabilityConfig  `yaml:"observability" json:"observability"`
}

// ServerConfig configures the inbound HTTP listener.
type ServerConfig struct {
	Address         string   `yaml:"address" json:"address"`
	Port            int      `yaml:"port" json:"port"`
	ReadTimeout     Duration `yaml:"readTimeout" json:"readTimeout"`
	WriteTimeout    Duration `yaml:"writeTimeout" json:"writeTimeout"`
	IdleTimeout     Duration `yaml:"idleTimeout" json:"idleTimeout"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout" json:"shutdownTimeout"`
	MaxBodySize     int64    `yaml:"maxBodySize" json:"maxBodySize"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// ServiceConfig describes one upstream service.
type ServiceConfig struct {
	Name       string `yaml:"name" json:"name"`
	URL        string `yaml:"url" json:"url"`
	HealthPath string `yaml:"healthPath" json:"healthPath"`
}

// RouteConfig describes one entry of the route table.
type RouteConfig struct {
	Path         string          `yaml:"path" json:"path"`
	Service      string          `yaml:"service" json:"service"`
	Methods      []string        `yaml:"methods" json:"methods"`
	RequiresAuth bool            `yaml:"requiresAuth" json:"requiresAuth"`
	RateLimit    *RouteRateLimit `yaml:"rateLimit,omitempty" json:"rateLimit,omitempty"`
}

// RouteRateLimit is a per-route rate limit hint.
type RouteRateLimit struct {
	WindowMs    int `yaml:"windowMs" json:"windowMs"`
	MaxRequests int `yaml:"maxRequests" json:"maxRequests"`
}

// CircuitBreakerConfig configures the per-service circuit breakers.
type CircuitBreakerConfig struct {
	FailureThreshold int      `yaml:"failureThreshold" json:"failureThreshold"`
	ResetTimeout     Duration `yaml:"resetTimeout" json:"resetTimeout"`
	MonitoringPeriod Duration `yaml:"monitoringPeriod" json:"monitoringPeriod"`
}

// ProxyConfig configures upstream calls.
type ProxyConfig struct {
	Timeout Duration `yaml:"timeout" json:"timeout"`
}

// Cache types.
const (
	CacheTypeMemory = "memory"
	CacheTypeRedis  = "redis"
)

// CacheConfig configures the response cache.
type CacheConfig struct {
	Enabled    bool     `yaml:"enabled" json:"enabled"`
	Type       string   `yaml:"type" json:"type"`
	TTL        Duration `yaml:"ttl" json:"ttl"`
	MaxEntries int      `yaml:"maxEntries" json:"maxEntries"`
}

// RedisConfig configures the Redis connection shared by the cache and the
// distributed rate limiter.
type RedisConfig struct {
	Host      string `yaml:"host" json:"host"`
	Port      int    `yaml:"port" json:"port"`
	Password  string `yaml:"password" json:"-"`
	DB        int    `yaml:"db" json:"db"`
	KeyPrefix string `yaml:"keyPrefix" json:"keyPrefix"`
}

// Enabled reports whether a Redis host is configured.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

// AuthConfig configures bearer token validation.
type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret" json:"-"`
	Issuer    string `yaml:"issuer" json:"issuer"`
	// ForwardIdentity adds X-User-* headers with the validated claims to
	// upstream requests.
	ForwardIdentity bool   `yaml:"forwardIdentity" json:"forwardIdentity"`
	AdminRole       string `yaml:"adminRole" json:"adminRole"`
}

// RateLimitConfig configures global rate limiting.
type RateLimitConfig struct {
	Enabled bool            `yaml:"enabled" json:"enabled"`
	Tiers   []RateLimitTier `yaml:"tiers" json:"tiers"`
	// TrustedProxies lists the CIDRs or addresses whose X-Forwarded-For and
	// X-Real-IP headers are believed. Empty means the peer address is
	// always the client.
	TrustedProxies []string `yaml:"trustedProxies" json:"trustedProxies"`
}

// RateLimitTier allows Limit requests per Window for each client.
type RateLimitTier struct {
	Name   string   `yaml:"name" json:"name"`
	Limit  int      `yaml:"limit" json:"limit"`
	Window Duration `yaml:"window" json:"window"`
}

// CORSConfig configures CORS handling.
type CORSConfig struct {
	Enabled          bool     `yaml:"enabled" json:"enabled"`
	AllowOrigins     []string `yaml:"allowOrigins" json:"allowOrigins"`
	AllowMethods     []string `yaml:"allowMethods" json:"allowMethods"`
	AllowHeaders     []string `yaml:"allowHeaders" json:"allowHeaders"`
	ExposeHeaders    []string `yaml:"exposeHeaders" json:"exposeHeaders"`
	AllowCredentials bool     `yaml:"allowCredentials" json:"allowCredentials"`
	MaxAge           int      `yaml:"maxAge" json:"maxAge"`
}

// HealthConfig configures the health endpoint.
type HealthConfig struct {
	ProbeTimeout Duration `yaml:"probeTimeout" json:"probeTimeout"`
}

// ObservabilityConfig configures metrics and tracing.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	OTLPEndpoint string  `yaml:"otlpEndpoint" json:"otlpEndpoint"`
	SamplingRate float64 `yaml:"samplingRate" json:"samplingRate"`
	ServiceName  string  `yaml:"serviceName" json:"serviceName"`
}

// Service returns the service with the given name.
func (c *GatewayConfig) Service(name string) (ServiceConfig, bool) {
	for _, s := range c.Services {
		if s.Name == name {
			return s, true
		}
	}
	return ServiceConfig{}, false
}
