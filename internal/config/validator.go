package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"strings"

	"github.com/vyrodovalexey/apigateway/internal/util"
)

var validMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// ValidateConfig validates a gateway configuration. All problems are
// reported together as a joined error of *util.ConfigError values.
func ValidateConfig(cfg *GatewayConfig) error {
	if cfg == nil {
		return util.NewConfigError("", "configuration is nil")
	}

	var errs []error
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, util.NewConfigError(field, fmt.Sprintf(format, args...)))
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		add("server.port", "port %d out of range", cfg.Server.Port)
	}

	services := make(map[string]bool, len(cfg.Services))
	for i, s := range cfg.Services {
		field := fmt.Sprintf("services[%d]", i)
		if s.Name == "" {
			add(field+".name", "name is required")
			continue
		}
		if services[s.Name] {
			add(field+".name", "duplicate service %q", s.Name)
		}
		services[s.Name] = true

		u, err := url.Parse(s.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			add(field+".url", "invalid url %q", s.URL)
		}
		if s.HealthPath != "" && !strings.HasPrefix(s.HealthPath, "/") {
			add(field+".healthPath", "must start with /")
		}
	}

	seen := make(map[string]bool)
	for i, r := range cfg.Routes {
		field := fmt.Sprintf("routes[%d]", i)
		if !strings.HasPrefix(r.Path, "/") {
			add(field+".path", "path %q must start with /", r.Path)
		}
		if idx := strings.Index(r.Path, "*"); idx >= 0 && idx != len(r.Path)-1 {
			add(field+".path", "wildcard is only allowed at the end of %q", r.Path)
		}
		if !services[r.Service] {
			add(field+".service", "unknown service %q", r.Service)
		}
		if len(r.Methods) == 0 {
			add(field+".methods", "at least one method is required")
		}
		for _, m := range r.Methods {
			method := strings.ToUpper(m)
			if !validMethods[method] {
				add(field+".methods", "invalid method %q", m)
				continue
			}
			key := method + " " + r.Path
			if seen[key] {
				add(field, "duplicate route %s", key)
			}
			seen[key] = true
		}
		if r.RateLimit != nil && (r.RateLimit.WindowMs <= 0 || r.RateLimit.MaxRequests <= 0) {
			add(field+".rateLimit", "windowMs and maxRequests must be positive")
		}
	}

	if cfg.CircuitBreaker.FailureThreshold <= 0 {
		add("circuitBreaker.failureThreshold", "must be positive")
	}
	if cfg.CircuitBreaker.ResetTimeout <= 0 {
		add("circuitBreaker.resetTimeout", "must be positive")
	}
	if cfg.Proxy.Timeout <= 0 {
		add("proxy.timeout", "must be positive")
	}

	if cfg.Cache.Enabled {
		switch cfg.Cache.Type {
		case CacheTypeMemory:
		case CacheTypeRedis:
			if !cfg.Redis.Enabled() {
				add("redis.host", "required when cache.type is redis")
			}
		default:
			add("cache.type", "unknown cache type %q", cfg.Cache.Type)
		}
		if cfg.Cache.TTL <= 0 {
			add("cache.ttl", "must be positive")
		}
	}

	if cfg.RateLimit.Enabled {
		for i, tier := range cfg.RateLimit.Tiers {
			if tier.Limit <= 0 || tier.Window <= 0 {
				add(fmt.Sprintf("rateLimit.tiers[%d]", i), "limit and window must be positive")
			}
		}
	}
	for i, entry := range cfg.RateLimit.TrustedProxies {
		if !validProxyEntry(entry) {
			add(fmt.Sprintf("rateLimit.trustedProxies[%d]", i), "must be a CIDR or an IP address")
		}
	}

	if rate := cfg.Observability.Tracing.SamplingRate; rate < 0 || rate > 1 {
		add("observability.tracing.samplingRate", "must be between 0 and 1")
	}

	return errors.Join(errs...)
}

func validProxyEntry(entry string) bool {
	entry = strings.TrimSpace(entry)
	if strings.Contains(entry, "/") {
		_, err := netip.ParsePrefix(entry)
		return err == nil
	}
	_, err := netip.ParseAddr(entry)
	return err == nil
}
