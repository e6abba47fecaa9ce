package middleware

import (
	"net/http"
	"strconv"

	"github.com/vyrodovalexey/apigateway/internal/observability"
	"github.com/vyrodovalexey/apigateway/internal/ratelimit"
	"github.com/vyrodovalexey/apigateway/internal/router"
	"github.com/vyrodovalexey/apigateway/internal/util"
)

// RouteResolver finds the route serving a request.
type RouteResolver interface {
	FindRoute(path, method string) (*router.RouteDefinition, bool)
}

// RateLimitConfig wires the limiters used by RateLimit. Either limiter may
// be nil.
type RateLimitConfig struct {
	Global   *ratelimit.TieredLimiter
	Routes   *ratelimit.RouteLimiter
	Resolver RouteResolver
	// ClientIP resolves the client address; nil uses the peer address.
	ClientIP *ratelimit.ClientIPResolver
	Logger   observability.Logger
	Metrics  *Metrics
	// Recorder receives one hit per rejected request, labelled with the
	// route pattern or "global".
	Recorder interface{ RecordRateLimitHit(route string) }
}

// RateLimit returns a middleware that applies the global tiers per client
// IP, then the matched route's own limit. Rejected requests get 429
// TOO_MANY_REQUESTS with Retry-After.
func RateLimit(cfg RateLimitConfig) Middleware {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := cfg.ClientIP.ClientIP(r)

			if cfg.Global != nil {
				result := cfg.Global.Allow(clientIP)
				setRateLimitHeaders(w, result)
				if !result.Allowed {
					reject(w, r, result, "global", cfg, logger, clientIP)
					return
				}
			}

			if cfg.Routes != nil && cfg.Resolver != nil {
				route, ok := cfg.Resolver.FindRoute(r.URL.Path, r.Method)
				if ok && route.RateLimit != nil {
					result, err := cfg.Routes.Allow(r.Context(), route, clientIP)
					if err != nil {
						logger.WithContext(r.Context()).Warn("route rate limit check failed",
							observability.String("route", route.PathPattern),
							observability.Error(err),
						)
					} else {
						setRateLimitHeaders(w, result)
						if !result.Allowed {
							reject(w, r, result, route.PathPattern, cfg, logger, clientIP)
							return
						}
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, result *ratelimit.Result) {
	if result.Limit <= 0 {
		return
	}
	h := w.Header()
	h.Set(HeaderRateLimitLimit, strconv.Itoa(result.Limit))
	h.Set(HeaderRateLimitRemaining, strconv.Itoa(max(result.Remaining, 0)))
	if result.ResetAfter > 0 {
		h.Set(HeaderRateLimitReset, strconv.Itoa(int(result.ResetAfter.Seconds()+0.999)))
	}
}

func reject(
	w http.ResponseWriter,
	r *http.Request,
	result *ratelimit.Result,
	label string,
	cfg RateLimitConfig,
	logger observability.Logger,
	clientIP string,
) {
	logger.WithContext(r.Context()).Warn("rate limit exceeded",
		observability.String("client_ip", clientIP),
		observability.String("path", r.URL.Path),
		observability.String("scope", result.Scope),
	)
	cfg.Metrics.recordRateLimited(label)
	if cfg.Recorder != nil {
		cfg.Recorder.RecordRateLimitHit(label)
	}

	w.Header().Set(HeaderRetryAfter, strconv.Itoa(result.RetryAfterSeconds()))
	util.WriteError(w, r.URL.Path, util.NewTooManyRequestsError())
}
