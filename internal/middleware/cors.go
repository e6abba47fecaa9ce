package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/apigateway/internal/config"
)

// corsHeaders holds pre-computed CORS header values.
type corsHeaders struct {
	allowOrigins     map[string]bool
	wildcardPatterns []string
	allowAllOrigins  bool
	allowMethods     string
	allowHeaders     string
	exposeHeaders    string
	maxAge           string
	allowCredentials bool
}

func newCORSHeaders(cfg config.CORSConfig) *corsHeaders {
	h := &corsHeaders{
		allowOrigins:     make(map[string]bool),
		allowMethods:     strings.Join(cfg.AllowMethods, ", "),
		allowHeaders:     strings.Join(cfg.AllowHeaders, ", "),
		exposeHeaders:    strings.Join(cfg.ExposeHeaders, ", "),
		allowCredentials: cfg.AllowCredentials,
	}
	if cfg.MaxAge > 0 {
		h.maxAge = strconv.Itoa(cfg.MaxAge)
	}

	for _, origin := range cfg.AllowOrigins {
		switch {
		case origin == "*":
			h.allowAllOrigins = true
		case strings.HasPrefix(origin, "*."):
			h.wildcardPatterns = append(h.wildcardPatterns, origin)
		default:
			h.allowOrigins[origin] = true
		}
	}

	return h
}

func (h *corsHeaders) isOriginAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	if h.allowAllOrigins || h.allowOrigins[origin] {
		return true
	}
	for _, pattern := range h.wildcardPatterns {
		if matchWildcardOrigin(origin, pattern) {
			return true
		}
	}
	return false
}

// matchWildcardOrigin matches "*.example.com" against the host of origin.
// The bare domain does not match.
func matchWildcardOrigin(origin, pattern string) bool {
	suffix := pattern[1:]

	host := origin
	if idx := strings.Index(host, "://"); idx != -1 {
		host = host[idx+3:]
	}
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}

	return len(host) > len(suffix) && strings.HasSuffix(host, suffix)
}

func (h *corsHeaders) apply(w http.ResponseWriter, origin string, preflight bool) {
	header := w.Header()
	header.Add("Vary", HeaderOrigin)
	if !h.isOriginAllowed(origin) {
		return
	}

	header.Set("Access-Control-Allow-Origin", origin)
	if h.allowCredentials {
		header.Set("Access-Control-Allow-Credentials", "true")
	}
	if h.exposeHeaders != "" {
		header.Set("Access-Control-Expose-Headers", h.exposeHeaders)
	}

	if !preflight {
		return
	}
	if h.allowMethods != "" {
		header.Set("Access-Control-Allow-Methods", h.allowMethods)
	}
	if h.allowHeaders != "" {
		header.Set("Access-Control-Allow-Headers", h.allowHeaders)
	}
	if h.maxAge != "" {
		header.Set("Access-Control-Max-Age", h.maxAge)
	}
}

// CORS returns a middleware that applies cfg. Preflight requests are
// answered with 204 without reaching the next handler. A disabled config
// yields a pass-through middleware.
func CORS(cfg config.CORSConfig, metrics *Metrics) Middleware {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	headers := newCORSHeaders(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
			headers.apply(w, r.Header.Get(HeaderOrigin), preflight)

			if preflight {
				metrics.recordPreflight()
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
