package router

import (
	"strings"
	"time"
)

// RateLimit is a per-route rate limit hint.
type RateLimit struct {
	Window      time.Duration
	MaxRequests int
}

// RouteDefinition is one entry of the route table.
type RouteDefinition struct {
	ServiceKey   string
	PathPattern  string
	Methods      []string
	RequiresAuth bool
	RateLimit    *RateLimit

	methods map[string]struct{}
	matcher PathMatcher
}

// AllowsMethod reports whether the route accepts the HTTP method.
func (r *RouteDefinition) AllowsMethod(method string) bool {
	_, ok := r.methods[strings.ToUpper(method)]
	return ok
}

// IsDynamic reports whether the pattern has parameter or wildcard segments.
func (r *RouteDefinition) IsDynamic() bool {
	return r.matcher.Type() != "exact"
}

// HasWildcard reports whether the pattern ends in a wildcard.
func (r *RouteDefinition) HasWildcard() bool {
	return r.matcher.Type() == "wildcard"
}

// MatchPath matches path against the route pattern and returns the
// captured parameters.
func (r *RouteDefinition) MatchPath(path string) (bool, map[string]string) {
	return r.matcher.Match(path)
}

// ServiceEndpoint is the address of one upstream service.
type ServiceEndpoint struct {
	ServiceKey string
	BaseURL    string
	HealthPath string
}

// HealthURL returns the URL probed by health checks.
func (e ServiceEndpoint) HealthURL() string {
	return strings.TrimRight(e.BaseURL, "/") + e.HealthPath
}
