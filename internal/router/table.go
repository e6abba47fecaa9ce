package router

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vyrodovalexey/apigateway/internal/config"
	"github.com/vyrodovalexey/apigateway/internal/observability"
)

var versionSegment = regexp.MustCompile(`^v(\d+)$`)

// Table is the immutable route and service table.
type Table struct {
	routes   []*RouteDefinition
	exact    map[string][]*RouteDefinition
	services map[string]ServiceEndpoint
	order    []string
	versions []string
	logger   observability.Logger
}

// MatchResult contains a resolved route and the parameters captured from
// the request path.
type MatchResult struct {
	Route      *RouteDefinition
	PathParams map[string]string
}

// Option is a functional option for the table.
type Option func(*Table)

// WithLogger sets the logger for the table.
func WithLogger(logger observability.Logger) Option {
	return func(t *Table) {
		t.logger = logger
	}
}

// New builds a table from the service and route configuration. Routes keep
// the order in which they are configured.
func New(services []config.ServiceConfig, routes []config.RouteConfig, opts ...Option) (*Table, error) {
	t := &Table{
		routes:   make([]*RouteDefinition, 0, len(routes)),
		exact:    make(map[string][]*RouteDefinition),
		services: make(map[string]ServiceEndpoint, len(services)),
		order:    make([]string, 0, len(services)),
		logger:   observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(t)
	}

	for _, s := range services {
		if _, exists := t.services[s.Name]; exists {
			return nil, fmt.Errorf("duplicate service: %s", s.Name)
		}
		t.services[s.Name] = ServiceEndpoint{
			ServiceKey: s.Name,
			BaseURL:    strings.TrimRight(s.URL, "/"),
			HealthPath: s.HealthPath,
		}
		t.order = append(t.order, s.Name)
	}

	for _, rc := range routes {
		route, err := compileRoute(rc)
		if err != nil {
			return nil, fmt.Errorf("failed to compile route %s: %w", rc.Path, err)
		}
		t.routes = append(t.routes, route)
		if !route.IsDynamic() {
			t.exact[route.PathPattern] = append(t.exact[route.PathPattern], route)
		}

		t.logger.Debug("route registered",
			observability.String("path", route.PathPattern),
			observability.String("service", route.ServiceKey),
			observability.Strings("methods", route.Methods),
			observability.Bool("requires_auth", route.RequiresAuth),
		)
	}

	t.versions = collectVersions(t.routes)

	return t, nil
}

func compileRoute(rc config.RouteConfig) (*RouteDefinition, error) {
	matcher, err := NewPathMatcher(rc.Path)
	if err != nil {
		return nil, err
	}

	route := &RouteDefinition{
		ServiceKey:   rc.Service,
		PathPattern:  rc.Path,
		Methods:      make([]string, 0, len(rc.Methods)),
		RequiresAuth: rc.RequiresAuth,
		methods:      make(map[string]struct{}, len(rc.Methods)),
		matcher:      matcher,
	}
	for _, m := range rc.Methods {
		method := strings.ToUpper(m)
		if _, dup := route.methods[method]; dup {
			continue
		}
		route.methods[method] = struct{}{}
		route.Methods = append(route.Methods, method)
	}
	if rc.RateLimit != nil {
		route.RateLimit = &RateLimit{
			Window:      time.Duration(rc.RateLimit.WindowMs) * time.Millisecond,
			MaxRequests: rc.RateLimit.MaxRequests,
		}
	}

	return route, nil
}

// FindRoute returns the route serving method on path.
func (t *Table) FindRoute(path, method string) (*RouteDefinition, bool) {
	result, ok := t.Match(path, method)
	if !ok {
		return nil, false
	}
	return result.Route, true
}

// Match resolves path and method to a route and its path parameters.
// Literal patterns are tried first, then every pattern in registration
// order.
func (t *Table) Match(path, method string) (*MatchResult, bool) {
	for _, route := range t.exact[path] {
		if route.AllowsMethod(method) {
			return &MatchResult{Route: route}, true
		}
	}

	for _, route := range t.routes {
		if !route.AllowsMethod(method) {
			continue
		}
		if matched, params := route.MatchPath(path); matched {
			return &MatchResult{Route: route, PathParams: params}, true
		}
	}

	return nil, false
}

// ServiceEndpoint returns the endpoint of a service.
func (t *Table) ServiceEndpoint(serviceKey string) (ServiceEndpoint, bool) {
	endpoint, ok := t.services[serviceKey]
	return endpoint, ok
}

// Services returns all endpoints in configuration order.
func (t *Table) Services() []ServiceEndpoint {
	endpoints := make([]ServiceEndpoint, 0, len(t.order))
	for _, name := range t.order {
		endpoints = append(endpoints, t.services[name])
	}
	return endpoints
}

// Routes returns all routes in registration order.
func (t *Table) Routes() []*RouteDefinition {
	routes := make([]*RouteDefinition, len(t.routes))
	copy(routes, t.routes)
	return routes
}

// SupportedVersions returns the API version tokens ("v1", "v2", ...) found
// in registered patterns, sorted by version number.
func (t *Table) SupportedVersions() []string {
	versions := make([]string, len(t.versions))
	copy(versions, t.versions)
	return versions
}

// LatestVersion returns the highest supported version, or "" when no
// pattern is versioned.
func (t *Table) LatestVersion() string {
	if len(t.versions) == 0 {
		return ""
	}
	return t.versions[len(t.versions)-1]
}

func collectVersions(routes []*RouteDefinition) []string {
	seen := make(map[int]struct{})
	for _, route := range routes {
		for _, segment := range strings.Split(route.PathPattern, "/") {
			if m := versionSegment.FindStringSubmatch(segment); m != nil {
				n, err := strconv.Atoi(m[1])
				if err == nil {
					seen[n] = struct{}{}
				}
			}
		}
	}

	numbers := make([]int, 0, len(seen))
	for n := range seen {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	versions := make([]string, 0, len(numbers))
	for _, n := range numbers {
		versions = append(versions, "v"+strconv.Itoa(n))
	}
	return versions
}

// VersionFromPath returns the version segment of path, or "" if the path
// carries none.
func VersionFromPath(path string) string {
	for _, segment := range strings.Split(path, "/") {
		if versionSegment.MatchString(segment) {
			return segment
		}
	}
	return ""
}
