package auth

import (
	"github.com/vyrodovalexey/apigateway/internal/router"
)

// RouteResolver finds the route definition for a request.
type RouteResolver interface {
	FindRoute(path, method string) (*router.RouteDefinition, bool)
}

// RequiresAuth reports whether a request resolved to route must carry a
// validated identity. Requests without a route are protected.
func RequiresAuth(route *router.RouteDefinition) bool {
	if route == nil {
		return true
	}
	return route.RequiresAuth
}
