package observability

import "context"

// routeHolder lets inner handlers report the matched route back to the
// outer metrics middleware, since request contexts only flow inward.
type routeHolder struct {
	route string
}

type routeHolderKey struct{}

func withRouteHolder(ctx context.Context, h *routeHolder) context.Context {
	return context.WithValue(ctx, routeHolderKey{}, h)
}

// ReportRoute records the matched route pattern for the current request.
// It is a no-op outside MetricsMiddleware.
func ReportRoute(ctx context.Context, route string) {
	if h, ok := ctx.Value(routeHolderKey{}).(*routeHolder); ok {
		h.route = route
	}
}
