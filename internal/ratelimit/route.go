package ratelimit

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/apigateway/internal/ratelimit/store"
	"github.com/vyrodovalexey/apigateway/internal/router"
)

// RouteLimiter enforces the rate limit attached to a route definition.
// Each route pattern gets its own fixed window limiter over a shared store.
type RouteLimiter struct {
	store    store.Store
	logger   *zap.Logger
	opts     []Option
	limiters sync.Map
}

// NewRouteLimiter creates a route limiter over s.
func NewRouteLimiter(s store.Store, logger *zap.Logger, opts ...Option) *RouteLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RouteLimiter{
		store:  s,
		logger: logger,
		opts:   opts,
	}
}

// Allow counts a request from clientIP against route's limit. Routes
// without a limit always allow.
func (l *RouteLimiter) Allow(ctx context.Context, route *router.RouteDefinition, clientIP string) (*Result, error) {
	if route == nil || route.RateLimit == nil {
		return allowed(), nil
	}

	limiter := l.limiterFor(route)
	result, err := limiter.Allow(ctx, RouteKey(route.PathPattern, clientIP))
	if err != nil {
		return nil, err
	}
	result.Scope = route.PathPattern
	return result, nil
}

// Reset clears a client's counter for route.
func (l *RouteLimiter) Reset(ctx context.Context, route *router.RouteDefinition, clientIP string) error {
	if route == nil || route.RateLimit == nil {
		return nil
	}
	return l.limiterFor(route).Reset(ctx, RouteKey(route.PathPattern, clientIP))
}

func (l *RouteLimiter) limiterFor(route *router.RouteDefinition) *FixedWindowLimiter {
	if v, ok := l.limiters.Load(route.PathPattern); ok {
		return v.(*FixedWindowLimiter)
	}

	limiter := NewFixedWindowLimiter(l.store, route.RateLimit.MaxRequests, route.RateLimit.Window, l.logger, l.opts...)
	actual, _ := l.limiters.LoadOrStore(route.PathPattern, limiter)
	return actual.(*FixedWindowLimiter)
}

// Close closes the underlying store.
func (l *RouteLimiter) Close() error {
	return l.store.Close()
}
