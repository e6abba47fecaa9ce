package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/apigateway/internal/ratelimit/store"
)

// FixedWindowLimiter counts requests in fixed windows aligned to the epoch.
// Counters live in a store.Store, so the limit is shared by every gateway
// instance when the store is Redis.
type FixedWindowLimiter struct {
	store  store.Store
	limit  int
	window time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// Option is a functional option for limiters.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock sets the clock used to compute windows.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewFixedWindowLimiter creates a fixed window limiter allowing limit
// requests per window.
func NewFixedWindowLimiter(
	s store.Store,
	limit int,
	window time.Duration,
	logger *zap.Logger,
	opts ...Option,
) *FixedWindowLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := buildOptions(opts)

	return &FixedWindowLimiter{
		store:  s,
		limit:  limit,
		window: window,
		logger: logger,
		now:    o.now,
	}
}

// getWindowStart returns the start time of the window containing t.
func (l *FixedWindowLimiter) getWindowStart(t time.Time) time.Time {
	windowNanos := l.window.Nanoseconds()
	return time.Unix(0, (t.UnixNano()/windowNanos)*windowNanos)
}

func (l *FixedWindowLimiter) windowKey(key string, windowStart time.Time) string {
	return fmt.Sprintf("%s:fw:%d", key, windowStart.UnixMilli())
}

// Allow implements Limiter. A store failure lets the request through.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	now := l.now()
	windowStart := l.getWindowStart(now)

	resetAfter := windowStart.Add(l.window).Sub(now)
	if resetAfter < 0 {
		resetAfter = 0
	}

	// One second past the window absorbs clock skew between instances.
	count, err := l.store.IncrementWithExpiry(ctx, l.windowKey(key, windowStart), 1, resetAfter+time.Second)
	if err != nil {
		l.logger.Warn("rate limit counter unavailable, allowing request",
			zap.String("key", key),
			zap.Error(err),
		)
		return &Result{Allowed: true, Limit: l.limit, Remaining: l.limit, ResetAfter: resetAfter}, nil
	}

	result := &Result{
		Allowed:    int(count) <= l.limit,
		Limit:      l.limit,
		Remaining:  max(l.limit-int(count), 0),
		ResetAfter: resetAfter,
	}
	if !result.Allowed {
		result.RetryAfter = resetAfter
	}

	return result, nil
}

// Reset implements Limiter.
func (l *FixedWindowLimiter) Reset(ctx context.Context, key string) error {
	windowStart := l.getWindowStart(l.now())
	if err := l.store.Delete(ctx, l.windowKey(key, windowStart)); err != nil {
		return fmt.Errorf("failed to delete window counter: %w", err)
	}
	return nil
}

// Limit returns the configured requests per window.
func (l *FixedWindowLimiter) Limit() (int, time.Duration) {
	return l.limit, l.window
}
