// Package ratelimit provides the gateway's rate limiters: a tiered global
// throttle per client and fixed window limits attached to individual routes.
package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	// Allow checks if a single request is allowed for the given key.
	Allow(ctx context.Context, key string) (*Result, error)

	// Reset clears the state kept for the given key.
	Reset(ctx context.Context, key string) error
}

// Result represents the result of a rate limit check.
type Result struct {
	// Allowed indicates whether the request is allowed.
	Allowed bool

	// Limit is the maximum number of requests allowed in the window.
	Limit int

	// Remaining is the number of requests remaining in the current window.
	Remaining int

	// ResetAfter is the duration until the window resets.
	ResetAfter time.Duration

	// RetryAfter is the duration to wait before retrying when not allowed.
	RetryAfter time.Duration

	// Scope names the limit that produced the result, a tier name or a
	// route pattern.
	Scope string
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, at least one.
func (r *Result) RetryAfterSeconds() int {
	secs := int((r.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// allowed is the result of a request that no limit applies to.
func allowed() *Result {
	return &Result{Allowed: true}
}
