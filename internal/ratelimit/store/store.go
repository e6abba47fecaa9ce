// Package store provides counter storage for rate limiting.
package store

import (
	"context"
	"errors"
	"time"
)

// Store holds expiring counters.
type Store interface {
	// Get retrieves the counter for key.
	Get(ctx context.Context, key string) (int64, error)

	// IncrementWithExpiry increments the counter by delta and sets the
	// expiration when the key is new. It returns the new value.
	IncrementWithExpiry(ctx context.Context, key string, delta int64, expiration time.Duration) (int64, error)

	// Delete removes the key from the store.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the store.
	Close() error
}

// ErrKeyNotFound is returned when a key is not found in the store.
type ErrKeyNotFound struct {
	Key string
}

func (e *ErrKeyNotFound) Error() string {
	return "key not found: " + e.Key
}

// IsKeyNotFound returns true if the error is a key not found error.
func IsKeyNotFound(err error) bool {
	var notFound *ErrKeyNotFound
	return errors.As(err, &notFound)
}
