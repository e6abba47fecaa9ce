package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vyrodovalexey/apigateway/internal/config"
	"github.com/vyrodovalexey/apigateway/internal/observability"
)

// Common cache errors.
var (
	// ErrCacheMiss indicates that the key was not found in the cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheDisabled indicates that caching is disabled.
	ErrCacheDisabled = errors.New("cache disabled")

	// ErrInvalidConfig indicates that the cache configuration is invalid.
	ErrInvalidConfig = errors.New("invalid cache configuration")

	// ErrBackendUnavailable indicates that the cache backend is failing and
	// calls to it are being skipped.
	ErrBackendUnavailable = errors.New("cache backend unavailable")
)

// Cache is the main interface for caching.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns ErrCacheMiss if the key is not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with the given TTL.
	// A TTL of 0 uses the cache default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// Close releases the cache resources.
	Close() error
}

// Stats contains cache statistics.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int64
}

// HitRate returns the cache hit rate as a percentage.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Option configures cache construction.
type Option func(*options)

type options struct {
	now     func() time.Time
	metrics *Metrics
	client  *redis.Client
}

// WithClock sets the clock of the memory backend.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithRedisClient makes the Redis backend use an existing client. The
// cache does not close a client it did not create.
func WithRedisClient(client *redis.Client) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithMetrics sets the metrics the cache reports to.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// New creates a cache from configuration. Redis is used when the cache type
// is redis; redisCfg then supplies the connection settings.
func New(cfg *config.CacheConfig, redisCfg config.RedisConfig, logger observability.Logger, opts ...Option) (Cache, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}

	if !cfg.Enabled {
		return newDisabledCache(), nil
	}

	if logger == nil {
		logger = observability.NopLogger()
	}

	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	switch cfg.Type {
	case config.CacheTypeMemory, "":
		return newMemoryCache(cfg, logger, o), nil
	case config.CacheTypeRedis:
		client, owned := o.client, false
		if client == nil {
			if !redisCfg.Enabled() {
				return nil, errors.New("redis host is required for redis cache")
			}
			client, owned = NewRedisClient(redisCfg), true
		}
		if err := PingRedis(context.Background(), client); err != nil {
			logger.Warn("redis not reachable at startup, cache calls will be skipped until it recovers",
				observability.String("addr", client.Options().Addr),
				observability.Error(err))
		}
		c := newRedisCache(client, cfg, redisCfg.KeyPrefix, logger, o)
		c.ownsClient = owned
		return c, nil
	default:
		return nil, errors.New("unknown cache type: " + cfg.Type)
	}
}

// disabledCache is a cache that always returns ErrCacheDisabled.
type disabledCache struct{}

func newDisabledCache() Cache {
	return &disabledCache{}
}

func (c *disabledCache) Get(_ context.Context, _ string) ([]byte, error) {
	return nil, ErrCacheDisabled
}

func (c *disabledCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return ErrCacheDisabled
}

func (c *disabledCache) Delete(_ context.Context, _ string) error {
	return ErrCacheDisabled
}

func (c *disabledCache) Close() error {
	return nil
}
