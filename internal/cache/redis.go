package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/apigateway/internal/config"
	"github.com/vyrodovalexey/apigateway/internal/observability"
)

const (
	defaultKeyPrefix = "gateway:"

	// guardFailures is the number of consecutive Redis errors that stop
	// cache calls for guardCooldown.
	guardFailures = 3
	guardCooldown = 30 * time.Second
)

// NewRedisClient creates a Redis client from configuration. The client is
// shared by the cache and the distributed rate limiter.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	port := cfg.Port
	if port == 0 {
		port = config.DefaultRedisPort
	}

	return redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		MaxRetries:   1,
	})
}

// PingRedis tests the Redis connection with a timeout.
func PingRedis(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}

// redisCache implements a Redis-based cache.
type redisCache struct {
	logger     observability.Logger
	metrics    *Metrics
	client     *redis.Client
	guard      *gobreaker.CircuitBreaker
	keyPrefix  string
	defaultTTL time.Duration
	ownsClient bool

	hits   int64
	misses int64
}

func newRedisCache(
	client *redis.Client,
	cfg *config.CacheConfig,
	keyPrefix string,
	logger observability.Logger,
	o *options,
) *redisCache {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}

	c := &redisCache{
		logger:     logger,
		metrics:    o.metrics,
		client:     client,
		keyPrefix:  keyPrefix,
		defaultTTL: cfg.TTL.Duration(),
	}

	c.guard = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-cache",
		MaxRequests: 1,
		Timeout:     guardCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= guardFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("cache backend guard state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
		},
	})

	logger.Info("redis cache initialized",
		observability.String("addr", client.Options().Addr),
		observability.String("keyPrefix", keyPrefix),
		observability.Duration("defaultTTL", c.defaultTTL))

	return c
}

func (c *redisCache) resolveKey(key string) string {
	return c.keyPrefix + key
}

// call runs fn through the guard. Guard rejections become ErrBackendUnavailable.
func (c *redisCache) call(fn func() (interface{}, error)) (interface{}, error) {
	result, err := c.guard.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	return result, err
}

// Get retrieves a value from the cache.
func (c *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := otel.Tracer(cacheTracerName).Start(ctx, "cache.Get",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cache.backend", backendRedis),
			attribute.String("cache.key", key),
		),
	)
	defer span.End()
	defer c.metrics.observe(backendRedis, "get", time.Now())

	result, err := c.call(func() (interface{}, error) {
		return c.client.Get(ctx, c.resolveKey(key)).Bytes()
	})

	if err == nil {
		value := result.([]byte)
		atomic.AddInt64(&c.hits, 1)
		c.metrics.hit(backendRedis)
		span.SetAttributes(
			attribute.Bool("cache.hit", true),
			attribute.Int("cache.value_size", len(value)),
		)
		return value, nil
	}

	if errors.Is(err, redis.Nil) {
		atomic.AddInt64(&c.misses, 1)
		c.metrics.miss(backendRedis)
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, ErrCacheMiss
	}

	c.metrics.failure(backendRedis, "get")
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
	return nil, err
}

// Set stores a value in the cache.
func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, span := otel.Tracer(cacheTracerName).Start(ctx, "cache.Set",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cache.backend", backendRedis),
			attribute.String("cache.key", key),
			attribute.Int("cache.value_size", len(value)),
		),
	)
	defer span.End()
	defer c.metrics.observe(backendRedis, "set", time.Now())

	if ttl == 0 {
		ttl = c.defaultTTL
	}

	_, err := c.call(func() (interface{}, error) {
		return nil, c.client.Set(ctx, c.resolveKey(key), value, ttl).Err()
	})
	if err != nil {
		c.metrics.failure(backendRedis, "set")
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return err
	}

	c.logger.Debug("cache set",
		observability.String("key", key),
		observability.Duration("ttl", ttl),
		observability.Int("size", len(value)))
	return nil
}

// Delete removes a value from the cache.
func (c *redisCache) Delete(ctx context.Context, key string) error {
	_, err := c.call(func() (interface{}, error) {
		return nil, c.client.Del(ctx, c.resolveKey(key)).Err()
	})
	if err != nil {
		c.metrics.failure(backendRedis, "delete")
	}
	return err
}

// Close closes the Redis connection if the cache created it.
func (c *redisCache) Close() error {
	if !c.ownsClient {
		return nil
	}
	c.logger.Info("redis cache closing")
	return c.client.Close()
}

// Stats returns cache statistics.
func (c *redisCache) Stats() Stats {
	return Stats{
		Hits:   atomic.LoadInt64(&c.hits),
		Misses: atomic.LoadInt64(&c.misses),
	}
}
