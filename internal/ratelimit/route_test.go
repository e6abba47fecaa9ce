package ratelimit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/apigateway/internal/config"
	"github.com/vyrodovalexey/apigateway/internal/ratelimit/store"
	"github.com/vyrodovalexey/apigateway/internal/router"
)

func findRoute(t *testing.T, path, method string) *router.RouteDefinition {
	t.Helper()
	table, err := router.New(config.DefaultServices(), config.DefaultRoutes())
	require.NoError(t, err)
	route, ok := table.FindRoute(path, method)
	require.True(t, ok)
	return route
}

func TestRouteLimiter(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	redisStore, err := store.NewRedisStore(client, "", nil)
	require.NoError(t, err)

	stores := map[string]store.Store{
		"memory": store.NewMemoryStore(time.Hour),
		"redis":  redisStore,
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			clock := newTestClock()
			l := NewRouteLimiter(s, nil, WithClock(clock.Now))
			t.Cleanup(func() { _ = l.Close() })

			ctx := context.Background()
			limited := findRoute(t, "/api/v1/environment", http.MethodPost)
			require.NotNil(t, limited.RateLimit)
			ip := "10.0.0." + name

			for i := 0; i < limited.RateLimit.MaxRequests; i++ {
				res, err := l.Allow(ctx, limited, ip)
				require.NoError(t, err)
				require.True(t, res.Allowed, "request %d", i)
			}

			res, err := l.Allow(ctx, limited, ip)
			require.NoError(t, err)
			assert.False(t, res.Allowed)
			assert.Equal(t, "/api/v1/environment", res.Scope)
			assert.Equal(t, time.Minute, res.RetryAfter)

			res, err = l.Allow(ctx, limited, "192.168.1."+name)
			require.NoError(t, err)
			assert.True(t, res.Allowed)

			require.NoError(t, l.Reset(ctx, limited, ip))
			res, err = l.Allow(ctx, limited, ip)
			require.NoError(t, err)
			assert.True(t, res.Allowed)
		})
	}
}

func TestRouteLimiter_Unlimited(t *testing.T) {
	t.Parallel()

	s := store.NewMemoryStore(time.Hour)
	l := NewRouteLimiter(s, nil)
	defer l.Close()

	route := findRoute(t, "/api/v1/progress", http.MethodGet)
	for i := 0; i < 50; i++ {
		res, err := l.Allow(context.Background(), route, "c")
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}

	res, err := l.Allow(context.Background(), nil, "c")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, s.Size())
}
