package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vyrodovalexey/apigateway/internal/auth"
	"github.com/vyrodovalexey/apigateway/internal/cache"
	"github.com/vyrodovalexey/apigateway/internal/circuitbreaker"
	"github.com/vyrodovalexey/apigateway/internal/config"
	"github.com/vyrodovalexey/apigateway/internal/gateway"
	"github.com/vyrodovalexey/apigateway/internal/health"
	"github.com/vyrodovalexey/apigateway/internal/middleware"
	"github.com/vyrodovalexey/apigateway/internal/observability"
	"github.com/vyrodovalexey/apigateway/internal/proxy"
	"github.com/vyrodovalexey/apigateway/internal/ratelimit"
	"github.com/vyrodovalexey/apigateway/internal/ratelimit/store"
	"github.com/vyrodovalexey/apigateway/internal/router"
)

const metricsNamespace = "gateway"

// application holds all application components.
type application struct {
	config        *config.GatewayConfig
	gateway       *gateway.Gateway
	metrics       *observability.Metrics
	tracer        *observability.Tracer
	redisClient   *redis.Client
	responseCache cache.Cache
	globalLimiter *ratelimit.TieredLimiter
	routeLimiter  *ratelimit.RouteLimiter
	logger        observability.Logger
}

// newApplication wires every component from cfg.
func newApplication(cfg *config.GatewayConfig, logger observability.Logger) (*application, error) {
	app := &application{
		config:  cfg,
		metrics: observability.NewMetrics(metricsNamespace),
		logger:  logger,
	}
	app.metrics.SetBuildInfo(version, gitCommit, buildTime)
	reg := app.metrics.Registry()
	zapLogger := observability.Zap(logger)

	tracer, err := initTracer(cfg, logger)
	if err != nil {
		return nil, err
	}
	app.tracer = tracer

	if cfg.Redis.Enabled() {
		app.redisClient = cache.NewRedisClient(cfg.Redis)
		if pingErr := cache.PingRedis(context.Background(), app.redisClient); pingErr != nil {
			logger.Warn("redis not reachable at startup",
				observability.String("addr", app.redisClient.Options().Addr),
				observability.Error(pingErr),
			)
		}
	}

	table, err := router.New(cfg.Services, cfg.Routes, router.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to build route table: %w", err)
	}

	breakers := circuitbreaker.NewManager(
		circuitbreaker.ConfigFromGateway(cfg.CircuitBreaker),
		zapLogger,
		circuitbreaker.WithMetrics(circuitbreaker.NewMetrics(metricsNamespace, reg)),
	)

	orch, err := app.newOrchestrator(table, breakers)
	if err != nil {
		return nil, err
	}

	validator, err := auth.NewValidator(cfg.Auth, auth.WithValidatorLogger(logger))
	if err != nil {
		if !errors.Is(err, auth.ErrNoSecret) {
			return nil, fmt.Errorf("failed to create token validator: %w", err)
		}
		logger.Warn("no JWT secret configured, protected routes will reject every request")
		validator = nil
	}

	checker := app.newHealthChecker(table, breakers)

	var routeStore store.Store
	if app.redisClient != nil {
		routeStore, err = store.NewRedisStore(app.redisClient, cfg.Redis.KeyPrefix+store.DefaultRedisPrefix, zapLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limit store: %w", err)
		}
	} else {
		routeStore = store.NewMemoryStore(time.Minute)
	}
	app.routeLimiter = ratelimit.NewRouteLimiter(routeStore, zapLogger)
	app.globalLimiter = ratelimit.NewTieredLimiter(
		ratelimit.TiersFromConfig(cfg.RateLimit.Tiers),
		ratelimit.WithTieredLogger(logger),
	)

	gw, err := gateway.New(cfg, gateway.Components{
		Orchestrator:      orch,
		Validator:         validator,
		Health:            checker,
		GlobalLimiter:     app.globalLimiter,
		RouteLimiter:      app.routeLimiter,
		Metrics:           app.metrics,
		Tracer:            app.tracer,
		AuthMetrics:       auth.NewMetrics(metricsNamespace, reg),
		MiddlewareMetrics: middleware.NewMetrics(metricsNamespace, reg),
	},
		gateway.WithLogger(logger),
		gateway.WithShutdownTimeout(cfg.Server.ShutdownTimeout.Duration()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}
	app.gateway = gw

	return app, nil
}

func (app *application) newOrchestrator(table *router.Table, breakers *circuitbreaker.Manager) (*proxy.Orchestrator, error) {
	cfg := app.config
	reg := app.metrics.Registry()

	opts := []proxy.Option{
		proxy.WithLogger(app.logger),
		proxy.WithMetrics(proxy.NewMetrics(metricsNamespace, reg)),
	}
	if timeout := cfg.Proxy.Timeout.Duration(); timeout > 0 {
		opts = append(opts, proxy.WithTimeout(timeout))
	}

	if cfg.Cache.Enabled {
		cacheOpts := []cache.Option{cache.WithMetrics(cache.NewMetrics(metricsNamespace, reg))}
		if app.redisClient != nil {
			cacheOpts = append(cacheOpts, cache.WithRedisClient(app.redisClient))
		}
		c, err := cache.New(&cfg.Cache, cfg.Redis, app.logger, cacheOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create response cache: %w", err)
		}
		app.responseCache = c
		opts = append(opts, proxy.WithCache(c))
		if ttl := cfg.Cache.TTL.Duration(); ttl > 0 {
			opts = append(opts, proxy.WithCacheTTL(ttl))
		}
	}

	return proxy.NewOrchestrator(table, breakers, opts...), nil
}

func (app *application) newHealthChecker(table *router.Table, breakers *circuitbreaker.Manager) *health.Checker {
	opts := []health.Option{
		health.WithLogger(app.logger),
		health.WithMetrics(health.NewMetrics(metricsNamespace, app.metrics.Registry())),
		health.WithUpstreamReporter(app.metrics),
	}
	if timeout := app.config.Health.ProbeTimeout.Duration(); timeout > 0 {
		opts = append(opts, health.WithProbeTimeout(timeout))
	}
	if app.redisClient != nil {
		opts = append(opts, health.WithDependency(health.RedisCheck("redis", app.redisClient)))
	}
	return health.NewChecker(version, table, breakers, opts...)
}

// initTracer initializes the tracer. A disabled tracer is still returned
// so shutdown stays unconditional.
func initTracer(cfg *config.GatewayConfig, logger observability.Logger) (*observability.Tracer, error) {
	tracing := cfg.Observability.Tracing
	tracerCfg := observability.TracerConfig{
		ServiceName:    tracing.ServiceName,
		ServiceVersion: version,
		OTLPEndpoint:   tracing.OTLPEndpoint,
		SamplingRate:   tracing.SamplingRate,
		Enabled:        tracing.Enabled,
	}
	if tracerCfg.ServiceName == "" {
		tracerCfg.ServiceName = "api-gateway"
	}

	tracer, err := observability.NewTracer(tracerCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	return tracer, nil
}

// close releases resources held outside the gateway itself.
func (app *application) close(ctx context.Context) {
	if app.globalLimiter != nil {
		app.globalLimiter.Stop()
	}
	if app.routeLimiter != nil {
		if err := app.routeLimiter.Close(); err != nil {
			app.logger.Error("failed to close rate limiter", observability.Error(err))
		}
	}
	if app.responseCache != nil {
		if err := app.responseCache.Close(); err != nil {
			app.logger.Error("failed to close response cache", observability.Error(err))
		}
	}
	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("failed to close redis client", observability.Error(err))
		}
	}
	if app.tracer != nil {
		if err := app.tracer.Shutdown(ctx); err != nil {
			app.logger.Error("failed to shutdown tracer", observability.Error(err))
		}
	}
}
