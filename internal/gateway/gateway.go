package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/apigateway/internal/auth"
	"github.com/vyrodovalexey/apigateway/internal/config"
	"github.com/vyrodovalexey/apigateway/internal/health"
	"github.com/vyrodovalexey/apigateway/internal/middleware"
	"github.com/vyrodovalexey/apigateway/internal/observability"
	"github.com/vyrodovalexey/apigateway/internal/proxy"
	"github.com/vyrodovalexey/apigateway/internal/ratelimit"
)

// State represents the gateway state.
type State int32

const (
	// StateStopped indicates the gateway is stopped.
	StateStopped State = iota
	// StateStarting indicates the gateway is starting.
	StateStarting
	// StateRunning indicates the gateway is running.
	StateRunning
	// StateStopping indicates the gateway is stopping.
	StateStopping
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Components are the collaborators the gateway routes traffic through.
// Orchestrator is required; every other component is optional.
type Components struct {
	Orchestrator *proxy.Orchestrator
	// Validator verifies bearer tokens. Without one, protected routes
	// and the admin endpoints answer 401.
	Validator     auth.Validator
	Health        *health.Checker
	GlobalLimiter *ratelimit.TieredLimiter
	RouteLimiter  *ratelimit.RouteLimiter
	Metrics       *observability.Metrics
	Tracer        *observability.Tracer

	AuthMetrics       *auth.Metrics
	MiddlewareMetrics *middleware.Metrics
}

// Gateway is the API gateway HTTP server.
type Gateway struct {
	config     *config.GatewayConfig
	components Components
	logger     observability.Logger
	engine     *gin.Engine
	handler    http.Handler
	listener   *Listener
	clientIP   *ratelimit.ClientIPResolver
	state      atomic.Int32
	startTime  time.Time

	shutdownTimeout time.Duration
}

// Option is a functional option for configuring the gateway.
type Option func(*Gateway)

// WithLogger sets the logger for the gateway.
func WithLogger(logger observability.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithShutdownTimeout sets the shutdown timeout.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		g.shutdownTimeout = timeout
	}
}

// New builds the gateway and its handler. Nothing listens until Start.
func New(cfg *config.GatewayConfig, components Components, opts ...Option) (*Gateway, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if components.Orchestrator == nil {
		return nil, fmt.Errorf("%w: orchestrator", ErrMissingComponent)
	}

	g := &Gateway{
		config:          cfg,
		components:      components,
		logger:          observability.NopLogger(),
		shutdownTimeout: cfg.Server.ShutdownTimeout.Duration(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.shutdownTimeout <= 0 {
		g.shutdownTimeout = 30 * time.Second
	}

	resolver, err := ratelimit.NewClientIPResolver(cfg.RateLimit.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	g.clientIP = resolver

	g.engine = g.newEngine()
	g.handler = g.wrap(g.engine)
	g.state.Store(int32(StateStopped))

	return g, nil
}

// Handler returns the complete HTTP handler of the gateway.
func (g *Gateway) Handler() http.Handler {
	return g.handler
}

// Engine returns the gin engine behind Handler.
func (g *Gateway) Engine() *gin.Engine {
	return g.engine
}

// Start starts serving on the configured address.
func (g *Gateway) Start(ctx context.Context) error {
	if !g.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return ErrGatewayNotStopped
	}

	g.listener = NewListener(g.config.Server, g.handler, g.logger)
	if err := g.listener.Start(ctx); err != nil {
		g.state.Store(int32(StateStopped))
		return fmt.Errorf("failed to start listener: %w", err)
	}

	g.startTime = time.Now()
	g.state.Store(int32(StateRunning))

	table := g.components.Orchestrator.Table()
	g.logger.Info("gateway started",
		observability.String("address", g.listener.BoundAddress()),
		observability.Int("services", len(table.Services())),
		observability.Int("routes", len(table.Routes())),
	)

	return nil
}

// Stop drains in-flight requests and stops the listener. Without a
// deadline on ctx the shutdown timeout applies.
func (g *Gateway) Stop(ctx context.Context) error {
	if !g.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return ErrGatewayNotRunning
	}

	g.logger.Info("stopping gateway")

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.shutdownTimeout)
		defer cancel()
	}

	err := g.listener.Stop(ctx)
	g.state.Store(int32(StateStopped))

	if err != nil {
		return err
	}
	g.logger.Info("gateway stopped")
	return nil
}

// State returns the current gateway state.
func (g *Gateway) State() State {
	return State(g.state.Load())
}

// IsRunning returns true if the gateway is running.
func (g *Gateway) IsRunning() bool {
	return g.State() == StateRunning
}

// Uptime returns the gateway uptime.
func (g *Gateway) Uptime() time.Duration {
	if g.startTime.IsZero() || !g.IsRunning() {
		return 0
	}
	return time.Since(g.startTime)
}

// Address returns the bound listener address, or "" when not running.
func (g *Gateway) Address() string {
	if g.listener == nil {
		return ""
	}
	return g.listener.BoundAddress()
}

// wrap applies the middleware shared by every endpoint. Recovery is
// outermost so panics anywhere become 500 responses.
func (g *Gateway) wrap(h http.Handler) http.Handler {
	c := g.components
	table := c.Orchestrator.Table()

	mws := []middleware.Middleware{
		middleware.Recovery(g.logger, c.MiddlewareMetrics),
		middleware.RequestID(),
	}
	if c.Tracer != nil {
		mws = append(mws, observability.TracingMiddleware(c.Tracer))
	}
	if c.Metrics != nil {
		mws = append(mws, observability.MetricsMiddleware(c.Metrics))
	}
	mws = append(mws,
		middleware.Logging(g.logger,
			middleware.WithBodyLogging(g.config.Logging.Level == "debug"),
			middleware.WithClientIPResolver(g.clientIP),
		),
		middleware.CORS(g.config.CORS, c.MiddlewareMetrics),
		middleware.GatewayHeaders(table),
	)

	return middleware.Chain(mws...)(h)
}

// proxyChain is the handler for every request not served by the engine.
func (g *Gateway) proxyChain() http.Handler {
	c := g.components
	table := c.Orchestrator.Table()

	var mws []middleware.Middleware
	if g.config.RateLimit.Enabled {
		rl := middleware.RateLimitConfig{
			Global:   c.GlobalLimiter,
			Routes:   c.RouteLimiter,
			Resolver: table,
			ClientIP: g.clientIP,
			Logger:   g.logger,
			Metrics:  c.MiddlewareMetrics,
		}
		if c.Metrics != nil {
			rl.Recorder = c.Metrics
		}
		mws = append(mws, middleware.RateLimit(rl))
	}
	mws = append(mws, auth.Middleware(table, c.Validator,
		auth.WithLogger(g.logger),
		auth.WithMetrics(c.AuthMetrics),
		auth.WithForwardIdentity(g.config.Auth.ForwardIdentity),
	))

	opts := []proxy.HandlerOption{proxy.WithHandlerLogger(g.logger)}
	if g.config.Server.MaxBodySize > 0 {
		opts = append(opts, proxy.WithMaxBodyBytes(g.config.Server.MaxBodySize))
	}
	return middleware.Chain(mws...)(proxy.Handler(c.Orchestrator, opts...))
}
