package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/apigateway/internal/cache"
	"github.com/vyrodovalexey/apigateway/internal/circuitbreaker"
	"github.com/vyrodovalexey/apigateway/internal/config"
	"github.com/vyrodovalexey/apigateway/internal/observability"
	"github.com/vyrodovalexey/apigateway/internal/router"
	"github.com/vyrodovalexey/apigateway/internal/util"
)

// proxyTracerName is the OpenTelemetry tracer name for upstream calls.
const proxyTracerName = "apigateway/proxy"

// Orchestrator forwards requests to the upstream selected by the route
// table.
type Orchestrator struct {
	table    *router.Table
	breakers *circuitbreaker.Manager
	cache    cache.Cache
	client   *http.Client
	timeout  time.Duration
	cacheTTL time.Duration
	logger   observability.Logger
	metrics  *Metrics
}

// Option is a functional option for the orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithCache sets the response cache. Without one nothing is cached.
func WithCache(c cache.Cache) Option {
	return func(o *Orchestrator) {
		o.cache = c
	}
}

// WithHTTPClient sets the client used for upstream calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Orchestrator) {
		o.client = client
	}
}

// WithTimeout sets the upstream call timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Orchestrator) {
		o.timeout = timeout
	}
}

// WithCacheTTL sets the TTL of cached GET responses.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *Orchestrator) {
		o.cacheTTL = ttl
	}
}

// WithMetrics sets the metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// NewOrchestrator creates an orchestrator over the route table and the
// per-service circuit breakers.
func NewOrchestrator(table *router.Table, breakers *circuitbreaker.Manager, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		table:    table,
		breakers: breakers,
		timeout:  config.DefaultProxyTimeout,
		cacheTTL: config.DefaultCacheTTL,
		logger:   observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.client == nil {
		o.client = NewHTTPClient()
	}

	return o
}

// Table returns the route table the orchestrator resolves against.
func (o *Orchestrator) Table() *router.Table {
	return o.table
}

// Breakers returns the circuit breaker manager.
func (o *Orchestrator) Breakers() *circuitbreaker.Manager {
	return o.breakers
}

// Forward sends req to its upstream. Upstream responses outside 2xx, other
// than 304, are returned as UPSTREAM_ERROR carrying the upstream status and
// body; every other failure is a *util.GatewayError of the matching code
// as well.
func (o *Orchestrator) Forward(ctx context.Context, req *ProxyRequest) (*ProxyResponse, error) {
	match, ok := o.table.Match(req.Path, req.Method)
	if !ok {
		return nil, util.NewRouteNotFoundError(req.Method, req.Path)
	}
	route := match.Route

	endpoint, ok := o.table.ServiceEndpoint(route.ServiceKey)
	if !ok {
		o.metrics.recordError(route.ServiceKey, util.CodeServiceNotConfigured)
		return nil, util.NewServiceNotConfiguredError(route.ServiceKey)
	}

	logger := o.logger.WithContext(ctx).With(
		observability.String("service", route.ServiceKey),
		observability.String("route", route.PathPattern),
	)

	cacheable := req.Method == http.MethodGet && o.cache != nil
	var cacheKey string
	if cacheable {
		cacheKey = cache.ProxyKey(req.EscapedPath(), req.Query)
		if cached := o.readCache(ctx, cacheKey, logger); cached != nil {
			logger.Debug("cache hit", observability.String("path", req.Path))
			return cached, nil
		}
	}

	targetURL := BuildTargetURL(endpoint.BaseURL, route.PathPattern, req.EscapedPath(), req.Query)
	logger.Debug("proxying request",
		observability.String("method", req.Method),
		observability.String("path", req.Path),
		observability.String("target", targetURL),
	)

	var resp *ProxyResponse
	err := o.breakers.Execute(ctx, route.ServiceKey, func(ctx context.Context) error {
		var callErr error
		resp, callErr = o.call(ctx, route.ServiceKey, req, targetURL)
		return callErr
	})
	if err != nil {
		gwErr := translateError(err)
		o.metrics.recordError(route.ServiceKey, gwErr.Code)
		if gwErr.Code == util.CodeClientClosedRequest {
			logger.Info("client closed request before upstream answered",
				observability.String("method", req.Method),
				observability.String("path", req.Path),
			)
			return nil, gwErr
		}
		logger.Error("proxy request failed",
			observability.String("method", req.Method),
			observability.String("path", req.Path),
			observability.String("code", gwErr.Code),
			observability.Error(err),
		)
		return nil, gwErr
	}

	if isUpstreamErrorStatus(resp.StatusCode) {
		o.metrics.recordError(route.ServiceKey, util.CodeUpstreamError)
		logger.Debug("upstream returned error status",
			observability.Int("status", resp.StatusCode),
		)
		return nil, util.NewUpstreamError(resp.StatusCode, resp.Body, resp.Header.Get("Content-Type"))
	}

	if cacheable && resp.StatusCode == http.StatusOK {
		o.writeCache(ctx, cacheKey, resp, logger)
	}

	return resp, nil
}

// call performs one upstream exchange. Only failures to complete the
// exchange are returned as errors; any status code is a response. A
// failure caused by the caller cancelling ctx is excluded from the
// breaker record.
func (o *Orchestrator) call(
	parent context.Context,
	service string,
	req *ProxyRequest,
	targetURL string,
) (*ProxyResponse, error) {
	ctx, cancel := context.WithTimeout(parent, o.timeout)
	defer cancel()

	ctx, span := otel.Tracer(proxyTracerName).Start(ctx, "proxy.upstream",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", targetURL),
			attribute.String("gateway.service", service),
		),
	)
	defer span.End()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	upstreamReq, err := http.NewRequestWithContext(ctx, req.Method, targetURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	upstreamReq.Header = sanitizeRequestHeaders(req.Header)
	observability.InjectTraceContext(ctx, upstreamReq)

	start := time.Now()
	upstreamResp, err := o.client.Do(upstreamReq)
	if err != nil {
		if callerGone(parent) {
			o.metrics.recordUpstream(service, 0, time.Since(start))
			return nil, circuitbreaker.Exclude(util.NewClientClosedError(err))
		}
		classified := classifyTransportError(err)
		observability.RecordSpanError(ctx, classified)
		span.SetAttributes(attribute.String("error.type", errorLabel(classified)))
		o.metrics.recordUpstream(service, 0, time.Since(start))
		return nil, &transportError{cause: classified}
	}
	defer upstreamResp.Body.Close()

	respBody, err := io.ReadAll(upstreamResp.Body)
	if err != nil {
		if callerGone(parent) {
			o.metrics.recordUpstream(service, 0, time.Since(start))
			return nil, circuitbreaker.Exclude(util.NewClientClosedError(err))
		}
		observability.RecordSpanError(ctx, err)
		o.metrics.recordUpstream(service, 0, time.Since(start))
		return nil, &transportError{cause: classifyTransportError(err)}
	}

	o.metrics.recordUpstream(service, upstreamResp.StatusCode, time.Since(start))
	span.SetAttributes(attribute.Int("http.response.status_code", upstreamResp.StatusCode))

	return &ProxyResponse{
		StatusCode: upstreamResp.StatusCode,
		Header:     filterResponseHeaders(upstreamResp.Header),
		Body:       respBody,
	}, nil
}

// isUpstreamErrorStatus reports whether status is returned to the caller
// as UPSTREAM_ERROR. 304 answers a conditional request and is passed
// through with its validators.
func isUpstreamErrorStatus(status int) bool {
	if status == http.StatusNotModified {
		return false
	}
	return status < http.StatusOK || status >= http.StatusMultipleChoices
}

// callerGone reports whether the inbound request context was cancelled,
// as opposed to the per-call timeout expiring.
func callerGone(parent context.Context) bool {
	return errors.Is(parent.Err(), context.Canceled)
}

// readCache returns the cached response for key. Cache failures are misses.
func (o *Orchestrator) readCache(ctx context.Context, key string, logger observability.Logger) *ProxyResponse {
	data, err := o.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) && !errors.Is(err, cache.ErrCacheDisabled) {
			logger.Warn("cache get error", observability.Error(err))
		}
		o.metrics.recordCache(false)
		return nil
	}

	resp, err := decodeResponse(data)
	if err != nil {
		logger.Warn("discarding unreadable cache entry",
			observability.String("key", key),
			observability.Error(err),
		)
		o.metrics.recordCache(false)
		return nil
	}

	o.metrics.recordCache(true)
	return resp
}

// writeCache stores resp under key. Failures are logged and ignored.
func (o *Orchestrator) writeCache(ctx context.Context, key string, resp *ProxyResponse, logger observability.Logger) {
	data, err := encodeResponse(resp)
	if err != nil {
		logger.Warn("cache encode error", observability.Error(err))
		return
	}
	if err := o.cache.Set(ctx, key, data, o.cacheTTL); err != nil && !errors.Is(err, cache.ErrCacheDisabled) {
		logger.Warn("cache set error", observability.Error(err))
	}
}
