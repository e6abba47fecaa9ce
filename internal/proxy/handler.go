package proxy

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/vyrodovalexey/apigateway/internal/observability"
	"github.com/vyrodovalexey/apigateway/internal/util"
)

type handler struct {
	orchestrator *Orchestrator
	maxBodyBytes int64
	logger       observability.Logger
}

// HandlerOption is a functional option for the proxy handler.
type HandlerOption func(*handler)

// WithMaxBodyBytes caps the request body buffered for forwarding.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *handler) {
		h.maxBodyBytes = n
	}
}

// WithHandlerLogger sets the handler logger.
func WithHandlerLogger(logger observability.Logger) HandlerOption {
	return func(h *handler) {
		h.logger = logger
	}
}

// Handler returns an http.Handler that forwards every request through o.
func Handler(o *Orchestrator, opts ...HandlerOption) http.Handler {
	h := &handler{
		orchestrator: o,
		maxBodyBytes: DefaultMaxBodyBytes,
		logger:       observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if match, ok := h.orchestrator.table.Match(r.URL.Path, r.Method); ok {
		observability.ReportRoute(ctx, match.Route.PathPattern)
		ctx = util.ContextWithRoute(ctx, match.Route.PathPattern)
		ctx = util.ContextWithService(ctx, match.Route.ServiceKey)
		r = r.WithContext(ctx)
	}

	if websocket.IsWebSocketUpgrade(r) {
		h.orchestrator.ServeWebSocket(w, r)
		return
	}

	req, err := NewProxyRequest(r, h.maxBodyBytes)
	if err != nil {
		if errors.Is(err, ErrRequestTooLarge) {
			util.WriteStatusError(w, r.URL.Path, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		h.logger.WithContext(ctx).Warn("failed to read request", observability.Error(err))
		util.WriteStatusError(w, r.URL.Path, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.orchestrator.Forward(ctx, req)
	if err != nil {
		util.WriteError(w, r.URL.Path, err)
		return
	}

	if err := resp.Send(w); err != nil {
		h.logger.WithContext(ctx).Debug("failed to write response", observability.Error(err))
	}
}
