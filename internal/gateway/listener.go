package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/vyrodovalexey/apigateway/internal/config"
	"github.com/vyrodovalexey/apigateway/internal/observability"
)

// Listener serves the gateway handler on one TCP address.
type Listener struct {
	config  config.ServerConfig
	server  *http.Server
	handler http.Handler
	logger  observability.Logger
	addr    atomic.Value
	running atomic.Bool
}

// NewListener creates a listener.
func NewListener(cfg config.ServerConfig, handler http.Handler, logger observability.Logger) *Listener {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Listener{
		config:  cfg,
		handler: handler,
		logger:  logger,
	}
}

// Address returns the configured bind address.
func (l *Listener) Address() string {
	return net.JoinHostPort(l.config.Address, strconv.Itoa(l.config.Port))
}

// BoundAddress returns the address actually bound, which differs from
// Address when port 0 was configured. It is empty before Start.
func (l *Listener) BoundAddress() string {
	if v, ok := l.addr.Load().(string); ok {
		return v
	}
	return ""
}

// Start binds the address and serves in the background.
func (l *Listener) Start(ctx context.Context) error {
	if l.running.Load() {
		return fmt.Errorf("listener %s is already running", l.Address())
	}

	l.server = &http.Server{
		Handler:           l.handler,
		ReadTimeout:       durationOr(l.config.ReadTimeout.Duration(), 30*time.Second),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      durationOr(l.config.WriteTimeout.Duration(), 30*time.Second),
		IdleTimeout:       durationOr(l.config.IdleTimeout.Duration(), 120*time.Second),
		MaxHeaderBytes:    1 << 20,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", l.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.Address(), err)
	}
	l.addr.Store(ln.Addr().String())
	l.running.Store(true)

	l.logger.Info("listener started", observability.String("address", ln.Addr().String()))

	go l.serve(ln)

	return nil
}

func (l *Listener) serve(ln net.Listener) {
	if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.logger.Error("listener error",
			observability.String("address", l.Address()),
			observability.Error(err),
		)
	}
	l.running.Store(false)
}

// Stop drains in-flight requests until ctx expires, then closes the
// remaining connections.
func (l *Listener) Stop(ctx context.Context) error {
	if !l.running.Load() {
		return nil
	}

	if err := l.server.Shutdown(ctx); err != nil {
		if closeErr := l.server.Close(); closeErr != nil {
			return fmt.Errorf("failed to close listener: %w", closeErr)
		}
		return fmt.Errorf("failed to shutdown listener gracefully: %w", err)
	}

	l.running.Store(false)
	l.logger.Info("listener stopped", observability.String("address", l.Address()))
	return nil
}

// IsRunning returns true if the listener is serving.
func (l *Listener) IsRunning() bool {
	return l.running.Load()
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
