package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vyrodovalexey/apigateway/internal/config"
	"github.com/vyrodovalexey/apigateway/internal/observability"
)

// defaultShutdownTimeout bounds the drain of in-flight requests.
const defaultShutdownTimeout = 30 * time.Second

// runGateway runs the gateway until a shutdown signal arrives.
func runGateway(app *application, configPath string, logger observability.Logger) {
	if err := app.gateway.Start(context.Background()); err != nil {
		fatalWithSync(logger, "failed to start gateway", observability.Error(err))
		return
	}

	watcher := startConfigWatcher(app, configPath, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", observability.String("signal", sig.String()))

	shutdown(app, watcher, logger)
}

// shutdown stops the watcher, drains the gateway and releases resources.
func shutdown(app *application, watcher *config.Watcher, logger observability.Logger) {
	timeout := app.config.Server.ShutdownTimeout.Duration()
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if watcher != nil {
		_ = watcher.Stop()
	}

	if app.gateway.IsRunning() {
		if err := app.gateway.Stop(ctx); err != nil {
			logger.Error("failed to stop gateway gracefully", observability.Error(err))
		}
	}

	app.close(ctx)

	logger.Info("gateway stopped")
}
