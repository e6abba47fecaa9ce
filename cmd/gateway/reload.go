package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/apigateway/internal/config"
	"github.com/vyrodovalexey/apigateway/internal/observability"
)

// reloadMetrics counts configuration reloads on the gateway registry.
type reloadMetrics struct {
	reloads       *prometheus.CounterVec
	lastSuccess   prometheus.Gauge
	watcherStatus prometheus.Gauge
}

func newReloadMetrics(reg prometheus.Registerer) *reloadMetrics {
	rm := &reloadMetrics{
		reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "config_reload_total",
				Help:      "Total number of configuration reloads",
			},
			[]string{"result"},
		),
		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "config_reload_last_success_timestamp",
				Help:      "Timestamp of last successful config reload",
			},
		),
		watcherStatus: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "config_watcher_running",
				Help:      "Whether the config file watcher is running (1=running, 0=stopped)",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(rm.reloads, rm.lastSuccess, rm.watcherStatus)
	}
	return rm
}

// reloader applies configuration changes to a running gateway. Only the
// log level takes effect without a restart.
type reloader struct {
	logger  observability.Logger
	metrics *reloadMetrics
}

func (r *reloader) onChange(previous, current *config.GatewayConfig) {
	if err := observability.SetLevel(r.logger, current.Logging.Level); err != nil {
		r.metrics.reloads.WithLabelValues("error").Inc()
		r.logger.Error("failed to apply log level",
			observability.String("level", current.Logging.Level),
			observability.Error(err),
		)
		return
	}

	r.metrics.reloads.WithLabelValues("success").Inc()
	r.metrics.lastSuccess.SetToCurrentTime()
	r.logger.Info("log level applied", observability.String("level", current.Logging.Level))

	if config.RequiresRestart(previous, current) {
		r.logger.Warn("configuration changes outside the logging section require a restart")
	}
}

func (r *reloader) onError(_ error) {
	r.metrics.reloads.WithLabelValues("error").Inc()
}

// startConfigWatcher watches configPath for changes. Nothing is watched
// when the gateway runs on built-in defaults.
func startConfigWatcher(app *application, configPath string, logger observability.Logger) *config.Watcher {
	if configPath == "" {
		return nil
	}

	rm := newReloadMetrics(app.metrics.Registry())
	r := &reloader{logger: logger, metrics: rm}

	watcher, err := config.NewWatcher(configPath, r.onChange,
		config.WithLogger(logger),
		config.WithErrorCallback(r.onError),
		config.WithInitialConfig(app.config),
	)
	if err != nil {
		logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(context.Background()); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
		return nil
	}
	rm.watcherStatus.Set(1)

	return watcher
}
