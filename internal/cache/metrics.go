package cache

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for cache operations. A nil *Metrics
// records nothing.
type Metrics struct {
	hitsTotal         *prometheus.CounterVec
	missesTotal       *prometheus.CounterVec
	evictionsTotal    *prometheus.CounterVec
	sizeGauge         *prometheus.GaugeVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
}

// NewMetrics creates the cache collectors and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"backend"},
		),
		missesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"backend"},
		),
		evictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "evictions_total",
				Help:      "Total number of cache evictions",
			},
			[]string{"backend"},
		),
		sizeGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "size",
				Help:      "Current number of items in cache",
			},
			[]string{"backend"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "operation_duration_seconds",
				Help:      "Duration of cache operations",
				Buckets: []float64{
					.0001, .0005, .001, .005,
					.01, .025, .05, .1,
				},
			},
			[]string{"backend", "operation"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "errors_total",
				Help:      "Total number of cache errors",
			},
			[]string{"backend", "operation"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.hitsTotal,
			m.missesTotal,
			m.evictionsTotal,
			m.sizeGauge,
			m.operationDuration,
			m.errorsTotal,
		)
	}

	return m
}

func (m *Metrics) hit(backend string) {
	if m != nil {
		m.hitsTotal.WithLabelValues(backend).Inc()
	}
}

func (m *Metrics) miss(backend string) {
	if m != nil {
		m.missesTotal.WithLabelValues(backend).Inc()
	}
}

func (m *Metrics) eviction(backend string) {
	if m != nil {
		m.evictionsTotal.WithLabelValues(backend).Inc()
	}
}

func (m *Metrics) size(backend string, n int) {
	if m != nil {
		m.sizeGauge.WithLabelValues(backend).Set(float64(n))
	}
}

func (m *Metrics) failure(backend, operation string) {
	if m != nil {
		m.errorsTotal.WithLabelValues(backend, operation).Inc()
	}
}

func (m *Metrics) observe(backend, operation string, start time.Time) {
	if m != nil {
		m.operationDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
	}
}
