package proxy

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the proxy collectors. A nil *Metrics records nothing.
type Metrics struct {
	upstreamDuration *prometheus.HistogramVec
	errorsTotal      *prometheus.CounterVec
	cacheResults     *prometheus.CounterVec
}

// NewMetrics creates the proxy collectors and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "proxy",
				Name:      "upstream_duration_seconds",
				Help:      "Duration of upstream calls",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"service", "status"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "proxy",
				Name:      "errors_total",
				Help:      "Total number of forwarded calls that ended in a gateway error",
			},
			[]string{"service", "code"},
		),
		cacheResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "proxy",
				Name:      "cache_lookups_total",
				Help:      "Total number of response cache lookups",
			},
			[]string{"result"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.upstreamDuration, m.errorsTotal, m.cacheResults)
	}

	return m
}

func (m *Metrics) recordUpstream(service string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.upstreamDuration.WithLabelValues(service, strconv.Itoa(status)).Observe(d.Seconds())
}

func (m *Metrics) recordError(service, code string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(service, code).Inc()
}

func (m *Metrics) recordCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheResults.WithLabelValues(result).Inc()
}
