package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the middleware collectors. A nil *Metrics records nothing.
type Metrics struct {
	panicsRecovered   prometheus.Counter
	rateLimitRejected *prometheus.CounterVec
	corsPreflight     prometheus.Counter
}

// NewMetrics creates the middleware collectors and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		panicsRecovered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "middleware",
				Name:      "panics_recovered_total",
				Help:      "Total number of panics recovered",
			},
		),
		rateLimitRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "middleware",
				Name:      "rate_limit_rejected_total",
				Help:      "Total number of requests rejected by rate limiting",
			},
			[]string{"scope"},
		),
		corsPreflight: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "middleware",
				Name:      "cors_preflight_total",
				Help:      "Total number of CORS preflight requests answered",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(m.panicsRecovered, m.rateLimitRejected, m.corsPreflight)
	}

	return m
}

func (m *Metrics) recordPanic() {
	if m == nil {
		return
	}
	m.panicsRecovered.Inc()
}

func (m *Metrics) recordRateLimited(scope string) {
	if m == nil {
		return
	}
	m.rateLimitRejected.WithLabelValues(scope).Inc()
}

func (m *Metrics) recordPreflight() {
	if m == nil {
		return
	}
	m.corsPreflight.Inc()
}
