package auth

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the authentication collectors. A nil *Metrics records nothing.
type Metrics struct {
	decisions *prometheus.CounterVec
	failures  *prometheus.CounterVec
}

// NewMetrics creates the authentication collectors and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "decisions_total",
				Help:      "Total number of authentication decisions",
			},
			[]string{"decision"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "failure_total",
				Help:      "Total number of failed authentications",
			},
			[]string{"reason"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.decisions, m.failures)
	}

	return m
}

func (m *Metrics) recordDecision(decision string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) recordFailure(reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(reason).Inc()
}
