package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the circuit breaker collectors. A nil *Metrics records nothing.
type Metrics struct {
	state        *prometheus.GaugeVec
	requests     *prometheus.CounterVec
	results      *prometheus.CounterVec
	stateChanges *prometheus.CounterVec
}

// NewMetrics creates the circuit breaker collectors and registers them
// with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Current state of the circuit breaker (0=closed, 1=open, 2=half-open)",
			},
			[]string{"service"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_requests_total",
				Help:      "Total number of calls evaluated by circuit breakers",
			},
			[]string{"service", "result"},
		),
		results: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_outcomes_total",
				Help:      "Total number of call outcomes recorded by circuit breakers",
			},
			[]string{"service", "outcome"},
		),
		stateChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state_changes_total",
				Help:      "Total number of circuit breaker state changes",
			},
			[]string{"service", "from", "to"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.state, m.requests, m.results, m.stateChanges)
	}

	return m
}

func (m *Metrics) recordState(name string, state State) {
	if m == nil {
		return
	}
	m.state.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) recordRequest(name string, allowed bool) {
	if m == nil {
		return
	}
	result := "allowed"
	if !allowed {
		result = "rejected"
	}
	m.requests.WithLabelValues(name, result).Inc()
}

func (m *Metrics) recordResult(name string, success bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.results.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) recordStateChange(name string, from, to State) {
	if m == nil {
		return
	}
	m.stateChanges.WithLabelValues(name, from.String(), to.String()).Inc()
	m.recordState(name, to)
}
