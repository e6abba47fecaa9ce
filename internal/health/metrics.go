package health

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the health collectors. A nil *Metrics records nothing.
type Metrics struct {
	checksTotal   *prometheus.CounterVec
	overall       prometheus.Gauge
	serviceStatus *prometheus.GaugeVec
}

// NewMetrics creates the health collectors and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "checks_total",
				Help:      "Total number of health reports built",
			},
			[]string{"status"},
		),
		overall: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "status",
				Help:      "Overall gateway health (1=healthy, 0.5=degraded, 0=unhealthy)",
			},
		),
		serviceStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "service_status",
				Help:      "Upstream service health from the last report (1=healthy, 0.5=degraded, 0=unhealthy)",
			},
			[]string{"service"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.checksTotal, m.overall, m.serviceStatus)
	}

	return m
}

func statusValue(s Status) float64 {
	switch s {
	case StatusHealthy:
		return 1
	case StatusDegraded:
		return 0.5
	default:
		return 0
	}
}

func (m *Metrics) recordOverall(s Status) {
	if m == nil {
		return
	}
	m.checksTotal.WithLabelValues(string(s)).Inc()
	m.overall.Set(statusValue(s))
}

func (m *Metrics) recordService(service string, s Status) {
	if m == nil {
		return
	}
	m.serviceStatus.WithLabelValues(service).Set(statusValue(s))
}
