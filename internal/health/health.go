package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/vyrodovalexey/apigateway/internal/circuitbreaker"
	"github.com/vyrodovalexey/apigateway/internal/observability"
	"github.com/vyrodovalexey/apigateway/internal/router"
)

// ServiceSource lists the upstream services to check.
type ServiceSource interface {
	Services() []router.ServiceEndpoint
}

// BreakerSource reports circuit breaker state per service.
type BreakerSource interface {
	Status(name string) (circuitbreaker.Status, bool)
	Statuses() []circuitbreaker.Status
}

// UpstreamReporter receives the probe result of every service.
type UpstreamReporter interface {
	SetUpstreamHealth(service string, healthy bool)
}

// Report is the detailed health report.
type Report struct {
	Status       Status                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Uptime       string                      `json:"uptime"`
	Version      string                      `json:"version,omitempty"`
	Services     map[string]ServiceReport    `json:"services"`
	Dependencies map[string]DependencyReport `json:"dependencies,omitempty"`
}

// ServiceReport combines the probe and circuit state of one upstream.
type ServiceReport struct {
	Status         Status        `json:"status"`
	URL            string        `json:"url"`
	CircuitBreaker CircuitReport `json:"circuitBreaker"`
	Probe          ProbeResult   `json:"probe"`
}

// CircuitReport is the externally visible breaker state.
type CircuitReport struct {
	State        string     `json:"state"`
	FailureCount int        `json:"failureCount"`
	NextAttempt  *time.Time `json:"nextAttempt,omitempty"`
}

// DependencyReport is the outcome of a dependency check.
type DependencyReport struct {
	Status   Status `json:"status"`
	Critical bool   `json:"critical,omitempty"`
	Latency  string `json:"latency"`
	Error    string `json:"error,omitempty"`
}

// ReadinessReport is the readiness response.
type ReadinessReport struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	OpenCircuits []string  `json:"openCircuits,omitempty"`
}

// Checker builds health reports.
type Checker struct {
	version      string
	services     ServiceSource
	breakers     BreakerSource
	client       *http.Client
	probeTimeout time.Duration
	startTime    time.Time
	logger       observability.Logger
	metrics      *Metrics
	reporter     UpstreamReporter

	mu           sync.RWMutex
	dependencies []*DependencyCheck
}

// Option is a functional option for the checker.
type Option func(*Checker)

// WithProbeTimeout bounds each upstream probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.probeTimeout = d
		}
	}
}

// WithHTTPClient sets the client used for probes.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Checker) {
		c.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Checker) {
		c.metrics = m
	}
}

// WithUpstreamReporter forwards probe results to r after each check.
func WithUpstreamReporter(r UpstreamReporter) Option {
	return func(c *Checker) {
		c.reporter = r
	}
}

// WithDependency adds a dependency check.
func WithDependency(check *DependencyCheck) Option {
	return func(c *Checker) {
		c.dependencies = append(c.dependencies, check)
	}
}

// NewChecker creates a checker for the given services and breakers.
func NewChecker(version string, services ServiceSource, breakers BreakerSource, opts ...Option) *Checker {
	c := &Checker{
		version:      version,
		services:     services,
		breakers:     breakers,
		client:       &http.Client{},
		probeTimeout: DefaultProbeTimeout,
		startTime:    time.Now(),
		logger:       observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddDependency registers a dependency check.
func (c *Checker) AddDependency(check *DependencyCheck) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dependencies = append(c.dependencies, check)
}

// Check probes every service and dependency concurrently and aggregates
// the results. The gateway is healthy when every service and dependency
// is healthy, unhealthy when every service is unhealthy or a critical
// dependency fails, and degraded otherwise.
func (c *Checker) Check(ctx context.Context) *Report {
	services := c.services.Services()

	c.mu.RLock()
	deps := make([]*DependencyCheck, len(c.dependencies))
	copy(deps, c.dependencies)
	c.mu.RUnlock()

	report := &Report{
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Version:   c.version,
		Services:  make(map[string]ServiceReport, len(services)),
	}
	if len(deps) > 0 {
		report.Dependencies = make(map[string]DependencyReport, len(deps))
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, svc := range services {
		wg.Add(1)
		go func(svc router.ServiceEndpoint) {
			defer wg.Done()
			sr := c.checkService(ctx, svc)
			mu.Lock()
			report.Services[svc.ServiceKey] = sr
			mu.Unlock()
		}(svc)
	}

	for _, dep := range deps {
		wg.Add(1)
		go func(dep *DependencyCheck) {
			defer wg.Done()
			dr := c.checkDependency(ctx, dep)
			mu.Lock()
			report.Dependencies[dep.Name()] = dr
			mu.Unlock()
		}(dep)
	}

	wg.Wait()

	report.Status = aggregate(report)
	c.metrics.recordOverall(report.Status)
	return report
}

func (c *Checker) checkService(ctx context.Context, svc router.ServiceEndpoint) ServiceReport {
	result := probe(ctx, c.client, svc.HealthURL(), c.probeTimeout)
	circuit := c.circuitReport(svc.ServiceKey)

	status := StatusHealthy
	switch {
	case !result.Healthy:
		status = StatusUnhealthy
	case circuit.State != circuitbreaker.StateClosed.String():
		status = StatusDegraded
	}

	if !result.Healthy {
		c.logger.WithContext(ctx).Warn("upstream health probe failed",
			observability.String("service", svc.ServiceKey),
			observability.String("error", result.Error),
		)
	}
	c.metrics.recordService(svc.ServiceKey, status)
	if c.reporter != nil {
		c.reporter.SetUpstreamHealth(svc.ServiceKey, result.Healthy)
	}

	return ServiceReport{
		Status:         status,
		URL:            svc.BaseURL,
		CircuitBreaker: circuit,
		Probe:          result,
	}
}

func (c *Checker) checkDependency(ctx context.Context, dep *DependencyCheck) DependencyReport {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	start := time.Now()
	err := dep.Check(ctx)
	report := DependencyReport{
		Status:   StatusHealthy,
		Critical: dep.Critical(),
		Latency:  time.Since(start).String(),
	}
	if err != nil {
		report.Status = StatusUnhealthy
		report.Error = err.Error()
		c.logger.WithContext(ctx).Warn("dependency check failed",
			observability.String("dependency", dep.Name()),
			observability.Error(err),
		)
	}
	return report
}

func (c *Checker) circuitReport(service string) CircuitReport {
	status, ok := c.breakers.Status(service)
	if !ok {
		return CircuitReport{State: circuitbreaker.StateClosed.String()}
	}
	report := CircuitReport{
		State:        status.State.String(),
		FailureCount: status.FailureCount,
	}
	if status.State == circuitbreaker.StateOpen && !status.NextAttempt.IsZero() {
		next := status.NextAttempt.UTC()
		report.NextAttempt = &next
	}
	return report
}

func aggregate(report *Report) Status {
	healthy, unhealthy := 0, 0
	for _, sr := range report.Services {
		switch sr.Status {
		case StatusHealthy:
			healthy++
		case StatusUnhealthy:
			unhealthy++
		}
	}

	depsHealthy := true
	for _, dr := range report.Dependencies {
		if dr.Status == StatusHealthy {
			continue
		}
		if dr.Critical {
			return StatusUnhealthy
		}
		depsHealthy = false
	}

	total := len(report.Services)
	switch {
	case total > 0 && unhealthy == total:
		return StatusUnhealthy
	case healthy == total && depsHealthy:
		return StatusHealthy
	default:
		return StatusDegraded
	}
}

// Readiness reports whether the gateway should receive traffic. It is
// not ready while any circuit breaker is open.
func (c *Checker) Readiness() *ReadinessReport {
	report := &ReadinessReport{
		Status:    StatusReady,
		Timestamp: time.Now().UTC(),
	}
	for _, s := range c.breakers.Statuses() {
		if s.State == circuitbreaker.StateOpen {
			report.OpenCircuits = append(report.OpenCircuits, s.Name)
		}
	}
	if len(report.OpenCircuits) > 0 {
		report.Status = StatusNotReady
	}
	return report
}
