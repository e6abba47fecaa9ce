package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// DependencyCheck is a check of a shared dependency such as Redis.
// A failing non-critical dependency degrades the gateway; a failing
// critical one makes it unhealthy.
type DependencyCheck struct {
	name     string
	checkFn  func(ctx context.Context) error
	critical bool
}

// DependencyCheckOption configures a DependencyCheck.
type DependencyCheckOption func(*DependencyCheck)

// WithCritical marks the dependency as critical.
func WithCritical(critical bool) DependencyCheckOption {
	return func(d *DependencyCheck) {
		d.critical = critical
	}
}

// NewDependencyCheck creates a non-critical dependency check.
func NewDependencyCheck(
	name string,
	checkFn func(ctx context.Context) error,
	opts ...DependencyCheckOption,
) *DependencyCheck {
	d := &DependencyCheck{
		name:    name,
		checkFn: checkFn,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the dependency name.
func (d *DependencyCheck) Name() string {
	return d.name
}

// Critical reports whether the dependency is critical.
func (d *DependencyCheck) Critical() bool {
	return d.critical
}

// Check runs the check.
func (d *DependencyCheck) Check(ctx context.Context) error {
	return d.checkFn(ctx)
}

// RedisCheck pings a Redis client.
func RedisCheck(name string, client *redis.Client, opts ...DependencyCheckOption) *DependencyCheck {
	return NewDependencyCheck(name, func(ctx context.Context) error {
		if client == nil {
			return errors.New("redis client is nil")
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		return nil
	}, opts...)
}

// ProbeResult is the outcome of one upstream health probe.
type ProbeResult struct {
	Healthy    bool   `json:"healthy"`
	StatusCode int    `json:"statusCode,omitempty"`
	Latency    string `json:"latency"`
	Error      string `json:"error,omitempty"`
}

// probe calls url with GET. Any 2xx answer is healthy.
func probe(ctx context.Context, client *http.Client, url string, timeout time.Duration) ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result := ProbeResult{}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		result.Latency = time.Since(start).String()
		result.Error = fmt.Sprintf("failed to create request: %v", err)
		return result
	}

	resp, err := client.Do(req)
	result.Latency = time.Since(start).String()
	if err != nil {
		result.Error = fmt.Sprintf("failed to connect: %v", err)
		return result
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	result.StatusCode = resp.StatusCode
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		result.Error = fmt.Sprintf("unhealthy status code: %d", resp.StatusCode)
		return result
	}

	result.Healthy = true
	return result
}
