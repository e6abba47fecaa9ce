package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsMiddleware_UsesReportedRoute(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test")
	handler := MetricsMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ReportRoute(r.Context(), "/api/v1/user/:id")
		w.WriteHeader(http.StatusCreated)
	}))

	for _, path := range []string{"/api/v1/user/1", "/api/v1/user/2"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusCreated, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/api/v1/user/:id", "201")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.activeRequests))
}

func TestMetricsMiddleware_UnmatchedRoute(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test")
	handler := MetricsMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/random/123", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", unmatchedRoute, "404")))
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := NewMetrics("gw")
	m.SetUpstreamHealth("auth", true)
	m.SetUpstreamHealth("challenge-service", false)
	m.RecordRateLimitHit("/api/v1/environment")
	m.SetBuildInfo("1.0.0", "abc", "now")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `gw_upstream_health{service="auth"} 1`))
	assert.True(t, strings.Contains(body, `gw_upstream_health{service="challenge-service"} 0`))
	assert.Contains(t, body, "gw_rate_limit_hits_total")
	assert.Contains(t, body, "gw_build_info")
}

func TestReportRoute_NoHolderIsNoop(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.NotPanics(t, func() { ReportRoute(req.Context(), "/x") })
}
