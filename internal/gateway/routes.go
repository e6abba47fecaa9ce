package gateway

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/apigateway/internal/auth"
	"github.com/vyrodovalexey/apigateway/internal/circuitbreaker"
	"github.com/vyrodovalexey/apigateway/internal/health"
	"github.com/vyrodovalexey/apigateway/internal/observability"
	"github.com/vyrodovalexey/apigateway/internal/util"
)

// Gateway-owned endpoints.
const (
	PathVersions            = "/api/versions"
	PathCircuitBreakers     = "/circuit-breakers"
	PathCircuitBreakerReset = "/circuit-breakers/:service/reset"
	PathCircuitBreakersAll  = "/circuit-breakers/reset"
)

var ginModeOnce sync.Once

// VersionsResponse is the body of GET /api/versions.
type VersionsResponse struct {
	SupportedVersions []string `json:"supportedVersions"`
	LatestVersion     string   `json:"latestVersion"`
}

// BreakerResponse describes one circuit breaker on the admin endpoints.
type BreakerResponse struct {
	Service      string     `json:"service"`
	State        string     `json:"state"`
	FailureCount int        `json:"failureCount"`
	LastFailure  *time.Time `json:"lastFailure,omitempty"`
	NextAttempt  *time.Time `json:"nextAttempt,omitempty"`
}

func (g *Gateway) newEngine() *gin.Engine {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	engine := gin.New()
	engine.HandleMethodNotAllowed = false
	engine.RedirectTrailingSlash = false

	if g.components.Health != nil {
		health.NewHandler(g.components.Health, g.logger).RegisterRoutes(engine)
	}

	if m := g.components.Metrics; m != nil && g.config.Observability.Metrics.Enabled {
		path := g.config.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		engine.GET(path, gin.WrapH(m.Handler()))
	}

	engine.GET(PathVersions, g.handleVersions)

	admin := engine.Group("", ginMiddleware(auth.RequireRole(g.components.Validator, g.config.Auth.AdminRole)))
	admin.GET(PathCircuitBreakers, g.handleListBreakers)
	admin.POST(PathCircuitBreakersAll, g.handleResetAllBreakers)
	admin.POST(PathCircuitBreakerReset, g.handleResetBreaker)

	proxied := g.proxyChain()
	engine.NoRoute(func(c *gin.Context) {
		// gin presets 404 for NoRoute; the proxy decides the real status.
		c.Status(http.StatusOK)
		proxied.ServeHTTP(c.Writer, c.Request)
	})

	return engine
}

// ginMiddleware adapts a net/http middleware to gin. The chain continues
// only if the wrapped middleware calls its next handler.
func ginMiddleware(mw func(http.Handler) http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		passed := false
		mw(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)

		if !passed {
			c.Abort()
		}
	}
}

func (g *Gateway) handleVersions(c *gin.Context) {
	table := g.components.Orchestrator.Table()
	observability.ReportRoute(c.Request.Context(), PathVersions)

	c.JSON(http.StatusOK, VersionsResponse{
		SupportedVersions: table.SupportedVersions(),
		LatestVersion:     table.LatestVersion(),
	})
}

func (g *Gateway) handleListBreakers(c *gin.Context) {
	breakers := g.components.Orchestrator.Breakers()
	observability.ReportRoute(c.Request.Context(), PathCircuitBreakers)

	statuses := breakers.Statuses()
	resp := make([]BreakerResponse, 0, len(statuses))
	for _, s := range statuses {
		resp = append(resp, breakerResponse(s))
	}

	c.JSON(http.StatusOK, gin.H{"circuitBreakers": resp})
}

func (g *Gateway) handleResetBreaker(c *gin.Context) {
	breakers := g.components.Orchestrator.Breakers()
	observability.ReportRoute(c.Request.Context(), PathCircuitBreakerReset)

	service := c.Param("service")
	if _, ok := g.components.Orchestrator.Table().ServiceEndpoint(service); !ok {
		util.WriteError(c.Writer, c.Request.URL.Path, util.NewServiceNotFoundError(service))
		return
	}

	breakers.Reset(service)
	g.logger.WithContext(c.Request.Context()).Info("circuit breaker reset",
		observability.String("service", service),
	)

	status, _ := breakers.Status(service)
	c.JSON(http.StatusOK, breakerResponse(status))
}

func (g *Gateway) handleResetAllBreakers(c *gin.Context) {
	breakers := g.components.Orchestrator.Breakers()
	observability.ReportRoute(c.Request.Context(), PathCircuitBreakersAll)

	breakers.ResetAll()
	g.logger.WithContext(c.Request.Context()).Info("all circuit breakers reset",
		observability.Int("count", breakers.Count()),
	)

	c.JSON(http.StatusOK, gin.H{"reset": breakers.Count()})
}

func breakerResponse(s circuitbreaker.Status) BreakerResponse {
	resp := BreakerResponse{
		Service:      s.Name,
		State:        s.State.String(),
		FailureCount: s.FailureCount,
	}
	if !s.LastFailure.IsZero() {
		t := s.LastFailure
		resp.LastFailure = &t
	}
	if !s.NextAttempt.IsZero() {
		t := s.NextAttempt
		resp.NextAttempt = &t
	}
	return resp
}
