package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/apigateway/internal/observability"
)

// Handler serves the health endpoints.
type Handler struct {
	checker *Checker
	logger  observability.Logger
}

// NewHandler creates a health handler.
func NewHandler(checker *Checker, logger observability.Logger) *Handler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Handler{checker: checker, logger: logger}
}

// HealthHandler serves the detailed report.
func (h *Handler) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report := h.checker.Check(c.Request.Context())

		statusCode := http.StatusOK
		if report.Status == StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
			h.logger.WithContext(c.Request.Context()).Warn("gateway unhealthy")
		}
		c.JSON(statusCode, report)
	}
}

// ReadinessHandler serves the readiness probe.
func (h *Handler) ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report := h.checker.Readiness()

		statusCode := http.StatusOK
		if report.Status != StatusReady {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, report)
	}
}

// LivenessHandler serves the liveness probe.
func (h *Handler) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    StatusAlive,
			"timestamp": time.Now().UTC(),
		})
	}
}

// RegisterRoutes registers the health endpoints on a router.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET(PathHealth, h.HealthHandler())
	r.GET(PathReady, h.ReadinessHandler())
	r.GET(PathLive, h.LivenessHandler())
}
