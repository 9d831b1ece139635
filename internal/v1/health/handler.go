// Package health serves the liveness and readiness probes on the ops HTTP
// listener.
package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ListenerChecker reports whether the chat listener is accepting.
type ListenerChecker interface {
	Accepting() bool
}

// Handler manages health check endpoints
type Handler struct {
	listener ListenerChecker
}

// NewHandler creates a new health check handler
func NewHandler(listener ListenerChecker) *Handler {
	return &Handler{listener: listener}
}

// LivenessResponse represents the liveness probe response
type LivenessResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse represents the readiness probe response
type ReadinessResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Liveness handles GET /health/live.
// Returns 200 if the process is alive (no dependency checks)
func (h *Handler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness handles GET /health/ready.
// Returns 200 only if the chat listener is accepting connections.
func (h *Handler) Readiness(c *gin.Context) {
	checks := make(map[string]string)

	status := "ready"
	statusCode := http.StatusOK

	if h.listener != nil && h.listener.Accepting() {
		checks["listener"] = "healthy"
	} else {
		checks["listener"] = "unhealthy"
		status = "unavailable"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, ReadinessResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
