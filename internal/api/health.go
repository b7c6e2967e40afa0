package api

import (
	"net/http"
	"time"

	"greenhouse-assistant/backend/pkg/health"

	"github.com/gin-gonic/gin"
)

// Handler handles health check endpoints
type Handler struct {
	checker *health.Checker
	version string
}

// NewHealthHandler creates a health handler backed by checker
func NewHealthHandler(checker *health.Checker, version string) *Handler {
	return &Handler{checker: checker, version: version}
}

// LivenessResponse represents the liveness response structure
type LivenessResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Liveness reports that the process is serving requests
func (h *Handler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.version,
	})
}

// RegisterHealthRoutes registers health check related routes
func (h *Handler) RegisterHealthRoutes(router gin.IRoutes) {
	router.GET("/health", gin.WrapF(h.checker.HTTPHandler()))
	router.GET("/health/live", h.Liveness)
}
