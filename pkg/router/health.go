package router

import (
	"greenhouse-assistant/backend/internal/api"

	"github.com/gin-gonic/gin"
)

// setupHealthRoutes registers health check and metrics endpoints. They sit
// outside /api/v1 so probes never need a token.
func (r *Router) setupHealthRoutes() {
	handler := api.NewHealthHandler(r.Container.Health, r.Config.Server.Version)
	handler.RegisterHealthRoutes(r.Engine)
	handler.RegisterHealthRoutes(r.Engine.Group("/api/v1"))

	if r.metrics != nil {
		r.Engine.GET(r.Config.Observability.MetricsPath, gin.WrapH(r.metrics))
	}
}
