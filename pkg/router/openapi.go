package router

import (
	"os"
	"path/filepath"

	"greenhouse-assistant/backend/pkg/validator"
)

// AddOpenAPIValidation adds OpenAPI validation middleware to the router.
// Routes registered afterwards are validated.
func (r *Router) AddOpenAPIValidation(schemaPath string) {
	if schemaPath == "" || !fileExists(schemaPath) {
		r.Logger.Warn("OpenAPI schema file not found, skipping validation", "path", schemaPath)
		return
	}

	v, err := validator.NewOpenAPIValidator(schemaPath)
	if err != nil {
		r.Logger.Error("Failed to initialize OpenAPI validator", "error", err)
		return
	}

	r.Engine.Use(v.Middleware())
	r.Logger.Info("OpenAPI validation enabled", "schema", schemaPath)

	r.Engine.StaticFile("/api/docs/"+filepath.Base(schemaPath), schemaPath)
	r.Logger.Info("OpenAPI schema available at", "url", "/api/docs/"+filepath.Base(schemaPath))

	swaggerUIPath := r.Config.Server.SwaggerUIPath
	if swaggerUIPath != "" {
		if info, err := os.Stat(swaggerUIPath); err == nil && info.IsDir() {
			r.Engine.Static("/swagger-ui", swaggerUIPath)
			r.Logger.Info("Swagger UI available at", "url", "/swagger-ui/")
		}
	}
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
