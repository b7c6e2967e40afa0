package logger

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const ginKey = "logger"

// FromGin returns the request-scoped logger set by Middleware, or fallback
func FromGin(c *gin.Context, fallback *Logger) *Logger {
	if v, ok := c.Get(ginKey); ok {
		if l, ok := v.(*Logger); ok {
			return l
		}
	}
	if fallback == nil {
		return GetGlobal()
	}
	return fallback
}

// Middleware returns a Gin middleware function that logs requests
func Middleware(logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Generate a request ID if one doesn't exist
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("requestID", requestID)

		// Create a request-scoped logger
		reqLogger := logger.WithRequestID(requestID).WithContext(c.Request.Context())
		c.Set(ginKey, reqLogger)

		start := time.Now()

		c.Next()

		// userId is only known once the auth middleware has run
		done := reqLogger
		if userID, ok := c.Get("userId"); ok {
			done = done.WithUserID(fmt.Sprintf("%v", userID))
		}

		done.LogRequest(c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
