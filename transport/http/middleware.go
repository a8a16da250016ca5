package http

import (
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

const adminKeyContextKey = "adminKey"

// AdminKeyMiddleware copies the X-Admin-Key header into the context.
// The gatekeeper decides whether the key is valid.
func AdminKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(adminKeyContextKey, c.GetHeader("X-Admin-Key"))
		c.Next()
	}
}

// LoggerMiddleware logs each request and any error attached by a handler
func LoggerMiddleware(logger watermill.LoggerAdapter) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := watermill.LogFields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}
		if err := c.Errors.Last(); err != nil {
			logger.Error("Request failed", err.Err, fields)
			return
		}
		logger.Debug("Request served", fields)
	}
}

// WithCORS allows browser clients from any origin
func WithCORS(h http.Handler) http.Handler {
	return cors.AllowAll().Handler(h)
}
