package middleware

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-Id"
	requestIDKey    = "request_id"
	loggerKey       = "logger"
)

// RequestID propagates an incoming X-Request-Id or generates one, and stores a
// child logger carrying it on the context for controllers and services.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)
		c.Set(requestIDKey, requestID)

		logger := slog.Default().With("request_id", requestID)
		c.Set(loggerKey, logger)

		start := time.Now()
		c.Next()

		logger.InfoContext(c.Request.Context(), "request completed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// GetRequestID returns the request id, or "" outside the RequestID middleware
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Logger returns the request-scoped logger, falling back to the default logger
func Logger(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if logger, ok := v.(*slog.Logger); ok {
			return logger
		}
	}
	return slog.Default()
}
