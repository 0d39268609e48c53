package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/piriven/piriven_backend/internal/logger"
)

const RequestIDHeader = "X-Request-Id"

// RequestLogger injects a request-scoped logger carrying the request id and
// writes one access log line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		ctx := logger.WithFields(c.Request.Context(), zap.String("request_id", requestID))
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		logger.Info(ctx, "Access log",
			zap.Int("status_code", c.Writer.Status()),
			zap.Float64("latency", time.Since(start).Seconds()),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
			zap.String("url", c.Request.URL.String()),
			zap.String("referer", c.Request.Referer()),
			zap.String("method", c.Request.Method),
		)
	}
}

// Recovery converts panics into 500 responses and logs them.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error(c.Request.Context(), "panic recovered", zap.Any("panic", recovered))
		c.AbortWithStatusJSON(500, gin.H{"detail": "internal server error"})
	})
}
