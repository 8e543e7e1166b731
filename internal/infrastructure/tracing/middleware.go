package tracing

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/loomworks/worldloom/backend/internal/infrastructure/logging"
)

// HeaderRequestID is the header carrying the request identifier. An
// incoming value is honored so the frontend can correlate its own logs.
const HeaderRequestID = "X-Request-ID"

const contextKey = "request_id"

// Middleware assigns every request an id, echoes it in the response and
// logs the request outcome with it attached.
func Middleware(log *logging.Logger) gin.HandlerFunc {
	reqLog := log.Named("request")

	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(contextKey, requestID)
		c.Header(HeaderRequestID, requestID)

		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		}
		if status := c.Writer.Status(); status >= 500 {
			reqLog.Error("request failed", fields...)
		} else if status >= 400 {
			reqLog.Warn("request rejected", fields...)
		} else {
			reqLog.Debug("request served", fields...)
		}
	}
}

// RequestID extracts the request id set by Middleware
func RequestID(c *gin.Context) string {
	id, _ := c.Get(contextKey)
	s, _ := id.(string)
	return s
}
