package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-enrollment-api/pkg/middleware/requestid"
)

// Audit logs successful staff mutations with the acting principal.
func Audit(logger *zap.Logger, action string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		fields := []zap.Field{
			zap.String("action", action),
			zap.String("path", c.FullPath()),
			zap.String("method", c.Request.Method),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.String("ip", c.ClientIP()),
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, zap.String("resource_id", id))
		}
		if claims := ClaimsFromContext(c); claims != nil {
			fields = append(fields, zap.String("actor_id", claims.UserID), zap.String("actor_email", claims.Email))
		}
		if requestID := requestid.Value(c); requestID != "" {
			fields = append(fields, zap.String("request_id", requestID))
		}
		logger.Info("audit", fields...)
	}
}
