package middleware

import (
	"time"

	"pizza-api/logger"
	"pizza-api/metrics"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestTracker counts requests per HTTP method
func RequestTracker(rec metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case "GET":
			rec.Inc(metrics.RequestsGet)
		case "POST":
			rec.Inc(metrics.RequestsPost)
		case "PUT":
			rec.Inc(metrics.RequestsPut)
		case "DELETE":
			rec.Inc(metrics.RequestsDelete)
		}
		rec.Inc(metrics.RequestsTotal)
		c.Next()
	}
}

// RequestLogger attaches a request-scoped logger to the request context and
// logs each completed request at debug level
func RequestLogger(base *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		l := base.With("request_id", requestID)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), l))

		start := time.Now()
		c.Next()
		l.Debug("Request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
