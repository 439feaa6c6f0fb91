package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"gwin/pkg/logger"
)

// Logger puts log in the request context, so that logger.Error and friends
// use it, and writes one access line per request. Server errors are logged
// at error level and rejected requests at warn level.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(logger.WithLogger(c.Request.Context(), log))

		c.Next()

		status := c.Writer.Status()
		l := log.WithContext(c.Request.Context())
		fields := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if name := c.Param("entity"); name != "" {
			fields = append(fields, "entity", name)
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, "id", id)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.Last().Error())
		}

		switch {
		case status >= 500:
			l.Errorw("http request", fields...)
		case status >= 400:
			l.Warnw("http request", fields...)
		default:
			l.Infow("http request", fields...)
		}
	}
}
