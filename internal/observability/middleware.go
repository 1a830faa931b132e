package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RequestObserver logs every request and records its metrics. Handlers may
// set "chunk_type" and "error_kind" on the context to enrich the log line.
func RequestObserver(logger zerolog.Logger, node string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		RecordHTTPRequest(node, c.Request.Method, path, status, elapsed)

		event := logger.Info()
		if status >= 500 {
			event = logger.Error()
		} else if status >= 400 {
			event = logger.Warn()
		}
		if v := c.GetString("chunk_type"); v != "" {
			event = event.Str("chunk_type", v)
		}
		if v := c.GetString("error_kind"); v != "" {
			event = event.Str("error_kind", v)
		}
		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("duration", elapsed).
			Int64("request_bytes", c.Request.ContentLength).
			Int("bytes", c.Writer.Size()).
			Msg("http_request")
	}
}
