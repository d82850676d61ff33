package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/enrollment-backend/internal/platform/ctxutil"
	"github.com/yungbote/enrollment-backend/internal/platform/logger"
)

// RequestLogger writes one line per request once the handler chain has run. 5xx logs at
// error and 4xx at warn. Successful requests to quiet paths (probes, scrapes) log at debug.
func RequestLogger(log *logger.Logger, quiet ...string) gin.HandlerFunc {
	log = log.With("middleware", "RequestLogger")
	quietPaths := make(map[string]bool, len(quiet))
	for _, p := range quiet {
		quietPaths[p] = true
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		emit := log.Info
		switch {
		case status >= http.StatusInternalServerError:
			emit = log.Error
		case status >= http.StatusBadRequest:
			emit = log.Warn
		case quietPaths[c.Request.URL.Path]:
			emit = log.Debug
		}
		emit("HTTP request", requestFields(c, time.Since(start))...)
	}
}

func requestFields(c *gin.Context, elapsed time.Duration) []interface{} {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	fields := []interface{}{
		"method", c.Request.Method,
		"path", route,
		"status", c.Writer.Status(),
		"duration_ms", elapsed.Milliseconds(),
		"bytes", c.Writer.Size(),
	}
	ctx := c.Request.Context()
	if td := ctxutil.GetTraceData(ctx); td != nil {
		fields = append(fields, "trace_id", td.TraceID, "request_id", td.RequestID)
	}
	if rd := ctxutil.GetRequestData(ctx); rd != nil {
		fields = append(fields, "student_id", rd.StudentID, "role", rd.Role.String())
	}
	if c.GetHeader(headerIdempotencyKey) != "" {
		fields = append(fields, "idempotent", true, "replayed", c.Writer.Header().Get(headerIdempotentReplay) == "true")
	}
	if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
		fields = append(fields, "error", errs.String())
	}
	return fields
}
