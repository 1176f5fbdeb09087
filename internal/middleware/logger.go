package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"videohub/internal/pkg/apperr"
	"videohub/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs one line per request and recovers panics into a 500
// INTERNAL_ERROR envelope. Errors recorded with c.Error are logged with the
// request; they never reach the client.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				log.Error("panic recovered",
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"request_id", requestID(c),
					"panic", fmt.Sprint(recovered),
					"stack", string(debug.Stack()),
				)
				response.AbortWithError(c, apperr.Internal("panic", fmt.Errorf("%v", recovered)))
			}

			status := c.Writer.Status()
			attrs := []any{
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"status", status,
				"latency", time.Since(start),
				"client_ip", c.ClientIP(),
				"user_id", UserID(c),
				"request_id", requestID(c),
			}
			if len(c.Errors) > 0 {
				attrs = append(attrs, "error", c.Errors.String())
			}

			switch {
			case status >= http.StatusInternalServerError:
				log.Error("request", attrs...)
			case status >= http.StatusBadRequest:
				log.Warn("request", attrs...)
			default:
				log.Info("request", attrs...)
			}
		}()

		c.Next()
	}
}

func requestID(c *gin.Context) string {
	id := c.GetHeader("X-Request-ID")
	if id == "" {
		id = c.GetHeader("X-Request-Id")
	}
	return id
}
