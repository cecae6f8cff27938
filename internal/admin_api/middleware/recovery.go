package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// Recovery turns a panic in an admin operation into a 500. Engine writes run in a single
// transaction that the panic rolls back, so the operator can retry. If the handler already
// started the response, the connection is only aborted.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			attrs := []any{
				"error", r,
				"stack", string(debug.Stack()),
				"method", c.Request.Method,
				"route", c.FullPath(),
				"path", c.Request.URL.Path,
			}
			correlationID := GetCorrelationID(c)
			if correlationID != "" {
				attrs = append(attrs, "correlation_id", correlationID)
			}
			if actorID := GetActorID(c); actorID != nil {
				attrs = append(attrs, "actor_id", *actorID)
			}
			logger.Error("Panic recovered in admin operation", attrs...)

			if c.Writer.Written() {
				c.Abort()
				return
			}

			response := gin.H{
				"error": gin.H{
					"code":    "INTERNAL_SERVER_ERROR",
					"message": "The operation failed unexpectedly and was rolled back; it is safe to retry",
				},
			}
			if correlationID != "" {
				response["correlation_id"] = correlationID
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, response)
		}()

		c.Next()
	}
}
