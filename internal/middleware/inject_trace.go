// Package middleware holds the gin middleware of the HTTP surface.
package middleware

import (
	"github.com/gin-gonic/gin"
	"server-identity/internal/utils"
)

// InjectTrace tags the request with a trace id, reusing a valid X-Trace-Id sent by the client.
func InjectTrace() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceId := c.GetHeader("X-Trace-Id")
		if !utils.IsTraceId(traceId) {
			traceId = utils.GenerateTraceId()
		}
		c.Set(utils.TraceIdKey.String(), traceId)
		c.Header("X-Trace-Id", traceId)
		c.Next()
	}
}
