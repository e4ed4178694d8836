package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"server-identity/internal/utils"
)

func LogRequest() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		traceId, _ := ctx.Value(utils.TraceIdKey.String()).(string)
		entry := log.WithFields(log.Fields{
			"traceId": traceId,
			"service": utils.ExtractServiceName(),
		})
		utils.LogEntry(entry, "info", "Request received: "+ctx.Request.Method+" "+ctx.Request.URL.Path)

		ctx.Next()

		entry = entry.WithFields(log.Fields{
			"status":   ctx.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		utils.LogEntry(entry, "info", "Request completed with status "+strconv.Itoa(ctx.Writer.Status()))
	}
}
