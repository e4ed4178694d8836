package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"server-identity/internal/utils"
)

// SanitizePath strips markup from the request path seen by handlers and loggers.
func SanitizePath() gin.HandlerFunc {
	policy := bluemonday.StrictPolicy()
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if sanitized := policy.Sanitize(path); sanitized != path {
			utils.LogMessageWithFields(c, "warn", "Rewrote request path containing markup")
			c.Request.URL.Path = sanitized
			c.Request.URL.RawPath = ""
		}
		c.Next()
	}
}
