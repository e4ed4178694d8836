package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"server-identity/internal/schemas"
	"server-identity/internal/utils"
)

const platformKeyHeader = "x-api-key"

// RequirePlatformKey rejects requests without the configured x-api-key. An empty key disables the check.
func RequirePlatformKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}

		if subtle.ConstantTimeCompare([]byte(c.GetHeader(platformKeyHeader)), []byte(key)) != 1 {
			utils.WriteAndLogError(c, schemas.Unauthorized, http.StatusUnauthorized, errors.New("invalid platform key"))
			return
		}
		c.Next()
	}
}

// NoStore marks every response as uncacheable.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}
