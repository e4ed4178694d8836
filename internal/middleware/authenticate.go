package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"server-identity/internal/identity"
	"server-identity/internal/managers"
	"server-identity/internal/schemas"
	"server-identity/internal/utils"
)

const bearerPrefix = "Bearer "

// IdentityResolver maps verified bearer claims to the current identity and records the
// requests made with them.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, claims map[string]interface{}) (*schemas.User, error)
	RecordAccess(ctx context.Context, entry *schemas.AccessLog) error
}

// ErrorWriter writes the error response for a failed request.
type ErrorWriter func(c *gin.Context, err error)

// Authenticate requires a valid access token whose session epoch is still current. The claims
// and the resolved user are stored under ClaimsKey and IdentityKey. Once the handler chain
// finishes, the request is added to the access log of the user.
func Authenticate(jwtMgr managers.JWTMgr, resolver IdentityResolver, writeError ErrorWriter) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			writeError(c, fmt.Errorf("%w: missing bearer token", identity.ErrUnauthorized))
			return
		}

		claims, err := jwtMgr.ValidateJWT(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			writeError(c, fmt.Errorf("%w: %w", identity.ErrUnauthorized, err))
			return
		}
		if refresh, _ := claims["refresh"].(string); refresh != "false" {
			writeError(c, fmt.Errorf("%w: refresh tokens cannot authenticate requests", identity.ErrUnauthorized))
			return
		}

		user, err := resolver.ResolveIdentity(c, claims)
		if err != nil {
			writeError(c, err)
			return
		}

		utils.LogMessageWithFields(c, "debug", "Authenticated user "+user.ID.String())
		c.Set(utils.ClaimsKey.String(), claims)
		c.Set(utils.IdentityKey.String(), user)
		c.Next()

		loginToken, _ := claims["login_token"].(string)
		entry := &schemas.AccessLog{
			UserID:     user.ID,
			LoginToken: loginToken,
			RequestID:  c.GetString(utils.TraceIdKey.String()),
			Method:     c.Request.Method,
			URL:        c.Request.URL.Path,
			StatusCode: c.Writer.Status(),
			DeviceIP:   c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
		}
		if err := resolver.RecordAccess(c, entry); err != nil {
			utils.LogMessageWithFieldsAndError(c, "warn", "Failed to record access log", err)
		}
	}
}
