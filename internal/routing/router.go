// Package routing builds the gin engine and its route table.
package routing

import (
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"server-identity/internal/config"
	"server-identity/internal/handlers"
	"server-identity/internal/identity"
	"server-identity/internal/managers"
	"server-identity/internal/middleware"
	"server-identity/internal/schemas"
	"server-identity/internal/utils"
)

// InitRouter creates the engine. databaseMgr may be nil when the service runs on the memory store.
func InitRouter(cfg *config.Config, databaseMgr managers.DatabaseMgr, jwtMgr managers.JWTMgr, identityService *identity.Service) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router with recovery middleware
	router := gin.New()
	router.ContextWithFallback = true
	// Initialize middleware
	setupCommonMiddleware(router, cfg)
	// Setup routes
	setupRoutes(router, cfg, databaseMgr, jwtMgr, identityService)

	return router
}

func setupCommonMiddleware(router *gin.Engine, cfg *config.Config) {
	router.Use(gin.Recovery())
	router.Use(middleware.InjectTrace())
	allowOrigins := []string{"http://localhost:5173", "http://localhost:19000"}
	if cfg.FrontendURL != "" && !slices.Contains(allowOrigins, cfg.FrontendURL) {
		allowOrigins = append(allowOrigins, cfg.FrontendURL)
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:  allowOrigins,
		AllowMethods:  []string{"GET", "PATCH", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Accept", "Authorization", "Content-Type", "x-api-key", "X-Trace-Id"},
		ExposeHeaders: []string{"Content-Length", "Content-Type", "X-Trace-Id"},
		MaxAge:        12 * time.Hour,
	}))
	router.Use(middleware.NoStore())
	router.Use(middleware.SanitizePath())
	router.Use(middleware.LogRequest())
}

func setupRoutes(router *gin.Engine, cfg *config.Config, databaseMgr managers.DatabaseMgr, jwtMgr managers.JWTMgr, identityService *identity.Service) {
	// Set up version route
	router.GET("/", func(c *gin.Context) {
		apiVersion := os.Getenv("PR_NUMBER")
		if apiVersion == "" {
			apiVersion = "main:latest"
		} else {
			apiVersion = "PR-" + apiVersion
		}
		metadata := &schemas.MetadataDTO{
			ApiVersion: apiVersion,
			ApiName:    "Server Identity",
		}
		utils.WriteAndLogResponse(c, metadata, http.StatusOK)
	})

	// Set up health route
	router.GET("/health", func(c *gin.Context) {
		if databaseMgr != nil {
			if err := databaseMgr.Healthy(c); err != nil {
				utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusServiceUnavailable, err)
				return
			}
		}
		c.Status(http.StatusOK)
	})

	// Set up API routes
	apiRouter := router.Group("/api")
	apiRouter.Use(middleware.RequirePlatformKey(cfg.PlatformKey))
	{
		// Set up user routes
		userRouter := apiRouter.Group("/users")
		userHdl := handlers.NewUserHandler(identityService)
		authenticate := middleware.Authenticate(jwtMgr, identityService, handlers.WriteIdentityError)
		userRoutes(userRouter, userHdl, authenticate)
	}
}

func userRoutes(userRouter *gin.RouterGroup, userHdl handlers.UserHdl, authenticate gin.HandlerFunc) {
	userRouter.POST("/", middleware.ValidateAndSanitizeStruct(&schemas.RegistrationRequest{}), userHdl.RegisterUser)
	userRouter.POST("/login", middleware.ValidateAndSanitizeStruct(&schemas.LoginRequest{}), userHdl.LoginUser)
	userRouter.POST("/refresh", middleware.ValidateAndSanitizeStruct(&schemas.RefreshTokenRequest{}), userHdl.RefreshToken)
	userRouter.POST("/verify-email", middleware.ValidateAndSanitizeStruct(&schemas.TokenRequest{}), userHdl.VerifyEmail)
	userRouter.POST("/verify-email/resend", middleware.ValidateAndSanitizeStruct(&schemas.EmailRequest{}), userHdl.ResendVerificationMail)
	userRouter.POST("/password-reset", middleware.ValidateAndSanitizeStruct(&schemas.EmailRequest{}), userHdl.InitiatePasswordReset)
	userRouter.POST("/password-reset/complete", middleware.ValidateAndSanitizeStruct(&schemas.CompletePasswordResetRequest{}), userHdl.CompletePasswordReset)
	userRouter.POST("/email-change/complete", middleware.ValidateAndSanitizeStruct(&schemas.TokenRequest{}), userHdl.CompleteEmailChange)
	// The following routes require the user to be authenticated
	userRouter.Use(authenticate)
	userRouter.GET("/me", userHdl.GetProfile)
	userRouter.PATCH("/me", middleware.ValidateAndSanitizeStruct(&schemas.UpdateProfileRequest{}), userHdl.UpdateProfile)
	userRouter.PATCH("/password", middleware.ValidateAndSanitizeStruct(&schemas.ChangePasswordRequest{}), userHdl.ChangePassword)
	userRouter.POST("/logout", userHdl.Logout)
	userRouter.POST("/email-change", middleware.ValidateAndSanitizeStruct(&schemas.EmailChangeRequest{}), userHdl.InitiateEmailChange)
	userRouter.DELETE("/me", userHdl.DeleteAccount)
}
