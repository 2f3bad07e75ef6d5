package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/modulrent/site-backend/internal/config"
	"github.com/modulrent/site-backend/internal/handler"
	"github.com/modulrent/site-backend/internal/middleware"
	"github.com/modulrent/site-backend/internal/model"
	"github.com/modulrent/site-backend/internal/response"
	"github.com/rs/zerolog"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	AdminUser *handler.AdminUserHandler
	Health    *handler.HealthHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// The route gate runs on every request, including unmatched ones, so admin
// paths without a handler still require a session.
func SetupRouter(
	handlers *Handlers,
	gate *middleware.RouteGate,
	limiter *middleware.RateLimiter,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// Cookies are sent cross-origin only to an explicit allow-list.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Brotli())
	router.Use(gate.Middleware())

	router.GET("/health", handlers.Health.Health)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(middleware.NoStore())
	{
		// Only the credential-checking endpoints are throttled.
		auth.POST("/login", limiter.Middleware(), handlers.Auth.Login)
		auth.POST("/setup", limiter.Middleware(), handlers.Auth.Setup)
		auth.POST("/logout", handlers.Auth.Logout)
		auth.GET("/verify", handlers.Auth.Verify)
	}

	// ─── 2. Admin Group (Gated) ────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.NoStore())
	{
		adminAPI.GET("/me", handlers.AdminUser.Me)
		adminAPI.PUT("/me/password", handlers.AdminUser.ChangePassword)
		adminAPI.GET("/roles", handlers.AdminUser.GetRoles)

		// Admin user management
		users := adminAPI.Group("/users", middleware.RequireRole(model.RoleAdmin))
		{
			users.GET("", handlers.AdminUser.ListAdmins)
			users.POST("", handlers.AdminUser.CreateAdmin)
			users.PUT("/:id/role", handlers.AdminUser.UpdateRole)
			users.PUT("/:id/active", handlers.AdminUser.UpdateActive)
			users.DELETE("/:id/sessions", handlers.AdminUser.RevokeSessions)
		}
	}

	return router
}
