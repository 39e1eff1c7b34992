package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/richyrich98/dotanddot/internal/identity"
	"github.com/richyrich98/dotanddot/internal/ratelimit"
	"github.com/richyrich98/dotanddot/pkg/logger"
)

type WebSocketHandler interface {
	HandleWebSocket(c *gin.Context)
}

func SetupRoutes(r *gin.Engine, handler *Handler, wsHandler WebSocketHandler, rlMiddleware *ratelimit.Middleware, provider identity.Provider, log logger.Logger) {
	// Apply global middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Auth-Token"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(rlMiddleware.IPRateLimit()) // IP-based rate limiting
	r.Use(identity.Middleware(provider, log))

	// API routes
	api := r.Group("/api")
	{
		// Session routes
		auth := api.Group("/auth")
		{
			auth.POST("/session", handler.CreateSession)
			auth.DELETE("/session", handler.DeleteSession)
		}

		// Path routes
		paths := api.Group("/paths")
		{
			paths.POST("/shared", handler.SaveSharedPath)
			paths.GET("/shared/:id", handler.GetSharedPath)
			paths.POST("", handler.SaveUserPath)
			paths.GET("", handler.ListUserPaths)
			paths.PATCH("/:id", handler.UpdateUserPath)
			paths.DELETE("/:id", handler.DeleteUserPath)
			paths.POST("/:id/share", handler.ShareUserPath)
		}

		// Accuracy report routes
		reports := api.Group("/reports")
		{
			reports.POST("", handler.SubmitReport)
			reports.GET("", handler.ListReports)
			reports.GET("/stats", handler.GetReportStats)
		}

		// One-shot migration of device-cached data
		api.POST("/migrate", handler.RunMigration)

		// Health check
		api.GET("/health", handler.Health)
	}

	// Live report feed
	r.GET("/ws/reports", wsHandler.HandleWebSocket)
}
