package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rabot-service/rabot_service/internal/api/handlers"
	"github.com/rabot-service/rabot_service/internal/api/middleware"
	"github.com/rabot-service/rabot_service/internal/infrastructure/config"
	"github.com/rabot-service/rabot_service/pkg/logger"
)

// Handlers bundles the handler instances the router wires up
type Handlers struct {
	Bots     *handlers.BotHandlers
	Webhooks *handlers.WebhookHandlers
	Health   *handlers.HealthHandlers
}

// SetupRoutes configures all application routes
func SetupRoutes(cfg *config.Config, h *Handlers, log *logger.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.RequestSizeLimit())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	router.GET("/health", h.Health.Health)
	router.GET("/ready", h.Health.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		webhooks := v1.Group("/webhooks")
		{
			webhooks.POST("/transfers", h.Webhooks.HandleTransfer)
		}

		userBots := v1.Group("/user-bots")
		{
			userBots.POST("", h.Bots.Create)
			userBots.GET("/:id", h.Bots.Get)
			userBots.GET("/users/:userId", h.Bots.ListByUser)
			userBots.POST("/:id/withdraw", h.Bots.Withdraw)
			userBots.GET("/:id/staked-balance", h.Bots.StakedBalance)
			userBots.GET("/:id/transactions", h.Bots.Transactions)
		}
	}

	return router
}
