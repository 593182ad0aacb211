package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/settlebot/backend/internal/application/services"
	"github.com/settlebot/backend/internal/config"
	"github.com/settlebot/backend/internal/domain/flow"
	"github.com/settlebot/backend/internal/interfaces/middleware"
)

// NewRouter assembles the gin engine with all routes and middleware.
func NewRouter(cfg *config.Config, reg *flow.Registry, scheduler *services.SchedulerService, advancer *services.Advancer, cleanup *services.CleanupService) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().In(cfg.Location).Format(time.RFC3339),
		})
	})

	cronHandler := NewCronHandler(scheduler, cfg)
	remindHandler := NewRemindHandler(scheduler, reg)
	interactionHandler := NewInteractionHandler(advancer)
	cleanupHandler := NewCleanupHandler(cleanup, cfg)

	api := router.Group("/api")
	{
		cronGroup := api.Group("/cron", middleware.RequireCronSecret(cfg.CronSecret))
		{
			cronGroup.POST("/daily", cronHandler.RunDaily)
		}

		api.POST("/remind", middleware.RequireCronSecret(cfg.CronSecret), remindHandler.Remind)
		api.POST("/admin/cleanup", middleware.RequireCronSecret(cfg.CronSecret), cleanupHandler.Cleanup)

		api.POST("/slack/interactions", middleware.VerifySlackSignature(cfg.SlackSigningSecret), interactionHandler.Handle)
	}

	return router
}
