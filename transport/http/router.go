package http

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/gin-gonic/gin"

	"github.com/clawcraft/gatekeeper/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(gk *service.Gatekeeper, logger watermill.LoggerAdapter) *gin.Engine {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	handlers := NewGatekeeperHandlers(gk)

	router.GET("/health", handlers.Health)

	api := router.Group("/api")
	{
		api.GET("/verify/:username", handlers.Status)
		api.POST("/verify/start", handlers.Start)
		api.POST("/verify/complete", handlers.Complete)
		api.POST("/quick-join", handlers.QuickJoin)
		api.GET("/agents", handlers.Agents)
		api.GET("/stats", handlers.Stats)
		api.GET("/receipt/:token", handlers.Receipt)
	}

	admin := api.Group("")
	admin.Use(AdminKeyMiddleware())
	{
		admin.POST("/whitelist", handlers.AdminWhitelist)
	}

	return router
}
