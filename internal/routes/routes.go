package routes

import (
	"github.com/flightchat/backend/internal/chat"
	"github.com/flightchat/backend/internal/controllers"

	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all application routes.
func SetupRoutes(r *gin.Engine, service *chat.Service) {
	chatController := controllers.NewChatController(service)
	telemetryController := controllers.NewTelemetryController(service)

	api := r.Group("/api/v1")
	{
		logs := api.Group("/logs")
		{
			logs.POST("/upload", telemetryController.UploadFlightLog)
			logs.GET("/:id/summary", telemetryController.GetSummary)
			logs.DELETE("/:id", telemetryController.DeleteFlightLog)
		}

		api.POST("/chat", chatController.Ask)
	}
}
