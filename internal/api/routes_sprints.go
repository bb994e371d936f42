package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/sprintboard/internal/handlers"
	"github.com/charlesng35/sprintboard/internal/notifications"
)

func registerSprintRoutes(api *gin.RouterGroup, db *gorm.DB, notifier notifications.Notifier) error {
	handler, err := handlers.NewSprintHandler(db, notifier)
	if err != nil {
		return err
	}

	sprints := api.Group("/sprints")
	{
		sprints.GET("", handler.List)
		sprints.POST("", handler.Create)
		sprints.GET("/:id", handler.Get)
		sprints.PATCH("/:id", handler.Update)
		sprints.DELETE("/:id", handler.Delete)
		sprints.POST("/:id/activate", handler.Activate)
		sprints.POST("/:id/complete", handler.Complete)
	}
	return nil
}
