package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/sprintboard/internal/handlers"
	"github.com/charlesng35/sprintboard/internal/notifications"
)

func registerTaskRoutes(api *gin.RouterGroup, db *gorm.DB, notifier notifications.Notifier) error {
	handler, err := handlers.NewTaskHandler(db, notifier)
	if err != nil {
		return err
	}

	tasks := api.Group("/tasks")
	{
		tasks.POST("", handler.Create)
		tasks.GET("/:id", handler.Get)
		tasks.PATCH("/:id", handler.Update)
		tasks.DELETE("/:id", handler.Delete)
		tasks.POST("/:id/move", handler.Move)
		tasks.POST("/:id/status", handler.UpdateStatus)
	}
	return nil
}
