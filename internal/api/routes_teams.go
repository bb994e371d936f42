package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/sprintboard/internal/handlers"
	"github.com/charlesng35/sprintboard/internal/notifications"
)

func registerTeamRoutes(api *gin.RouterGroup, db *gorm.DB, notifier notifications.Notifier) error {
	teamHandler, err := handlers.NewTeamHandler(db, notifier)
	if err != nil {
		return err
	}

	teams := api.Group("/teams")
	{
		teams.GET("", teamHandler.List)
		teams.POST("", teamHandler.Create)
		teams.GET("/:id/members", teamHandler.ListMembers)
		teams.POST("/:id/members", teamHandler.AddMember)
		teams.DELETE("/:id/members/:userID", teamHandler.RemoveMember)
	}
	return nil
}
