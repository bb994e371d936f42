package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/sprintboard/internal/handlers"
)

func registerWorkspaceRoutes(api *gin.RouterGroup, db *gorm.DB) error {
	handler, err := handlers.NewWorkspaceHandler(db)
	if err != nil {
		return err
	}
	api.GET("/workspace", handler.Resolve)
	return nil
}
