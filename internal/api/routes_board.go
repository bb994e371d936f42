package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/sprintboard/internal/handlers"
)

func registerBoardRoutes(api *gin.RouterGroup, db *gorm.DB) error {
	handler, err := handlers.NewBoardHandler(db)
	if err != nil {
		return err
	}
	api.GET("/board", handler.Get)
	return nil
}
