package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/charlesng35/sprintboard/internal/auth"
	"github.com/charlesng35/sprintboard/internal/handlers"
)

func registerAuthRoutes(public, protected *gin.RouterGroup, db *gorm.DB, jwt *iauth.JWTService) error {
	handler, err := handlers.NewAuthHandler(db, jwt)
	if err != nil {
		return err
	}

	auth := public.Group("/auth")
	{
		auth.POST("/register", handler.Register)
		auth.POST("/login", handler.Login)
	}
	protected.GET("/auth/me", handler.Me)
	return nil
}
