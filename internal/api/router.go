package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/sprintboard/internal/app"
	iauth "github.com/charlesng35/sprintboard/internal/auth"
	"github.com/charlesng35/sprintboard/internal/middleware"
	"github.com/charlesng35/sprintboard/internal/notifications"
)

// NewRouter builds the Gin engine, wires middleware and registers the board routes.
// notifier receives mutation events after commit and may be nil.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, notifier notifications.Notifier) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	registerHealthRoutes(r, db, cfg)
	registerMetricsRoutes(r, cfg)

	public := r.Group("/api")
	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))

	if err := registerAuthRoutes(public, api, db, jwt); err != nil {
		return nil, err
	}
	if err := registerWorkspaceRoutes(api, db); err != nil {
		return nil, err
	}
	if err := registerTeamRoutes(api, db, notifier); err != nil {
		return nil, err
	}
	if err := registerSprintRoutes(api, db, notifier); err != nil {
		return nil, err
	}
	if err := registerTaskRoutes(api, db, notifier); err != nil {
		return nil, err
	}
	if err := registerBoardRoutes(api, db); err != nil {
		return nil, err
	}

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
