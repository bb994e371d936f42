package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/sprintboard/internal/api"
	"github.com/charlesng35/sprintboard/internal/app"
	"github.com/charlesng35/sprintboard/internal/app/maintenance"
	iauth "github.com/charlesng35/sprintboard/internal/auth"
	"github.com/charlesng35/sprintboard/internal/database"
	"github.com/charlesng35/sprintboard/internal/notifications"
	"github.com/charlesng35/sprintboard/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB         *gorm.DB
	JWT        *iauth.JWTService
	Dispatcher *notifications.Dispatcher
	Stats      *maintenance.StatsJob
	Router     *gin.Engine
}

// bootstrapRuntime initialises the database, services, background jobs and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	stack.JWT, err = iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	stack.Dispatcher = notifications.NewDispatcher(
		notifications.LogListener(logger.WithModule("events")),
		notifications.MetricsListener(),
	)

	if cfg.Maintenance.Enabled {
		stack.Stats = maintenance.NewStatsJob(stack.DB, maintenance.WithSchedule(cfg.Maintenance.StatsSchedule))
		if _, err := stack.Stats.RunOnce(ctx); err != nil {
			log.Warn("initial board stats refresh failed", zap.Error(err))
		}
		if err := stack.Stats.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(stack.DB, stack.JWT, cfg, stack.Dispatcher)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Stats != nil {
		stopCtx := s.Stats.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
			log.Warn("maintenance jobs did not stop in time")
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.Connection()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", db.Dialector.Name()))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
