package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/sprintboard/internal/app"
	"github.com/charlesng35/sprintboard/internal/handlers"
)

func registerHealthRoutes(r *gin.Engine, db *gorm.DB, cfg *app.Config) {
	if !cfg.Monitoring.Health.Enabled {
		r.GET("/health", disabledHandler)
		return
	}
	r.GET("/health", handlers.Health(db))
}

func registerMetricsRoutes(r *gin.Engine, cfg *app.Config) {
	if !cfg.Monitoring.Prometheus.Enabled {
		return
	}
	endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
	if endpoint == "" {
		endpoint = "/metrics"
	}
	r.GET(endpoint, gin.WrapH(promhttp.Handler()))
}

func disabledHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"status":  "disabled",
	})
}
