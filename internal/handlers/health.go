package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	apperrors "github.com/charlesng35/sprintboard/pkg/errors"
	"github.com/charlesng35/sprintboard/pkg/response"
)

// Health reports readiness, pinging the database when one is supplied.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			sqlDB, err := db.DB()
			if err == nil {
				err = sqlDB.PingContext(requestContext(c))
			}
			if err != nil {
				response.Error(c, apperrors.New("DATABASE_UNAVAILABLE", "database unavailable", http.StatusServiceUnavailable))
				return
			}
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}
