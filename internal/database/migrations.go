package database

import (
	"gorm.io/gorm"

	"github.com/charlesng35/sprintboard/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
// Order matters: referenced tables come first.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.Membership{},
		&models.Sprint{},
		&models.Task{},
	)
}
