package models

import (
	"time"

	"gorm.io/datatypes"
)

// Sprint is a time-boxed iteration inside one workspace. At most one sprint per
// workspace is active; ActiveKey mirrors WorkspaceKey while active and is NULL
// otherwise, so the unique index rejects a second active sprint.
type Sprint struct {
	BaseModel

	Name      string         `gorm:"not null;size:200" json:"name"`
	Goal      string         `json:"goal"`
	StartDate datatypes.Date `gorm:"not null" json:"start_date"`
	EndDate   datatypes.Date `gorm:"not null" json:"end_date"`

	IsActive    bool       `gorm:"not null;default:false;index" json:"is_active"`
	ActivatedAt *time.Time `json:"activated_at"`
	ActiveKey   *string    `gorm:"size:80;uniqueIndex" json:"-"`

	WorkspaceKey string  `gorm:"size:80;not null;index" json:"-"`
	TeamID       *string `gorm:"size:36;index" json:"team_id"`
	Team         *Team   `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedByID  string  `gorm:"size:36;not null;index" json:"created_by_id"`
	CreatedBy    *User   `gorm:"foreignKey:CreatedByID" json:"-"`
}

// Completed reports whether the sprint ran at least once and is no longer active.
func (s *Sprint) Completed() bool {
	return s != nil && !s.IsActive && s.ActivatedAt != nil
}

// State returns the lifecycle label used for reporting.
func (s *Sprint) State() string {
	switch {
	case s == nil:
		return ""
	case s.IsActive:
		return "active"
	case s.ActivatedAt != nil:
		return "completed"
	default:
		return "draft"
	}
}
