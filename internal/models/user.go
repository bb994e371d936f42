package models

import "time"

// User is a local account able to own a personal workspace and join teams.
type User struct {
	BaseModel

	Username    string `gorm:"uniqueIndex;not null;size:64" json:"username"`
	Email       string `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Password    string `gorm:"not null" json:"-"`
	DisplayName string `gorm:"size:128" json:"display_name"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`

	Memberships []Membership `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`

	LastLoginAt *time.Time `json:"last_login_at"`
}
