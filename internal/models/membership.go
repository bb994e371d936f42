package models

// Membership links a user to a team with a role. A user appears at most once per team.
type Membership struct {
	BaseModel

	TeamID string   `gorm:"size:36;not null;uniqueIndex:idx_membership_team_user" json:"team_id"`
	UserID string   `gorm:"size:36;not null;uniqueIndex:idx_membership_team_user;index" json:"user_id"`
	Role   TeamRole `gorm:"size:16;not null" json:"role"`

	Team *Team `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName keeps the join table name explicit.
func (Membership) TableName() string {
	return "team_memberships"
}
