package models

import "strings"

// TeamRole is the role a member holds inside a team.
type TeamRole string

const (
	TeamRoleOwner  TeamRole = "OWNER"
	TeamRoleAdmin  TeamRole = "ADMIN"
	TeamRoleMember TeamRole = "MEMBER"
)

// ParseTeamRole normalises a role name, reporting false for unknown values.
func ParseTeamRole(value string) (TeamRole, bool) {
	role := TeamRole(strings.ToUpper(strings.TrimSpace(value)))
	switch role {
	case TeamRoleOwner, TeamRoleAdmin, TeamRoleMember:
		return role, true
	default:
		return "", false
	}
}

// Valid reports whether r is one of the known roles.
func (r TeamRole) Valid() bool {
	_, ok := ParseTeamRole(string(r))
	return ok
}

func (r TeamRole) elevated() bool {
	return r == TeamRoleOwner || r == TeamRoleAdmin
}

// CanManageSprints reports whether the role may create, edit, activate, complete or delete sprints.
func (r TeamRole) CanManageSprints() bool { return r.elevated() }

// CanDeleteTask reports whether the role may delete any task in the workspace.
func (r TeamRole) CanDeleteTask() bool { return r.elevated() }

// CanManageMembers reports whether the role may add or remove team members.
func (r TeamRole) CanManageMembers() bool { return r.elevated() }

// Team owns a shared workspace; access is granted through memberships.
type Team struct {
	BaseModel

	Name        string `gorm:"not null;size:128" json:"name"`
	Description string `json:"description"`

	Memberships []Membership `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
}
