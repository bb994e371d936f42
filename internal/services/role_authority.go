package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/sprintboard/internal/models"
	"github.com/charlesng35/sprintboard/pkg/metrics"
)

// Capability names an action guarded by the role authority.
type Capability string

const (
	CapabilityView          Capability = "view"
	CapabilityEditTasks     Capability = "tasks.edit"
	CapabilityDeleteTasks   Capability = "tasks.delete"
	CapabilityManageSprints Capability = "sprints.manage"
	CapabilityManageMembers Capability = "members.manage"
)

// Capabilities lists every guarded action.
var Capabilities = []Capability{
	CapabilityView,
	CapabilityEditTasks,
	CapabilityDeleteTasks,
	CapabilityManageSprints,
	CapabilityManageMembers,
}

// PermittedFor reports whether role carries the capability.
func (c Capability) PermittedFor(role models.TeamRole) bool {
	if !role.Valid() {
		return false
	}
	switch c {
	case CapabilityView, CapabilityEditTasks:
		return true
	case CapabilityDeleteTasks:
		return role.CanDeleteTask()
	case CapabilityManageSprints:
		return role.CanManageSprints()
	case CapabilityManageMembers:
		return role.CanManageMembers()
	default:
		return false
	}
}

// Decision is the typed outcome of a successful authorization.
type Decision struct {
	Workspace  Workspace
	Role       models.TeamRole
	Capability Capability
}

// RoleAuthority derives a user's role in a workspace from membership rows.
type RoleAuthority struct {
	db *gorm.DB
}

// NewRoleAuthority constructs a RoleAuthority.
func NewRoleAuthority(db *gorm.DB) (*RoleAuthority, error) {
	if db == nil {
		return nil, errors.New("role authority: db is required")
	}
	return &RoleAuthority{db: db}, nil
}

// RoleOf returns the role userID holds in ws. The owner of a personal workspace
// is always OWNER; anyone else, and any team non-member, gets ErrAccessDenied.
func (a *RoleAuthority) RoleOf(ctx context.Context, userID string, ws Workspace) (models.TeamRole, error) {
	ctx = ensureContext(ctx)
	return roleOf(a.db.WithContext(ctx), userID, ws)
}

// Authorize resolves the role and checks it against the capability.
func (a *RoleAuthority) Authorize(ctx context.Context, userID string, ws Workspace, capability Capability) (Decision, error) {
	ctx = ensureContext(ctx)

	role, err := a.RoleOf(ctx, userID, ws)
	if err != nil {
		if errors.Is(err, ErrAccessDenied) {
			metrics.RoleDecisions.WithLabelValues(string(capability), "denied").Inc()
		}
		return Decision{}, err
	}

	if !capability.PermittedFor(role) {
		metrics.RoleDecisions.WithLabelValues(string(capability), "denied").Inc()
		return Decision{}, ErrAccessDenied
	}

	metrics.RoleDecisions.WithLabelValues(string(capability), "granted").Inc()
	return Decision{Workspace: ws, Role: role, Capability: capability}, nil
}

func roleOf(db *gorm.DB, userID string, ws Workspace) (models.TeamRole, error) {
	if userID == "" {
		return "", ErrAccessDenied
	}

	if !ws.IsTeam() {
		if ws.OwnerID == userID {
			return models.TeamRoleOwner, nil
		}
		return "", ErrAccessDenied
	}

	var membership models.Membership
	err := db.Select("role").
		Where("team_id = ? AND user_id = ?", ws.TeamID, userID).
		Take(&membership).Error
	if isNotFound(err) {
		return "", ErrAccessDenied
	}
	if err != nil {
		return "", fmt.Errorf("role authority: load membership: %w", err)
	}
	if !membership.Role.Valid() {
		return "", ErrAccessDenied
	}
	return membership.Role, nil
}
