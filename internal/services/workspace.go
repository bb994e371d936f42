package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/sprintboard/internal/models"
	apperrors "github.com/charlesng35/sprintboard/pkg/errors"
)

// WorkspaceKind distinguishes personal from team scopes.
type WorkspaceKind string

const (
	WorkspacePersonal WorkspaceKind = "personal"
	WorkspaceTeam     WorkspaceKind = "team"
)

// Workspace is the scope every sprint and task belongs to: either a user's
// personal area or a team. It is derived, never stored on its own.
type Workspace struct {
	Kind    WorkspaceKind `json:"kind"`
	OwnerID string        `json:"owner_id,omitempty"`
	TeamID  string        `json:"team_id,omitempty"`
}

// PersonalWorkspace returns the personal scope of userID.
func PersonalWorkspace(userID string) Workspace {
	return Workspace{Kind: WorkspacePersonal, OwnerID: userID}
}

// TeamWorkspace returns the shared scope of teamID.
func TeamWorkspace(teamID string) Workspace {
	return Workspace{Kind: WorkspaceTeam, TeamID: teamID}
}

// IsTeam reports whether the workspace belongs to a team.
func (w Workspace) IsTeam() bool {
	return w.Kind == WorkspaceTeam
}

// Key is the value persisted in workspace_key columns.
func (w Workspace) Key() string {
	if w.IsTeam() {
		return "team:" + w.TeamID
	}
	return "user:" + w.OwnerID
}

func (w Workspace) String() string {
	return w.Key()
}

// Scope applies the mandatory workspace filter to a query.
func (w Workspace) Scope(db *gorm.DB) *gorm.DB {
	return db.Where("workspace_key = ?", w.Key())
}

func (w Workspace) teamIDPtr() *string {
	if !w.IsTeam() {
		return nil
	}
	return stringPtr(w.TeamID)
}

func workspaceOf(teamID *string, createdByID string) Workspace {
	if teamID != nil && *teamID != "" {
		return TeamWorkspace(*teamID)
	}
	return PersonalWorkspace(createdByID)
}

func sprintWorkspace(sprint *models.Sprint) Workspace {
	return workspaceOf(sprint.TeamID, sprint.CreatedByID)
}

func taskWorkspace(task *models.Task) Workspace {
	return workspaceOf(task.TeamID, task.CreatedByID)
}

// WorkspaceResolver turns a request's optional team selector into a workspace.
type WorkspaceResolver struct {
	db *gorm.DB
}

// NewWorkspaceResolver constructs a WorkspaceResolver.
func NewWorkspaceResolver(db *gorm.DB) (*WorkspaceResolver, error) {
	if db == nil {
		return nil, errors.New("workspace resolver: db is required")
	}
	return &WorkspaceResolver{db: db}, nil
}

// Resolve returns the team workspace when teamID is set and the user belongs to
// that team, otherwise the user's personal workspace. Unknown teams and teams
// the user is not part of both yield ErrAccessDenied.
func (r *WorkspaceResolver) Resolve(ctx context.Context, userID, teamID string) (Workspace, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Workspace{}, apperrors.ErrUnauthorized
	}

	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return PersonalWorkspace(userID), nil
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Count(&count).Error
	if err != nil {
		return Workspace{}, fmt.Errorf("workspace resolver: load membership: %w", err)
	}
	if count == 0 {
		return Workspace{}, ErrAccessDenied
	}

	return TeamWorkspace(teamID), nil
}
