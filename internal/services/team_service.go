package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/sprintboard/internal/models"
	"github.com/charlesng35/sprintboard/internal/notifications"
	apperrors "github.com/charlesng35/sprintboard/pkg/errors"
	"github.com/charlesng35/sprintboard/pkg/logger"
)

// CreateTeamInput captures new team metadata.
type CreateTeamInput struct {
	Name        string
	Description string
}

// AddMemberInput identifies the user to add by id or username. Role defaults to MEMBER.
type AddMemberInput struct {
	UserID   string
	Username string
	Role     string
}

// TeamSummary is a team together with the caller's role in it.
type TeamSummary struct {
	Team models.Team     `json:"team"`
	Role models.TeamRole `json:"role"`
}

// TeamService handles team creation and membership management.
type TeamService struct {
	db        *gorm.DB
	authority *RoleAuthority
	notifier  notifications.Notifier
	log       *zap.Logger
}

// NewTeamService constructs a TeamService. notifier may be nil.
func NewTeamService(db *gorm.DB, authority *RoleAuthority, notifier notifications.Notifier) (*TeamService, error) {
	if db == nil {
		return nil, errors.New("team service: db is required")
	}
	if authority == nil {
		return nil, errors.New("team service: role authority is required")
	}
	return &TeamService{
		db:        db,
		authority: authority,
		notifier:  notifier,
		log:       logger.WithModule("teams"),
	}, nil
}

// Create registers a new team; the creator becomes its OWNER.
func (s *TeamService) Create(ctx context.Context, actorID string, input CreateTeamInput) (*models.Team, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidation("name", "team name is required")
	}
	if strings.TrimSpace(actorID) == "" {
		return nil, apperrors.ErrUnauthorized
	}

	team := &models.Team{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return fmt.Errorf("team service: create team: %w", err)
		}
		owner := &models.Membership{TeamID: team.ID, UserID: actorID, Role: models.TeamRoleOwner}
		if err := tx.Create(owner).Error; err != nil {
			return fmt.Errorf("team service: add owner: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("team created", zap.String("team_id", team.ID), zap.String("owner_id", actorID))
	notify(ctx, s.notifier, notifications.Event{
		Type:       notifications.EventTeamCreated,
		Workspace:  TeamWorkspace(team.ID).Key(),
		ActorID:    actorID,
		ResourceID: team.ID,
		Metadata:   map[string]any{"name": team.Name},
	})

	return team, nil
}

// ListForUser returns every team userID belongs to, with the role held there.
func (s *TeamService) ListForUser(ctx context.Context, userID string) ([]TeamSummary, error) {
	ctx = ensureContext(ctx)

	var memberships []models.Membership
	err := s.db.WithContext(ctx).
		Preload("Team").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&memberships).Error
	if err != nil {
		return nil, fmt.Errorf("team service: list teams: %w", err)
	}

	out := make([]TeamSummary, 0, len(memberships))
	for _, m := range memberships {
		if m.Team == nil {
			continue
		}
		out = append(out, TeamSummary{Team: *m.Team, Role: m.Role})
	}
	return out, nil
}

// ListMembers returns the memberships of a team. Only members may list.
func (s *TeamService) ListMembers(ctx context.Context, actorID, teamID string) ([]models.Membership, error) {
	ctx = ensureContext(ctx)

	ws := TeamWorkspace(strings.TrimSpace(teamID))
	if _, err := s.authority.Authorize(ctx, actorID, ws, CapabilityView); err != nil {
		return nil, err
	}

	var members []models.Membership
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("team_id = ?", ws.TeamID).
		Order("created_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("team service: list members: %w", err)
	}
	return members, nil
}

// AddMember grants a user a role in the team. Only an OWNER may grant OWNER.
func (s *TeamService) AddMember(ctx context.Context, actorID, teamID string, input AddMemberInput) (*models.Membership, error) {
	ctx = ensureContext(ctx)

	ws := TeamWorkspace(strings.TrimSpace(teamID))
	decision, err := s.authority.Authorize(ctx, actorID, ws, CapabilityManageMembers)
	if err != nil {
		return nil, err
	}

	role := models.TeamRoleMember
	if strings.TrimSpace(input.Role) != "" {
		parsed, ok := models.ParseTeamRole(input.Role)
		if !ok {
			return nil, apperrors.NewValidation("role", "role must be one of OWNER, ADMIN, MEMBER")
		}
		role = parsed
	}
	if role == models.TeamRoleOwner && decision.Role != models.TeamRoleOwner {
		return nil, ErrAccessDenied
	}

	user, err := s.findUser(ctx, input)
	if err != nil {
		return nil, err
	}

	membership := &models.Membership{TeamID: ws.TeamID, UserID: user.ID, Role: role}
	if err := s.db.WithContext(ctx).Create(membership).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrTeamMemberAlreadyExists
		}
		return nil, fmt.Errorf("team service: add member: %w", err)
	}
	membership.User = user

	notify(ctx, s.notifier, notifications.Event{
		Type:       notifications.EventMemberAdded,
		Workspace:  ws.Key(),
		ActorID:    actorID,
		ResourceID: user.ID,
		Metadata:   map[string]any{"role": string(role)},
	})

	return membership, nil
}

// RemoveMember revokes a membership and unassigns the user's tasks in the team.
// Members cannot remove themselves and only an OWNER may remove another OWNER.
func (s *TeamService) RemoveMember(ctx context.Context, actorID, teamID, userID string) error {
	ctx = ensureContext(ctx)

	ws := TeamWorkspace(strings.TrimSpace(teamID))
	userID = strings.TrimSpace(userID)

	actorRole, err := s.authority.RoleOf(ctx, actorID, ws)
	if err != nil {
		return err
	}
	if userID == actorID {
		return ErrSelfRemovalDenied
	}
	if _, err := s.authority.Authorize(ctx, actorID, ws, CapabilityManageMembers); err != nil {
		return err
	}

	var target models.Membership
	err = s.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", ws.TeamID, userID).
		Take(&target).Error
	if isNotFound(err) {
		return ErrTeamMemberNotFound
	}
	if err != nil {
		return fmt.Errorf("team service: load membership: %w", err)
	}
	if target.Role == models.TeamRoleOwner && actorRole != models.TeamRoleOwner {
		return ErrAccessDenied
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Membership{}, "id = ?", target.ID).Error; err != nil {
			return fmt.Errorf("team service: remove member: %w", err)
		}
		if err := ws.Scope(tx.Model(&models.Task{})).
			Where("assignee_id = ?", userID).
			Update("assignee_id", nil).Error; err != nil {
			return fmt.Errorf("team service: unassign tasks: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	notify(ctx, s.notifier, notifications.Event{
		Type:       notifications.EventMemberRemoved,
		Workspace:  ws.Key(),
		ActorID:    actorID,
		ResourceID: userID,
	})
	return nil
}

func (s *TeamService) findUser(ctx context.Context, input AddMemberInput) (*models.User, error) {
	query := s.db.WithContext(ctx)

	userID := strings.TrimSpace(input.UserID)
	username := strings.TrimSpace(input.Username)
	switch {
	case userID != "":
		query = query.Where("id = ?", userID)
	case username != "":
		query = query.Where("username = ?", username)
	default:
		return nil, apperrors.NewValidation("user_id", "user id or username is required")
	}

	var user models.User
	err := query.Take(&user).Error
	if isNotFound(err) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("team service: load user: %w", err)
	}
	return &user, nil
}
