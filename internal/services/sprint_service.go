package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/sprintboard/internal/database"
	"github.com/charlesng35/sprintboard/internal/models"
	"github.com/charlesng35/sprintboard/internal/notifications"
	apperrors "github.com/charlesng35/sprintboard/pkg/errors"
	"github.com/charlesng35/sprintboard/pkg/logger"
	"github.com/charlesng35/sprintboard/pkg/metrics"
)

const maxSprintNameLength = 200

// CreateSprintInput captures new sprint metadata.
type CreateSprintInput struct {
	Name      string
	Goal      string
	StartDate time.Time
	EndDate   time.Time
	Activate  bool
}

// UpdateSprintInput describes mutable sprint fields. Active state is changed
// only through Activate and Complete.
type UpdateSprintInput struct {
	Name      *string
	Goal      *string
	StartDate *time.Time
	EndDate   *time.Time
}

// ActivationResult reports what an activation changed.
type ActivationResult struct {
	Sprint        *models.Sprint
	Previous      *models.Sprint
	RolledOver    int64
	AlreadyActive bool
}

// SprintService owns the sprint lifecycle: draft, active, completed and deleted.
type SprintService struct {
	db        *gorm.DB
	authority *RoleAuthority
	notifier  notifications.Notifier
	now       func() time.Time
	log       *zap.Logger
}

// NewSprintService constructs a SprintService. notifier may be nil.
func NewSprintService(db *gorm.DB, authority *RoleAuthority, notifier notifications.Notifier) (*SprintService, error) {
	if db == nil {
		return nil, errors.New("sprint service: db is required")
	}
	if authority == nil {
		return nil, errors.New("sprint service: role authority is required")
	}
	return &SprintService{
		db:        db,
		authority: authority,
		notifier:  notifier,
		now:       time.Now,
		log:       logger.WithModule("sprints"),
	}, nil
}

// Create adds a draft sprint to ws, activating it in the same transaction when requested.
func (s *SprintService) Create(ctx context.Context, actorID string, ws Workspace, input CreateSprintInput) (*ActivationResult, error) {
	ctx = ensureContext(ctx)

	if _, err := s.authority.Authorize(ctx, actorID, ws, CapabilityManageSprints); err != nil {
		return nil, err
	}

	name, err := validateSprintName(input.Name)
	if err != nil {
		return nil, err
	}
	start, end, err := validateSprintDates(input.StartDate, input.EndDate)
	if err != nil {
		return nil, err
	}

	sprint := &models.Sprint{
		Name:         name,
		Goal:         strings.TrimSpace(input.Goal),
		StartDate:    datatypes.Date(start),
		EndDate:      datatypes.Date(end),
		WorkspaceKey: ws.Key(),
		TeamID:       ws.teamIDPtr(),
		CreatedByID:  actorID,
	}

	result := &ActivationResult{Sprint: sprint}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sprint).Error; err != nil {
			return fmt.Errorf("sprint service: create sprint: %w", err)
		}
		if !input.Activate {
			return nil
		}
		activated, err := s.activateTx(tx, sprint.ID, ws)
		if err != nil {
			return err
		}
		result = activated
		return nil
	})
	if err != nil {
		if input.Activate {
			recordActivation(err)
		}
		return nil, err
	}

	notify(ctx, s.notifier, notifications.Event{
		Type:       notifications.EventSprintCreated,
		Workspace:  ws.Key(),
		ActorID:    actorID,
		ResourceID: result.Sprint.ID,
		Metadata:   map[string]any{"name": result.Sprint.Name},
	})
	if input.Activate {
		s.afterActivation(ctx, actorID, ws, result)
	}

	return result, nil
}

// Get returns a sprint visible to the actor.
func (s *SprintService) Get(ctx context.Context, actorID, sprintID string) (*models.Sprint, error) {
	ctx = ensureContext(ctx)

	sprint, err := findSprint(s.db.WithContext(ctx), sprintID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authority.Authorize(ctx, actorID, sprintWorkspace(sprint), CapabilityView); err != nil {
		return nil, err
	}
	return sprint, nil
}

// List returns every sprint in ws, newest start date first.
func (s *SprintService) List(ctx context.Context, actorID string, ws Workspace) ([]models.Sprint, error) {
	ctx = ensureContext(ctx)

	if _, err := s.authority.Authorize(ctx, actorID, ws, CapabilityView); err != nil {
		return nil, err
	}
	return listSprints(s.db.WithContext(ctx), ws)
}

// Update edits sprint metadata without touching its active state.
func (s *SprintService) Update(ctx context.Context, actorID, sprintID string, input UpdateSprintInput) (*models.Sprint, error) {
	ctx = ensureContext(ctx)

	sprint, err := findSprint(s.db.WithContext(ctx), sprintID)
	if err != nil {
		return nil, err
	}
	ws := sprintWorkspace(sprint)
	if _, err := s.authority.Authorize(ctx, actorID, ws, CapabilityManageSprints); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name, err := validateSprintName(*input.Name)
		if err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if input.Goal != nil {
		updates["goal"] = strings.TrimSpace(*input.Goal)
	}
	if input.StartDate != nil || input.EndDate != nil {
		start := time.Time(sprint.StartDate)
		end := time.Time(sprint.EndDate)
		if input.StartDate != nil {
			start = *input.StartDate
		}
		if input.EndDate != nil {
			end = *input.EndDate
		}
		start, end, err = validateSprintDates(start, end)
		if err != nil {
			return nil, err
		}
		updates["start_date"] = datatypes.Date(start)
		updates["end_date"] = datatypes.Date(end)
	}

	if len(updates) == 0 {
		return sprint, nil
	}

	if err := s.db.WithContext(ctx).Model(sprint).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("sprint service: update sprint: %w", err)
	}
	sprint, err = loadSprint(s.db.WithContext(ctx), sprintID)
	if err != nil {
		return nil, fmt.Errorf("sprint service: reload sprint: %w", err)
	}

	notify(ctx, s.notifier, notifications.Event{
		Type:       notifications.EventSprintUpdated,
		Workspace:  ws.Key(),
		ActorID:    actorID,
		ResourceID: sprint.ID,
		Metadata:   updates,
	})

	return sprint, nil
}

// Activate makes the sprint the single active sprint of its workspace. Tasks of
// the previously active sprint whose status is not DONE move to the target and
// are stamped with the previous sprint's name. Activating an already active
// sprint succeeds without changes.
func (s *SprintService) Activate(ctx context.Context, actorID, sprintID string) (*ActivationResult, error) {
	ctx = ensureContext(ctx)

	sprint, err := findSprint(s.db.WithContext(ctx), sprintID)
	if err != nil {
		return nil, err
	}
	ws := sprintWorkspace(sprint)
	if _, err := s.authority.Authorize(ctx, actorID, ws, CapabilityManageSprints); err != nil {
		return nil, err
	}

	var result *ActivationResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.activateTx(tx, sprint.ID, ws)
		return txErr
	})
	if err != nil {
		recordActivation(err)
		return nil, err
	}

	s.afterActivation(ctx, actorID, ws, result)
	return result, nil
}

func (s *SprintService) activateTx(tx *gorm.DB, sprintID string, ws Workspace) (*ActivationResult, error) {
	target, err := loadSprint(lockForUpdate(tx), sprintID)
	if err != nil {
		return nil, err
	}
	if target.IsActive {
		return &ActivationResult{Sprint: target, AlreadyActive: true}, nil
	}

	result := &ActivationResult{Sprint: target}

	var current models.Sprint
	err = lockForUpdate(ws.Scope(tx)).
		Where("is_active = ? AND id <> ?", true, target.ID).
		Take(&current).Error
	switch {
	case isNotFound(err):
	case err != nil:
		return nil, fmt.Errorf("sprint service: load active sprint: %w", err)
	default:
		res := tx.Model(&models.Sprint{}).
			Where("id = ? AND is_active = ?", current.ID, true).
			Updates(map[string]any{"is_active": false, "active_key": nil})
		if res.Error != nil {
			return nil, fmt.Errorf("sprint service: deactivate sprint: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return s.resolveLostRace(tx, target.ID)
		}

		rolled := tx.Model(&models.Task{}).
			Where("sprint_id = ? AND status <> ?", current.ID, models.TaskStatusDone).
			Updates(map[string]any{"sprint_id": target.ID, "source": current.Name})
		if rolled.Error != nil {
			return nil, fmt.Errorf("sprint service: roll over tasks: %w", rolled.Error)
		}

		current.IsActive = false
		current.ActiveKey = nil
		result.Previous = &current
		result.RolledOver = rolled.RowsAffected
	}

	activatedAt := s.now().UTC()
	res := tx.Model(&models.Sprint{}).
		Where("id = ? AND is_active = ?", target.ID, false).
		Updates(map[string]any{
			"is_active":    true,
			"active_key":   ws.Key(),
			"activated_at": activatedAt,
		})
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return nil, ErrSprintAlreadyActive
		}
		return nil, fmt.Errorf("sprint service: activate sprint: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return s.resolveLostRace(tx, target.ID)
	}

	target.IsActive = true
	target.ActiveKey = stringPtr(ws.Key())
	target.ActivatedAt = &activatedAt
	return result, nil
}

// resolveLostRace decides the outcome once a compare-and-set matched no rows:
// success when the target itself is now active, a conflict otherwise.
func (s *SprintService) resolveLostRace(tx *gorm.DB, sprintID string) (*ActivationResult, error) {
	target, err := loadSprint(tx, sprintID)
	if err != nil {
		return nil, err
	}
	if target.IsActive {
		return &ActivationResult{Sprint: target, AlreadyActive: true}, nil
	}
	return nil, ErrSprintAlreadyActive
}

func (s *SprintService) afterActivation(ctx context.Context, actorID string, ws Workspace, result *ActivationResult) {
	if result.AlreadyActive {
		metrics.SprintActivations.WithLabelValues("noop").Inc()
		return
	}
	metrics.SprintActivations.WithLabelValues("activated").Inc()
	metrics.TasksRolledOver.Add(float64(result.RolledOver))

	meta := map[string]any{"rolled_over": result.RolledOver}
	if result.Previous != nil {
		meta["previous_sprint_id"] = result.Previous.ID
	}
	s.log.Info("sprint activated",
		zap.String("sprint_id", result.Sprint.ID),
		zap.String("workspace", ws.Key()),
		zap.Int64("rolled_over", result.RolledOver),
	)
	notify(ctx, s.notifier, notifications.Event{
		Type:       notifications.EventSprintActivated,
		Workspace:  ws.Key(),
		ActorID:    actorID,
		ResourceID: result.Sprint.ID,
		Metadata:   meta,
	})
}

func recordActivation(err error) {
	if errors.Is(err, ErrSprintAlreadyActive) {
		metrics.SprintActivations.WithLabelValues("conflict").Inc()
		return
	}
	metrics.SprintActivations.WithLabelValues("error").Inc()
}

// Complete ends the sprint: unfinished tasks return to the backlog and the sprint
// is no longer active. It returns how many tasks moved.
func (s *SprintService) Complete(ctx context.Context, actorID, sprintID string) (int64, error) {
	ctx = ensureContext(ctx)

	sprint, err := findSprint(s.db.WithContext(ctx), sprintID)
	if err != nil {
		return 0, err
	}
	ws := sprintWorkspace(sprint)
	if _, err := s.authority.Authorize(ctx, actorID, ws, CapabilityManageSprints); err != nil {
		return 0, err
	}

	var moved int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Task{}).
			Where("sprint_id = ? AND status <> ?", sprint.ID, models.TaskStatusDone).
			Update("sprint_id", nil)
		if res.Error != nil {
			return fmt.Errorf("sprint service: return tasks to backlog: %w", res.Error)
		}
		moved = res.RowsAffected

		if err := tx.Model(&models.Sprint{}).
			Where("id = ?", sprint.ID).
			Updates(map[string]any{"is_active": false, "active_key": nil}).Error; err != nil {
			return fmt.Errorf("sprint service: deactivate sprint: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("sprint completed",
		zap.String("sprint_id", sprint.ID),
		zap.String("workspace", ws.Key()),
		zap.Int64("returned_to_backlog", moved),
	)
	notify(ctx, s.notifier, notifications.Event{
		Type:       notifications.EventSprintCompleted,
		Workspace:  ws.Key(),
		ActorID:    actorID,
		ResourceID: sprint.ID,
		Metadata:   map[string]any{"returned_to_backlog": moved},
	})

	return moved, nil
}

// Delete removes the sprint after detaching every task that referenced it.
func (s *SprintService) Delete(ctx context.Context, actorID, sprintID string) error {
	ctx = ensureContext(ctx)

	sprint, err := findSprint(s.db.WithContext(ctx), sprintID)
	if err != nil {
		return err
	}
	ws := sprintWorkspace(sprint)
	if _, err := s.authority.Authorize(ctx, actorID, ws, CapabilityManageSprints); err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Task{}).
			Where("sprint_id = ?", sprint.ID).
			Update("sprint_id", nil).Error; err != nil {
			return fmt.Errorf("sprint service: detach tasks: %w", err)
		}
		if err := tx.Delete(&models.Sprint{}, "id = ?", sprint.ID).Error; err != nil {
			return fmt.Errorf("sprint service: delete sprint: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	notify(ctx, s.notifier, notifications.Event{
		Type:       notifications.EventSprintDeleted,
		Workspace:  ws.Key(),
		ActorID:    actorID,
		ResourceID: sprint.ID,
		Metadata:   map[string]any{"name": sprint.Name},
	})
	return nil
}

// findSprint loads a sprint addressed by a caller. An unknown id is reported as
// ErrAccessDenied, the same as a sprint in a workspace the caller cannot see.
func findSprint(db *gorm.DB, id string) (*models.Sprint, error) {
	sprint, err := loadSprint(db, id)
	if errors.Is(err, ErrSprintNotFound) {
		return nil, ErrAccessDenied
	}
	return sprint, err
}

func loadSprint(db *gorm.DB, id string) (*models.Sprint, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrSprintNotFound
	}

	var sprint models.Sprint
	err := db.Where("id = ?", id).Take(&sprint).Error
	if isNotFound(err) {
		return nil, ErrSprintNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sprint service: load sprint: %w", err)
	}
	return &sprint, nil
}

func listSprints(db *gorm.DB, ws Workspace) ([]models.Sprint, error) {
	var sprints []models.Sprint
	err := ws.Scope(db).
		Order("start_date DESC").
		Order("created_at DESC").
		Find(&sprints).Error
	if err != nil {
		return nil, fmt.Errorf("sprint service: list sprints: %w", err)
	}
	return sprints, nil
}

func activeSprint(db *gorm.DB, ws Workspace) (*models.Sprint, error) {
	var sprint models.Sprint
	err := ws.Scope(db).Where("is_active = ?", true).Take(&sprint).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load active sprint: %w", err)
	}
	return &sprint, nil
}

// claimActiveSprint reads the active sprint under a shared row lock so the
// caller's insert cannot interleave with an activation's rollover. A sprint
// deactivated while the lock was pending drops out of the locked read, so the
// lookup runs once more to pick up its successor.
func claimActiveSprint(tx *gorm.DB, ws Workspace) (*models.Sprint, error) {
	active, err := activeSprint(lockForShare(tx), ws)
	if err != nil || active != nil || !database.SupportsRowLocking(tx) {
		return active, err
	}
	return activeSprint(lockForShare(tx), ws)
}

func lockForShare(db *gorm.DB) *gorm.DB {
	if !database.SupportsRowLocking(db) {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "SHARE"})
}

func lockForUpdate(db *gorm.DB) *gorm.DB {
	if !database.SupportsRowLocking(db) {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func validateSprintName(value string) (string, error) {
	name := strings.TrimSpace(value)
	if name == "" {
		return "", apperrors.NewValidation("name", "sprint name is required")
	}
	if len(name) > maxSprintNameLength {
		return "", apperrors.NewValidation("name", fmt.Sprintf("sprint name must be at most %d characters", maxSprintNameLength))
	}
	return name, nil
}

func validateSprintDates(start, end time.Time) (time.Time, time.Time, error) {
	if start.IsZero() {
		return time.Time{}, time.Time{}, apperrors.NewValidation("start_date", "start date is required")
	}
	if end.IsZero() {
		return time.Time{}, time.Time{}, apperrors.NewValidation("end_date", "end date is required")
	}
	start, end = dateOnly(start), dateOnly(end)
	if end.Before(start) {
		return time.Time{}, time.Time{}, apperrors.NewValidation("end_date", "end date must not be before start date")
	}
	return start, end, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
