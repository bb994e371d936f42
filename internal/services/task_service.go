package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/sprintboard/internal/models"
	"github.com/charlesng35/sprintboard/internal/notifications"
	apperrors "github.com/charlesng35/sprintboard/pkg/errors"
)

const maxTaskTitleLength = 200

// CreateTaskInput captures new task content. Empty status and priority fall
// back to TODO and MEDIUM.
type CreateTaskInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	StoryPoints int
	AssigneeID  *string
}

// UpdateTaskInput describes mutable task content. A non-nil AssigneeID that is
// blank clears the assignee.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	StoryPoints *int
	AssigneeID  *string
}

// MoveTaskInput places a task in a board column and sprint. A nil SprintID
// sends the task to the backlog.
type MoveTaskInput struct {
	Status   string
	SprintID *string
}

// TaskService handles task creation, edits, moves and deletion.
type TaskService struct {
	db        *gorm.DB
	authority *RoleAuthority
	notifier  notifications.Notifier
}

// NewTaskService constructs a TaskService. notifier may be nil.
func NewTaskService(db *gorm.DB, authority *RoleAuthority, notifier notifications.Notifier) (*TaskService, error) {
	if db == nil {
		return nil, errors.New("task service: db is required")
	}
	if authority == nil {
		return nil, errors.New("task service: role authority is required")
	}
	return &TaskService{db: db, authority: authority, notifier: notifier}, nil
}

// Create adds a task to the workspace's active sprint, or to the backlog when
// no sprint is active.
func (s *TaskService) Create(ctx context.Context, actorID string, ws Workspace, input CreateTaskInput) (*models.Task, error) {
	ctx = ensureContext(ctx)

	if _, err := s.authority.Authorize(ctx, actorID, ws, CapabilityEditTasks); err != nil {
		return nil, err
	}

	title, err := validateTaskTitle(input.Title)
	if err != nil {
		return nil, err
	}
	status := models.TaskStatusTodo
	if strings.TrimSpace(input.Status) != "" {
		if status, err = parseStatus(input.Status); err != nil {
			return nil, err
		}
	}
	priority := models.TaskPriorityMedium
	if strings.TrimSpace(input.Priority) != "" {
		if priority, err = parsePriority(input.Priority); err != nil {
			return nil, err
		}
	}
	if err := validateStoryPoints(input.StoryPoints); err != nil {
		return nil, err
	}

	assigneeID := optionalID(input.AssigneeID)
	if err := validateAssignee(s.db.WithContext(ctx), ws, assigneeID); err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		Status:       status,
		Priority:     priority,
		StoryPoints:  input.StoryPoints,
		AssigneeID:   assigneeID,
		WorkspaceKey: ws.Key(),
		TeamID:       ws.teamIDPtr(),
		CreatedByID:  actorID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		active, err := claimActiveSprint(tx, ws)
		if err != nil {
			return fmt.Errorf("task service: %w", err)
		}
		if active != nil {
			task.SprintID = stringPtr(active.ID)
		}
		if err := tx.Create(task).Error; err != nil {
			return fmt.Errorf("task service: create task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	notify(ctx, s.notifier, notifications.Event{
		Type:       notifications.EventTaskCreated,
		Workspace:  ws.Key(),
		ActorID:    actorID,
		ResourceID: task.ID,
		Metadata:   map[string]any{"sprint_id": derefString(task.SprintID), "backlog": task.InBacklog()},
	})

	return loadTask(s.db.WithContext(ctx), task.ID)
}

// Get returns a task visible to the actor.
func (s *TaskService) Get(ctx context.Context, actorID, taskID string) (*models.Task, error) {
	ctx = ensureContext(ctx)

	task, err := findTask(s.db.WithContext(ctx), taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authority.Authorize(ctx, actorID, taskWorkspace(task), CapabilityView); err != nil {
		return nil, err
	}
	return task, nil
}

// Update edits task content. Any member of the workspace may edit.
func (s *TaskService) Update(ctx context.Context, actorID, taskID string, input UpdateTaskInput) (*models.Task, error) {
	ctx = ensureContext(ctx)

	task, err := findTask(s.db.WithContext(ctx), taskID)
	if err != nil {
		return nil, err
	}
	ws := taskWorkspace(task)
	if _, err := s.authority.Authorize(ctx, actorID, ws, CapabilityEditTasks); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Title != nil {
		title, err := validateTaskTitle(*input.Title)
		if err != nil {
			return nil, err
		}
		updates["title"] = title
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Status != nil {
		status, err := parseStatus(*input.Status)
		if err != nil {
			return nil, err
		}
		updates["status"] = status
	}
	if input.Priority != nil {
		priority, err := parsePriority(*input.Priority)
		if err != nil {
			return nil, err
		}
		updates["priority"] = priority
	}
	if input.StoryPoints != nil {
		if err := validateStoryPoints(*input.StoryPoints); err != nil {
			return nil, err
		}
		updates["story_points"] = *input.StoryPoints
	}
	if input.AssigneeID != nil {
		assigneeID := optionalID(input.AssigneeID)
		if err := validateAssignee(s.db.WithContext(ctx), ws, assigneeID); err != nil {
			return nil, err
		}
		if assigneeID == nil {
			updates["assignee_id"] = nil
		} else {
			updates["assignee_id"] = *assigneeID
		}
	}

	if len(updates) == 0 {
		return task, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", task.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("task service: update task: %w", err)
	}

	notify(ctx, s.notifier, notifications.Event{
		Type:       notifications.EventTaskUpdated,
		Workspace:  ws.Key(),
		ActorID:    actorID,
		ResourceID: task.ID,
		Metadata:   updates,
	})

	return loadTask(s.db.WithContext(ctx), task.ID)
}

// Delete removes a task. Team members without an elevated role are denied.
func (s *TaskService) Delete(ctx context.Context, actorID, taskID string) error {
	ctx = ensureContext(ctx)

	task, err := findTask(s.db.WithContext(ctx), taskID)
	if err != nil {
		return err
	}
	ws := taskWorkspace(task)
	if _, err := s.authority.Authorize(ctx, actorID, ws, CapabilityDeleteTasks); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&models.Task{}, "id = ?", task.ID).Error; err != nil {
		return fmt.Errorf("task service: delete task: %w", err)
	}

	notify(ctx, s.notifier, notifications.Event{
		Type:       notifications.EventTaskDeleted,
		Workspace:  ws.Key(),
		ActorID:    actorID,
		ResourceID: task.ID,
		Metadata:   map[string]any{"title": task.Title},
	})
	return nil
}

// Move sets the task's column and sprint in one write. The target sprint must
// belong to the task's workspace. Concurrent moves resolve last write wins.
func (s *TaskService) Move(ctx context.Context, actorID, taskID string, input MoveTaskInput) (*models.Task, error) {
	ctx = ensureContext(ctx)

	task, err := findTask(s.db.WithContext(ctx), taskID)
	if err != nil {
		return nil, err
	}
	ws := taskWorkspace(task)
	if _, err := s.authority.Authorize(ctx, actorID, ws, CapabilityEditTasks); err != nil {
		return nil, err
	}

	status, err := parseStatus(input.Status)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{"status": status, "sprint_id": nil}
	if sprintID := optionalID(input.SprintID); sprintID != nil {
		sprint, err := loadSprint(s.db.WithContext(ctx), *sprintID)
		if errors.Is(err, ErrSprintNotFound) {
			return nil, apperrors.NewValidation("sprint_id", "sprint does not exist")
		}
		if err != nil {
			return nil, fmt.Errorf("task service: %w", err)
		}
		if sprint.WorkspaceKey != ws.Key() {
			return nil, apperrors.NewValidation("sprint_id", "sprint belongs to a different workspace")
		}
		updates["sprint_id"] = sprint.ID
	}

	if err := s.db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", task.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("task service: move task: %w", err)
	}

	notify(ctx, s.notifier, notifications.Event{
		Type:       notifications.EventTaskMoved,
		Workspace:  ws.Key(),
		ActorID:    actorID,
		ResourceID: task.ID,
		Metadata:   updates,
	})

	return loadTask(s.db.WithContext(ctx), task.ID)
}

// UpdateStatus changes only the column of a task, keeping its sprint.
func (s *TaskService) UpdateStatus(ctx context.Context, actorID, taskID, status string) (*models.Task, error) {
	return s.Update(ctx, actorID, taskID, UpdateTaskInput{Status: &status})
}

// findTask is findSprint for tasks.
func findTask(db *gorm.DB, id string) (*models.Task, error) {
	task, err := loadTask(db, id)
	if errors.Is(err, ErrTaskNotFound) {
		return nil, ErrAccessDenied
	}
	return task, err
}

func loadTask(db *gorm.DB, id string) (*models.Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrTaskNotFound
	}

	var task models.Task
	err := db.Preload("Assignee").Where("id = ?", id).Take(&task).Error
	if isNotFound(err) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("task service: load task: %w", err)
	}
	return &task, nil
}

func validateAssignee(db *gorm.DB, ws Workspace, assigneeID *string) error {
	if assigneeID == nil {
		return nil
	}
	if !ws.IsTeam() {
		if *assigneeID != ws.OwnerID {
			return apperrors.NewValidation("assignee_id", "personal tasks can only be assigned to their owner")
		}
		return nil
	}

	var count int64
	err := db.Model(&models.Membership{}).
		Where("team_id = ? AND user_id = ?", ws.TeamID, *assigneeID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("task service: check assignee: %w", err)
	}
	if count == 0 {
		return apperrors.NewValidation("assignee_id", "assignee must be a member of the team")
	}
	return nil
}

func validateTaskTitle(value string) (string, error) {
	title := strings.TrimSpace(value)
	if title == "" {
		return "", apperrors.NewValidation("title", "task title is required")
	}
	if len(title) > maxTaskTitleLength {
		return "", apperrors.NewValidation("title", fmt.Sprintf("task title must be at most %d characters", maxTaskTitleLength))
	}
	return title, nil
}

func validateStoryPoints(points int) error {
	if points < 0 {
		return apperrors.NewValidation("story_points", "story points must not be negative")
	}
	return nil
}

func parseStatus(value string) (models.TaskStatus, error) {
	status, ok := models.ParseTaskStatus(value)
	if !ok {
		return "", apperrors.NewValidation("status", "status must be one of TODO, IN_PROGRESS, DONE")
	}
	return status, nil
}

func parsePriority(value string) (models.TaskPriority, error) {
	priority, ok := models.ParseTaskPriority(value)
	if !ok {
		return "", apperrors.NewValidation("priority", "priority must be one of HIGH, MEDIUM, LOW")
	}
	return priority, nil
}
