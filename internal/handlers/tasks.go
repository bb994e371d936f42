package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/sprintboard/internal/notifications"
	"github.com/charlesng35/sprintboard/internal/services"
	"github.com/charlesng35/sprintboard/pkg/response"
)

// TaskHandler exposes task mutations.
type TaskHandler struct {
	resolver *services.WorkspaceResolver
	svc      *services.TaskService
}

type createTaskRequest struct {
	TeamID      string  `json:"team_id" validate:"omitempty,uuid4"`
	Title       string  `json:"title" validate:"required,notblank,max=200"`
	Description string  `json:"description" validate:"omitempty,max=10000"`
	Status      string  `json:"status" validate:"omitempty,oneof=TODO IN_PROGRESS DONE"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=HIGH MEDIUM LOW"`
	StoryPoints int     `json:"story_points" validate:"min=0"`
	AssigneeID  *string `json:"assignee_id"`
}

type updateTaskRequest struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string `json:"description" validate:"omitempty,max=10000"`
	Status      *string `json:"status" validate:"omitempty,oneof=TODO IN_PROGRESS DONE"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=HIGH MEDIUM LOW"`
	StoryPoints *int    `json:"story_points" validate:"omitempty,min=0"`
	AssigneeID  *string `json:"assignee_id"`
}

type moveTaskRequest struct {
	Status   string  `json:"status" validate:"required,oneof=TODO IN_PROGRESS DONE"`
	SprintID *string `json:"sprint_id"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=TODO IN_PROGRESS DONE"`
}

func NewTaskHandler(db *gorm.DB, notifier notifications.Notifier) (*TaskHandler, error) {
	resolver, err := services.NewWorkspaceResolver(db)
	if err != nil {
		return nil, err
	}
	authority, err := services.NewRoleAuthority(db)
	if err != nil {
		return nil, err
	}
	svc, err := services.NewTaskService(db, authority, notifier)
	if err != nil {
		return nil, err
	}
	return &TaskHandler{resolver: resolver, svc: svc}, nil
}

// POST /api/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var body createTaskRequest
	if !bindAndValidate(c, &body) {
		return
	}
	ws, ok := resolveWorkspace(c, h.resolver, userID, body.TeamID)
	if !ok {
		return
	}

	task, err := h.svc.Create(requestContext(c), userID, ws, services.CreateTaskInput{
		Title:       body.Title,
		Description: body.Description,
		Status:      body.Status,
		Priority:    body.Priority,
		StoryPoints: body.StoryPoints,
		AssigneeID:  body.AssigneeID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, task)
}

// GET /api/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	task, err := h.svc.Get(requestContext(c), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}

// PATCH /api/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var body updateTaskRequest
	if !bindAndValidate(c, &body) {
		return
	}

	task, err := h.svc.Update(requestContext(c), userID, c.Param("id"), services.UpdateTaskInput{
		Title:       body.Title,
		Description: body.Description,
		Status:      body.Status,
		Priority:    body.Priority,
		StoryPoints: body.StoryPoints,
		AssigneeID:  body.AssigneeID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}

// POST /api/tasks/:id/move
func (h *TaskHandler) Move(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var body moveTaskRequest
	if !bindAndValidate(c, &body) {
		return
	}

	task, err := h.svc.Move(requestContext(c), userID, c.Param("id"), services.MoveTaskInput{
		Status:   body.Status,
		SprintID: body.SprintID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}

// POST /api/tasks/:id/status
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var body statusRequest
	if !bindAndValidate(c, &body) {
		return
	}

	task, err := h.svc.UpdateStatus(requestContext(c), userID, c.Param("id"), body.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, task)
}

// DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(requestContext(c), userID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
