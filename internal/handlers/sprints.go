package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/sprintboard/internal/models"
	"github.com/charlesng35/sprintboard/internal/notifications"
	"github.com/charlesng35/sprintboard/internal/services"
	apperrors "github.com/charlesng35/sprintboard/pkg/errors"
	"github.com/charlesng35/sprintboard/pkg/response"
)

const dateLayout = "2006-01-02"

// SprintHandler exposes the sprint lifecycle.
type SprintHandler struct {
	resolver *services.WorkspaceResolver
	svc      *services.SprintService
}

type createSprintRequest struct {
	TeamID    string `json:"team_id" validate:"omitempty,uuid4"`
	Name      string `json:"name" validate:"required,notblank,max=200"`
	Goal      string `json:"goal" validate:"omitempty,max=2000"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Activate  bool   `json:"activate"`
}

type updateSprintRequest struct {
	Name      *string `json:"name" validate:"omitempty,notblank,max=200"`
	Goal      *string `json:"goal" validate:"omitempty,max=2000"`
	StartDate *string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

type sprintPayload struct {
	*models.Sprint
	State string `json:"state"`
}

type activationPayload struct {
	Sprint        sprintPayload  `json:"sprint"`
	Previous      *sprintPayload `json:"previous,omitempty"`
	RolledOver    int64          `json:"rolled_over"`
	AlreadyActive bool           `json:"already_active"`
}

func newSprintPayload(sprint *models.Sprint) sprintPayload {
	return sprintPayload{Sprint: sprint, State: sprint.State()}
}

func newActivationPayload(result *services.ActivationResult) activationPayload {
	out := activationPayload{
		Sprint:        newSprintPayload(result.Sprint),
		RolledOver:    result.RolledOver,
		AlreadyActive: result.AlreadyActive,
	}
	if result.Previous != nil {
		prev := newSprintPayload(result.Previous)
		out.Previous = &prev
	}
	return out
}

func NewSprintHandler(db *gorm.DB, notifier notifications.Notifier) (*SprintHandler, error) {
	resolver, err := services.NewWorkspaceResolver(db)
	if err != nil {
		return nil, err
	}
	authority, err := services.NewRoleAuthority(db)
	if err != nil {
		return nil, err
	}
	svc, err := services.NewSprintService(db, authority, notifier)
	if err != nil {
		return nil, err
	}
	return &SprintHandler{resolver: resolver, svc: svc}, nil
}

// GET /api/sprints?team_id=
func (h *SprintHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	ws, ok := resolveWorkspace(c, h.resolver, userID, c.Query("team_id"))
	if !ok {
		return
	}

	sprints, err := h.svc.List(requestContext(c), userID, ws)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]sprintPayload, 0, len(sprints))
	for i := range sprints {
		out = append(out, newSprintPayload(&sprints[i]))
	}
	response.Success(c, http.StatusOK, out)
}

// GET /api/sprints/:id
func (h *SprintHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	sprint, err := h.svc.Get(requestContext(c), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, newSprintPayload(sprint))
}

// POST /api/sprints
func (h *SprintHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var body createSprintRequest
	if !bindAndValidate(c, &body) {
		return
	}
	ws, ok := resolveWorkspace(c, h.resolver, userID, body.TeamID)
	if !ok {
		return
	}

	start, err := parseDate("start_date", body.StartDate)
	if err != nil {
		response.Error(c, err)
		return
	}
	end, err := parseDate("end_date", body.EndDate)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.svc.Create(requestContext(c), userID, ws, services.CreateSprintInput{
		Name:      body.Name,
		Goal:      body.Goal,
		StartDate: start,
		EndDate:   end,
		Activate:  body.Activate,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, newActivationPayload(result))
}

// PATCH /api/sprints/:id
func (h *SprintHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var body updateSprintRequest
	if !bindAndValidate(c, &body) {
		return
	}

	input := services.UpdateSprintInput{Name: body.Name, Goal: body.Goal}
	if body.StartDate != nil {
		start, err := parseDate("start_date", *body.StartDate)
		if err != nil {
			response.Error(c, err)
			return
		}
		input.StartDate = &start
	}
	if body.EndDate != nil {
		end, err := parseDate("end_date", *body.EndDate)
		if err != nil {
			response.Error(c, err)
			return
		}
		input.EndDate = &end
	}

	sprint, err := h.svc.Update(requestContext(c), userID, c.Param("id"), input)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, newSprintPayload(sprint))
}

// POST /api/sprints/:id/activate
func (h *SprintHandler) Activate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	result, err := h.svc.Activate(requestContext(c), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, newActivationPayload(result))
}

// POST /api/sprints/:id/complete
func (h *SprintHandler) Complete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	moved, err := h.svc.Complete(requestContext(c), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"moved_to_backlog": moved})
}

// DELETE /api/sprints/:id
func (h *SprintHandler) Delete(c *gin.Context) {
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

func parseDate(field, value string) (time.Time, error) {
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, apperrors.NewValidation(field, field+" must be a date formatted YYYY-MM-DD")
	}
	return parsed, nil
}
