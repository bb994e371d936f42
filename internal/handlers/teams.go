package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/sprintboard/internal/notifications"
	"github.com/charlesng35/sprintboard/internal/services"
	"github.com/charlesng35/sprintboard/pkg/response"
)

// TeamHandler manages teams and their memberships.
type TeamHandler struct {
	svc *services.TeamService
}

type createTeamRequest struct {
	Name        string `json:"name" validate:"required,notblank,min=2,max=128"`
	Description string `json:"description" validate:"omitempty,max=512"`
}

type addMemberRequest struct {
	UserID   string `json:"user_id" validate:"omitempty,uuid4"`
	Username string `json:"username" validate:"omitempty,max=64"`
	Role     string `json:"role" validate:"omitempty,oneof=OWNER ADMIN MEMBER owner admin member"`
}

func NewTeamHandler(db *gorm.DB, notifier notifications.Notifier) (*TeamHandler, error) {
	authority, err := services.NewRoleAuthority(db)
	if err != nil {
		return nil, err
	}
	svc, err := services.NewTeamService(db, authority, notifier)
	if err != nil {
		return nil, err
	}
	return &TeamHandler{svc: svc}, nil
}

// GET /api/teams
func (h *TeamHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	teams, err := h.svc.ListForUser(requestContext(c), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, teams)
}

// POST /api/teams
func (h *TeamHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var body createTeamRequest
	if !bindAndValidate(c, &body) {
		return
	}

	team, err := h.svc.Create(requestContext(c), userID, services.CreateTeamInput{
		Name:        body.Name,
		Description: body.Description,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, team)
}

// GET /api/teams/:id/members
func (h *TeamHandler) ListMembers(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	members, err := h.svc.ListMembers(requestContext(c), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, members)
}

// POST /api/teams/:id/members
func (h *TeamHandler) AddMember(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var body addMemberRequest
	if !bindAndValidate(c, &body) {
		return
	}

	membership, err := h.svc.AddMember(requestContext(c), userID, c.Param("id"), services.AddMemberInput{
		UserID:   body.UserID,
		Username: body.Username,
		Role:     body.Role,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, membership)
}

// DELETE /api/teams/:id/members/:userID
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.svc.RemoveMember(requestContext(c), userID, c.Param("id"), c.Param("userID")); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}
