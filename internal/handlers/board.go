package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/sprintboard/internal/services"
	"github.com/charlesng35/sprintboard/pkg/response"
)

// BoardHandler serves the read-only board projection.
type BoardHandler struct {
	resolver *services.WorkspaceResolver
	svc      *services.BoardService
}

func NewBoardHandler(db *gorm.DB) (*BoardHandler, error) {
	resolver, err := services.NewWorkspaceResolver(db)
	if err != nil {
		return nil, err
	}
	authority, err := services.NewRoleAuthority(db)
	if err != nil {
		return nil, err
	}
	svc, err := services.NewBoardService(db, authority)
	if err != nil {
		return nil, err
	}
	return &BoardHandler{resolver: resolver, svc: svc}, nil
}

// GET /api/board?team_id=&sprint_id=
func (h *BoardHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	ws, ok := resolveWorkspace(c, h.resolver, userID, c.Query("team_id"))
	if !ok {
		return
	}

	board, err := h.svc.Project(requestContext(c), userID, ws, c.Query("sprint_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, board)
}
