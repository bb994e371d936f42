package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/charlesng35/sprintboard/internal/models"
	"github.com/charlesng35/sprintboard/internal/services"
	"github.com/charlesng35/sprintboard/pkg/response"
)

// WorkspaceHandler exposes workspace resolution so clients can learn their scope and role.
type WorkspaceHandler struct {
	resolver  *services.WorkspaceResolver
	authority *services.RoleAuthority
}

func NewWorkspaceHandler(db *gorm.DB) (*WorkspaceHandler, error) {
	resolver, err := services.NewWorkspaceResolver(db)
	if err != nil {
		return nil, err
	}
	authority, err := services.NewRoleAuthority(db)
	if err != nil {
		return nil, err
	}
	return &WorkspaceHandler{resolver: resolver, authority: authority}, nil
}

type workspacePayload struct {
	Workspace    services.Workspace    `json:"workspace"`
	Key          string                `json:"key"`
	Role         models.TeamRole       `json:"role"`
	Capabilities []services.Capability `json:"capabilities"`
}

// GET /api/workspace?team_id=
func (h *WorkspaceHandler) Resolve(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx := requestContext(c)
	ws, err := h.resolver.Resolve(ctx, userID, c.Query("team_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	role, err := h.authority.RoleOf(ctx, userID, ws)
	if err != nil {
		writeError(c, err)
		return
	}

	caps := make([]services.Capability, 0, len(services.Capabilities))
	for _, capability := range services.Capabilities {
		if capability.PermittedFor(role) {
			caps = append(caps, capability)
		}
	}

	response.Success(c, http.StatusOK, workspacePayload{
		Workspace:    ws,
		Key:          ws.Key(),
		Role:         role,
		Capabilities: caps,
	})
}

// resolveWorkspace resolves the scope named by teamID for the current user, writing
// the error response itself when resolution fails.
func resolveWorkspace(c *gin.Context, resolver *services.WorkspaceResolver, userID, teamID string) (services.Workspace, bool) {
	ws, err := resolver.Resolve(requestContext(c), userID, strings.TrimSpace(teamID))
	if err != nil {
		writeError(c, err)
		return services.Workspace{}, false
	}
	return ws, true
}
