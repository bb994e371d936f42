package services

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/charlesng35/sprintboard/pkg/errors"
)

var (
	// ErrAccessDenied is returned whenever the caller holds no role in the workspace
	// or the role does not carry the requested capability.
	ErrAccessDenied = apperrors.New("ACCESS_DENIED", "You do not have access to perform this action", http.StatusForbidden)
	// ErrSprintNotFound indicates the requested sprint does not exist.
	ErrSprintNotFound = apperrors.New("SPRINT_NOT_FOUND", "Sprint not found", http.StatusNotFound)
	// ErrTaskNotFound indicates the requested task does not exist.
	ErrTaskNotFound = apperrors.New("TASK_NOT_FOUND", "Task not found", http.StatusNotFound)
	// ErrTeamNotFound indicates the requested team does not exist.
	ErrTeamNotFound = apperrors.New("TEAM_NOT_FOUND", "Team not found", http.StatusNotFound)
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrSprintAlreadyActive signals a concurrent activation won the race for the workspace.
	ErrSprintAlreadyActive = apperrors.New("SPRINT_ALREADY_ACTIVE", "Another sprint was activated concurrently", http.StatusConflict)
	// ErrSelfRemovalDenied prevents members from removing themselves from a team.
	ErrSelfRemovalDenied = apperrors.New("SELF_REMOVAL_DENIED", "You cannot remove yourself from the team", http.StatusForbidden)
	// ErrTeamMemberAlreadyExists signals the user is already a member of the team.
	ErrTeamMemberAlreadyExists = apperrors.New("TEAM_MEMBER_EXISTS", "User already assigned to team", http.StatusConflict)
	// ErrTeamMemberNotFound indicates the requested membership does not exist.
	ErrTeamMemberNotFound = apperrors.New("TEAM_MEMBER_NOT_FOUND", "User is not a member of the team", http.StatusNotFound)
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate")
}
