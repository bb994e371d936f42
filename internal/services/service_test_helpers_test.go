package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/sprintboard/internal/database/testutil"
	"github.com/charlesng35/sprintboard/internal/models"
	"github.com/charlesng35/sprintboard/internal/notifications"
)

type fixture struct {
	t         *testing.T
	db        *gorm.DB
	resolver  *WorkspaceResolver
	authority *RoleAuthority
	sprints   *SprintService
	tasks     *TaskService
	boards    *BoardService
	teams     *TeamService
}

func newFixture(t *testing.T, notifier notifications.Notifier) *fixture {
	t.Helper()
	return newFixtureOn(t, testutil.MustOpenTestDB(t, testutil.WithAutoMigrate()), notifier)
}

func newFixtureOn(t *testing.T, db *gorm.DB, notifier notifications.Notifier) *fixture {
	t.Helper()

	resolver, err := NewWorkspaceResolver(db)
	require.NoError(t, err)
	authority, err := NewRoleAuthority(db)
	require.NoError(t, err)
	sprints, err := NewSprintService(db, authority, notifier)
	require.NoError(t, err)
	tasks, err := NewTaskService(db, authority, notifier)
	require.NoError(t, err)
	boards, err := NewBoardService(db, authority)
	require.NoError(t, err)
	teams, err := NewTeamService(db, authority, notifier)
	require.NoError(t, err)

	return &fixture{
		t:         t,
		db:        db,
		resolver:  resolver,
		authority: authority,
		sprints:   sprints,
		tasks:     tasks,
		boards:    boards,
		teams:     teams,
	}
}

func (f *fixture) user(username string) *models.User {
	f.t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "not-a-real-hash",
		IsActive: true,
	}
	require.NoError(f.t, f.db.Create(user).Error)
	return user
}

func (f *fixture) member(teamID, userID string, role models.TeamRole) {
	f.t.Helper()
	require.NoError(f.t, f.db.Create(&models.Membership{TeamID: teamID, UserID: userID, Role: role}).Error)
}

func (f *fixture) team(owner *models.User, name string) *models.Team {
	f.t.Helper()
	team, err := f.teams.Create(context.Background(), owner.ID, CreateTeamInput{Name: name})
	require.NoError(f.t, err)
	return team
}

func (f *fixture) reloadTask(id string) models.Task {
	f.t.Helper()
	var task models.Task
	require.NoError(f.t, f.db.Take(&task, "id = ?", id).Error)
	return task
}

func (f *fixture) reloadSprint(id string) models.Sprint {
	f.t.Helper()
	var sprint models.Sprint
	require.NoError(f.t, f.db.Take(&sprint, "id = ?", id).Error)
	return sprint
}

func (f *fixture) activeCount(ws Workspace) int64 {
	f.t.Helper()
	var count int64
	require.NoError(f.t, ws.Scope(f.db.Model(&models.Sprint{})).Where("is_active = ?", true).Count(&count).Error)
	return count
}

func day(value string) time.Time {
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return parsed
}

func sprintInput(name string) CreateSprintInput {
	return CreateSprintInput{Name: name, StartDate: day("2024-03-01"), EndDate: day("2024-03-14")}
}
