package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/sprintboard/internal/database/testutil"
	"github.com/charlesng35/sprintboard/internal/models"
	apperrors "github.com/charlesng35/sprintboard/pkg/errors"
)

func TestSprintCreateValidatesInput(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user("alice")
	ws := PersonalWorkspace(alice.ID)
	ctx := context.Background()

	_, err := f.sprints.Create(ctx, alice.ID, ws, CreateSprintInput{Name: "  ", StartDate: day("2024-03-01"), EndDate: day("2024-03-02")})
	require.ErrorIs(t, err, apperrors.ErrValidation)
	require.Equal(t, "name", apperrors.FromError(err).Field)

	_, err = f.sprints.Create(ctx, alice.ID, ws, CreateSprintInput{Name: "S1", StartDate: day("2024-03-10"), EndDate: day("2024-03-01")})
	require.ErrorIs(t, err, apperrors.ErrValidation)
	require.Equal(t, "end_date", apperrors.FromError(err).Field)

	res, err := f.sprints.Create(ctx, alice.ID, ws, CreateSprintInput{Name: "Same day", StartDate: day("2024-03-10"), EndDate: day("2024-03-10")})
	require.NoError(t, err)
	require.Equal(t, "draft", res.Sprint.State())
	require.Nil(t, res.Sprint.TeamID)
	require.Equal(t, ws.Key(), res.Sprint.WorkspaceKey)
}

func TestSprintCreateRequiresManageRoleInTeam(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user("alice")
	bob := f.user("bob")
	team := f.team(alice, "Platform")
	f.member(team.ID, bob.ID, models.TeamRoleMember)

	_, err := f.sprints.Create(context.Background(), bob.ID, TeamWorkspace(team.ID), sprintInput("S1"))
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestSprintActivationRollsOverUnfinishedTasks(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user("alice")
	ws := PersonalWorkspace(alice.ID)
	ctx := context.Background()

	first, err := f.sprints.Create(ctx, alice.ID, ws, CreateSprintInput{
		Name: "S1", StartDate: day("2024-03-01"), EndDate: day("2024-03-14"), Activate: true,
	})
	require.NoError(t, err)
	require.True(t, first.Sprint.IsActive)
	require.Nil(t, first.Previous)

	var created []*models.Task
	for _, status := range []string{"TODO", "IN_PROGRESS", "DONE"} {
		task, err := f.tasks.Create(ctx, alice.ID, ws, CreateTaskInput{Title: "task " + status, Status: status})
		require.NoError(t, err)
		require.NotNil(t, task.SprintID)
		require.Equal(t, first.Sprint.ID, *task.SprintID)
		created = append(created, task)
	}

	second, err := f.sprints.Create(ctx, alice.ID, ws, sprintInput("S2"))
	require.NoError(t, err)

	result, err := f.sprints.Activate(ctx, alice.ID, second.Sprint.ID)
	require.NoError(t, err)
	require.False(t, result.AlreadyActive)
	require.EqualValues(t, 2, result.RolledOver)
	require.NotNil(t, result.Previous)
	require.Equal(t, first.Sprint.ID, result.Previous.ID)

	for _, task := range created[:2] {
		reloaded := f.reloadTask(task.ID)
		require.Equal(t, second.Sprint.ID, *reloaded.SprintID)
		require.Equal(t, "S1", reloaded.Source)
	}
	done := f.reloadTask(created[2].ID)
	require.Equal(t, first.Sprint.ID, *done.SprintID)
	require.Empty(t, done.Source)

	previous := f.reloadSprint(first.Sprint.ID)
	require.False(t, previous.IsActive)
	require.Nil(t, previous.ActiveKey)
	require.Equal(t, "completed", previous.State())
	require.EqualValues(t, 1, f.activeCount(ws))
}

func TestSprintActivationIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user("alice")
	ws := PersonalWorkspace(alice.ID)
	ctx := context.Background()

	created, err := f.sprints.Create(ctx, alice.ID, ws, sprintInput("S1"))
	require.NoError(t, err)

	_, err = f.sprints.Activate(ctx, alice.ID, created.Sprint.ID)
	require.NoError(t, err)

	again, err := f.sprints.Activate(ctx, alice.ID, created.Sprint.ID)
	require.NoError(t, err)
	require.True(t, again.AlreadyActive)
	require.EqualValues(t, 1, f.activeCount(ws))
}

func TestSprintActivationKeepsWorkspacesIndependent(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user("alice")
	team := f.team(alice, "Platform")
	ctx := context.Background()

	personal, err := f.sprints.Create(ctx, alice.ID, PersonalWorkspace(alice.ID), sprintInput("Mine"))
	require.NoError(t, err)
	shared, err := f.sprints.Create(ctx, alice.ID, TeamWorkspace(team.ID), sprintInput("Ours"))
	require.NoError(t, err)

	_, err = f.sprints.Activate(ctx, alice.ID, personal.Sprint.ID)
	require.NoError(t, err)
	_, err = f.sprints.Activate(ctx, alice.ID, shared.Sprint.ID)
	require.NoError(t, err)

	require.True(t, f.reloadSprint(personal.Sprint.ID).IsActive)
	require.True(t, f.reloadSprint(shared.Sprint.ID).IsActive)
}

func TestConcurrentActivationLeavesOneActiveSprint(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user("alice")
	ws := PersonalWorkspace(alice.ID)
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"A", "B", "C", "D"} {
		res, err := f.sprints.Create(ctx, alice.ID, ws, sprintInput(name))
		require.NoError(t, err)
		ids = append(ids, res.Sprint.ID)
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(ids))
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.sprints.Activate(ctx, alice.ID, id)
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			require.ErrorIs(t, err, ErrSprintAlreadyActive)
		}
	}
	require.EqualValues(t, 1, f.activeCount(ws))
}

func TestConcurrentActivationOnFileStore(t *testing.T) {
	f := newFixtureOn(t, testutil.MustOpenTestDB(t, testutil.WithAutoMigrate(), testutil.WithFileStore()), nil)
	ctx := context.Background()

	for round := 0; round < 10; round++ {
		owner := f.user(fmt.Sprintf("owner-%d", round))
		ws := PersonalWorkspace(owner.ID)

		var ids []string
		for i := 0; i < 6; i++ {
			res, err := f.sprints.Create(ctx, owner.ID, ws, sprintInput(fmt.Sprintf("S%d", i)))
			require.NoError(t, err)
			ids = append(ids, res.Sprint.ID)
		}
		_, err := f.sprints.Activate(ctx, owner.ID, ids[0])
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make(chan error, 2*len(ids))
		for i, id := range ids {
			wg.Add(2)
			go func(id string) {
				defer wg.Done()
				_, err := f.sprints.Activate(ctx, owner.ID, id)
				errs <- err
			}(id)
			go func(title string) {
				defer wg.Done()
				_, err := f.tasks.Create(ctx, owner.ID, ws, CreateTaskInput{Title: title})
				errs <- err
			}(fmt.Sprintf("task-%d", i))
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			if err != nil {
				require.ErrorIs(t, err, ErrSprintAlreadyActive, "round %d", round)
			}
		}
		require.EqualValues(t, 1, f.activeCount(ws), "round %d", round)

		active, err := activeSprint(f.db, ws)
		require.NoError(t, err)
		var stranded int64
		require.NoError(t, ws.Scope(f.db.Model(&models.Task{})).
			Where("sprint_id <> ? AND status <> ?", active.ID, models.TaskStatusDone).
			Count(&stranded).Error)
		require.Zero(t, stranded, "round %d: unfinished tasks left outside the active sprint", round)
	}
}

func TestActivationConflictsWithForeignActiveKey(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user("alice")
	ws := PersonalWorkspace(alice.ID)
	ctx := context.Background()

	racing, err := f.sprints.Create(ctx, alice.ID, ws, sprintInput("Racing"))
	require.NoError(t, err)
	target, err := f.sprints.Create(ctx, alice.ID, ws, sprintInput("Target"))
	require.NoError(t, err)

	// A commit that claimed the workspace slot without being visible as active yet.
	require.NoError(t, f.db.Model(&models.Sprint{}).
		Where("id = ?", racing.Sprint.ID).
		Update("active_key", ws.Key()).Error)

	_, err = f.sprints.Activate(ctx, alice.ID, target.Sprint.ID)
	require.ErrorIs(t, err, ErrSprintAlreadyActive)
	require.False(t, f.reloadSprint(target.Sprint.ID).IsActive)
}

func TestSprintCompleteReturnsUnfinishedTasksToBacklog(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user("alice")
	ws := PersonalWorkspace(alice.ID)
	ctx := context.Background()

	sprint, err := f.sprints.Create(ctx, alice.ID, ws, CreateSprintInput{
		Name: "S1", StartDate: day("2024-03-01"), EndDate: day("2024-03-14"), Activate: true,
	})
	require.NoError(t, err)

	statuses := []string{"TODO", "IN_PROGRESS", "DONE", "DONE"}
	ids := make([]string, 0, len(statuses))
	for _, status := range statuses {
		task, err := f.tasks.Create(ctx, alice.ID, ws, CreateTaskInput{Title: status, Status: status})
		require.NoError(t, err)
		ids = append(ids, task.ID)
	}

	moved, err := f.sprints.Complete(ctx, alice.ID, sprint.Sprint.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, moved)

	require.Nil(t, f.reloadTask(ids[0]).SprintID)
	require.Nil(t, f.reloadTask(ids[1]).SprintID)
	require.NotNil(t, f.reloadTask(ids[2]).SprintID)
	require.NotNil(t, f.reloadTask(ids[3]).SprintID)

	completed := f.reloadSprint(sprint.Sprint.ID)
	require.False(t, completed.IsActive)
	require.Nil(t, completed.ActiveKey)
	require.True(t, completed.Completed())
}

func TestSprintDeleteClearsTaskReferences(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user("alice")
	ws := PersonalWorkspace(alice.ID)
	ctx := context.Background()

	sprint, err := f.sprints.Create(ctx, alice.ID, ws, CreateSprintInput{
		Name: "S1", StartDate: day("2024-03-01"), EndDate: day("2024-03-14"), Activate: true,
	})
	require.NoError(t, err)

	open, err := f.tasks.Create(ctx, alice.ID, ws, CreateTaskInput{Title: "open"})
	require.NoError(t, err)
	done, err := f.tasks.Create(ctx, alice.ID, ws, CreateTaskInput{Title: "done", Status: "DONE"})
	require.NoError(t, err)

	require.NoError(t, f.sprints.Delete(ctx, alice.ID, sprint.Sprint.ID))

	require.Nil(t, f.reloadTask(open.ID).SprintID)
	require.Nil(t, f.reloadTask(done.ID).SprintID)

	_, err = f.sprints.Get(ctx, alice.ID, sprint.Sprint.ID)
	require.ErrorIs(t, err, ErrAccessDenied)
	require.EqualValues(t, 0, f.activeCount(ws))
}

func TestSprintUpdateRevalidatesDates(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user("alice")
	ws := PersonalWorkspace(alice.ID)
	ctx := context.Background()

	created, err := f.sprints.Create(ctx, alice.ID, ws, CreateSprintInput{
		Name: "S1", StartDate: day("2024-03-01"), EndDate: day("2024-03-14"), Activate: true,
	})
	require.NoError(t, err)

	early := day("2024-02-01")
	_, err = f.sprints.Update(ctx, alice.ID, created.Sprint.ID, UpdateSprintInput{EndDate: &early})
	require.ErrorIs(t, err, apperrors.ErrValidation)

	name := "Renamed"
	goal := "Ship it"
	later := day("2024-03-21")
	updated, err := f.sprints.Update(ctx, alice.ID, created.Sprint.ID, UpdateSprintInput{Name: &name, Goal: &goal, EndDate: &later})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Name)
	require.Equal(t, "Ship it", updated.Goal)
	require.True(t, time.Time(updated.EndDate).Equal(later))
	require.True(t, updated.IsActive)
}

func TestSprintListOrdersByStartDateDescending(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user("alice")
	ws := PersonalWorkspace(alice.ID)
	ctx := context.Background()

	for _, in := range []CreateSprintInput{
		{Name: "Old", StartDate: day("2024-01-01"), EndDate: day("2024-01-14")},
		{Name: "New", StartDate: day("2024-05-01"), EndDate: day("2024-05-14")},
		{Name: "Mid", StartDate: day("2024-03-01"), EndDate: day("2024-03-14")},
	} {
		_, err := f.sprints.Create(ctx, alice.ID, ws, in)
		require.NoError(t, err)
	}

	sprints, err := f.sprints.List(ctx, alice.ID, ws)
	require.NoError(t, err)
	require.Len(t, sprints, 3)
	require.Equal(t, []string{"New", "Mid", "Old"}, []string{sprints[0].Name, sprints[1].Name, sprints[2].Name})

	bob := f.user("bob")
	_, err = f.sprints.List(ctx, bob.ID, ws)
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestOutsiderCannotDistinguishMissingFromForeignIDs(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user("alice")
	mallory := f.user("mallory")
	team := f.team(alice, "Platform")
	ws := TeamWorkspace(team.ID)
	ctx := context.Background()

	sprint, err := f.sprints.Create(ctx, alice.ID, ws, sprintInput("S1"))
	require.NoError(t, err)
	task, err := f.tasks.Create(ctx, alice.ID, ws, CreateTaskInput{Title: "secret"})
	require.NoError(t, err)

	for _, id := range []string{sprint.Sprint.ID, "00000000-0000-4000-8000-000000000000"} {
		_, err = f.sprints.Get(ctx, mallory.ID, id)
		require.ErrorIs(t, err, ErrAccessDenied)
		_, err = f.sprints.Activate(ctx, mallory.ID, id)
		require.ErrorIs(t, err, ErrAccessDenied)
		require.ErrorIs(t, f.sprints.Delete(ctx, mallory.ID, id), ErrAccessDenied)
	}
	for _, id := range []string{task.ID, "00000000-0000-4000-8000-000000000000"} {
		_, err = f.tasks.Get(ctx, mallory.ID, id)
		require.ErrorIs(t, err, ErrAccessDenied)
		_, err = f.tasks.UpdateStatus(ctx, mallory.ID, id, "DONE")
		require.ErrorIs(t, err, ErrAccessDenied)
		require.ErrorIs(t, f.tasks.Delete(ctx, mallory.ID, id), ErrAccessDenied)
	}
}
