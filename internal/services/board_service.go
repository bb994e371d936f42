package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/sprintboard/internal/models"
)

// BoardColumn holds the tasks of one status, most urgent first.
type BoardColumn struct {
	Status models.TaskStatus `json:"status"`
	Tasks  []models.Task     `json:"tasks"`
}

// Board is the read-only projection rendered for a workspace.
type Board struct {
	Workspace Workspace       `json:"workspace"`
	Role      models.TeamRole `json:"role"`
	Sprint    *models.Sprint  `json:"sprint"`
	Columns   []BoardColumn   `json:"columns"`
	Backlog   []models.Task   `json:"backlog"`
	Sprints   []models.Sprint `json:"sprints"`
}

// Column returns the column for status, or nil when absent.
func (b *Board) Column(status models.TaskStatus) *BoardColumn {
	for i := range b.Columns {
		if b.Columns[i].Status == status {
			return &b.Columns[i]
		}
	}
	return nil
}

// BoardService assembles board projections.
type BoardService struct {
	db        *gorm.DB
	authority *RoleAuthority
}

// NewBoardService constructs a BoardService.
func NewBoardService(db *gorm.DB, authority *RoleAuthority) (*BoardService, error) {
	if db == nil {
		return nil, errors.New("board service: db is required")
	}
	if authority == nil {
		return nil, errors.New("board service: role authority is required")
	}
	return &BoardService{db: db, authority: authority}, nil
}

// Project builds the board for ws. An explicit sprintID must belong to ws;
// otherwise the active sprint is shown, or no sprint at all.
func (s *BoardService) Project(ctx context.Context, actorID string, ws Workspace, sprintID string) (*Board, error) {
	ctx = ensureContext(ctx)

	decision, err := s.authority.Authorize(ctx, actorID, ws, CapabilityView)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	board := &Board{Workspace: ws, Role: decision.Role}

	sprint, err := s.selectSprint(db, ws, strings.TrimSpace(sprintID))
	if err != nil {
		return nil, err
	}
	board.Sprint = sprint

	var sprintTasks []models.Task
	if sprint != nil {
		if err := ws.Scope(db).
			Preload("Assignee").
			Where("sprint_id = ?", sprint.ID).
			Find(&sprintTasks).Error; err != nil {
			return nil, fmt.Errorf("board service: load sprint tasks: %w", err)
		}
	}
	board.Columns = partitionColumns(sprintTasks)

	if err := ws.Scope(db).
		Preload("Assignee").
		Where("sprint_id IS NULL").
		Order("created_at ASC").
		Order("id ASC").
		Find(&board.Backlog).Error; err != nil {
		return nil, fmt.Errorf("board service: load backlog: %w", err)
	}

	sprints, err := listSprints(db, ws)
	if err != nil {
		return nil, err
	}
	board.Sprints = sprints

	return board, nil
}

func (s *BoardService) selectSprint(db *gorm.DB, ws Workspace, sprintID string) (*models.Sprint, error) {
	if sprintID != "" {
		var sprint models.Sprint
		err := ws.Scope(db).Where("id = ?", sprintID).Take(&sprint).Error
		if isNotFound(err) {
			return nil, ErrSprintNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("board service: load sprint: %w", err)
		}
		return &sprint, nil
	}

	sprint, err := activeSprint(db, ws)
	if err != nil {
		return nil, fmt.Errorf("board service: %w", err)
	}
	return sprint, nil
}

func partitionColumns(tasks []models.Task) []BoardColumn {
	columns := make([]BoardColumn, len(models.TaskStatuses))
	index := make(map[models.TaskStatus]int, len(models.TaskStatuses))
	for i, status := range models.TaskStatuses {
		columns[i] = BoardColumn{Status: status, Tasks: []models.Task{}}
		index[status] = i
	}

	for _, task := range tasks {
		i, ok := index[task.Status]
		if !ok {
			continue
		}
		columns[i].Tasks = append(columns[i].Tasks, task)
	}

	for i := range columns {
		sortColumn(columns[i].Tasks)
	}
	return columns
}

// sortColumn orders by priority, then newest first, then id for a stable result.
func sortColumn(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
			return ra > rb
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
