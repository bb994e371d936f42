package models

import "strings"

// TaskStatus is the kanban column of a task.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
)

// TaskStatuses lists the board columns in display order.
var TaskStatuses = []TaskStatus{TaskStatusTodo, TaskStatusInProgress, TaskStatusDone}

// ParseTaskStatus normalises a status value, reporting false for unknown values.
func ParseTaskStatus(value string) (TaskStatus, bool) {
	status := TaskStatus(strings.ToUpper(strings.TrimSpace(value)))
	switch status {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return status, true
	default:
		return "", false
	}
}

// TaskPriority orders tasks inside a column.
type TaskPriority string

const (
	TaskPriorityHigh   TaskPriority = "HIGH"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityLow    TaskPriority = "LOW"
)

// ParseTaskPriority normalises a priority value, reporting false for unknown values.
func ParseTaskPriority(value string) (TaskPriority, bool) {
	priority := TaskPriority(strings.ToUpper(strings.TrimSpace(value)))
	switch priority {
	case TaskPriorityHigh, TaskPriorityMedium, TaskPriorityLow:
		return priority, true
	default:
		return "", false
	}
}

// Rank returns a sortable weight; higher means more urgent.
func (p TaskPriority) Rank() int {
	switch p {
	case TaskPriorityHigh:
		return 3
	case TaskPriorityMedium:
		return 2
	case TaskPriorityLow:
		return 1
	default:
		return 0
	}
}

// Task is a unit of work that lives in a sprint or, with no sprint, in the backlog.
type Task struct {
	BaseModel

	Title       string       `gorm:"not null;size:200" json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `gorm:"size:16;not null;index" json:"status"`
	Priority    TaskPriority `gorm:"size:8;not null" json:"priority"`
	StoryPoints int          `gorm:"not null;default:0" json:"story_points"`

	AssigneeID *string `gorm:"size:36;index" json:"assignee_id"`
	Assignee   *User   `gorm:"foreignKey:AssigneeID;constraint:OnDelete:SET NULL" json:"assignee,omitempty"`

	SprintID *string `gorm:"size:36;index" json:"sprint_id"`
	Sprint   *Sprint `gorm:"foreignKey:SprintID;constraint:OnDelete:SET NULL" json:"-"`
	Source   string  `gorm:"size:200" json:"source,omitempty"`

	WorkspaceKey string  `gorm:"size:80;not null;index" json:"-"`
	TeamID       *string `gorm:"size:36;index" json:"team_id"`
	Team         *Team   `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedByID  string  `gorm:"size:36;not null;index" json:"created_by_id"`
	CreatedBy    *User   `gorm:"foreignKey:CreatedByID" json:"-"`
}

// InBacklog reports whether the task has no sprint.
func (t *Task) InBacklog() bool {
	return t != nil && t.SprintID == nil
}
