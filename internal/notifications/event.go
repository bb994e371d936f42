package notifications

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mocks/mock_notifier.go -package=mocks github.com/charlesng35/sprintboard/internal/notifications Notifier

// EventType names a committed board mutation.
type EventType string

const (
	EventTeamCreated     EventType = "team.created"
	EventMemberAdded     EventType = "team.member_added"
	EventMemberRemoved   EventType = "team.member_removed"
	EventSprintCreated   EventType = "sprint.created"
	EventSprintUpdated   EventType = "sprint.updated"
	EventSprintActivated EventType = "sprint.activated"
	EventSprintCompleted EventType = "sprint.completed"
	EventSprintDeleted   EventType = "sprint.deleted"
	EventTaskCreated     EventType = "task.created"
	EventTaskUpdated     EventType = "task.updated"
	EventTaskMoved       EventType = "task.moved"
	EventTaskDeleted     EventType = "task.deleted"
)

// Event is delivered to listeners after the mutation it describes has committed.
type Event struct {
	Type       EventType      `json:"type"`
	Workspace  string         `json:"workspace"`
	ActorID    string         `json:"actor_id"`
	ResourceID string         `json:"resource_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Notifier receives mutation events. Implementations must not block for long;
// they run on the request goroutine.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, event Event)

// Notify calls f(ctx, event).
func (f NotifierFunc) Notify(ctx context.Context, event Event) {
	f(ctx, event)
}
