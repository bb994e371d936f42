package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDispatcherFansOutInOrder(t *testing.T) {
	var seen []string
	first := NotifierFunc(func(_ context.Context, event Event) {
		seen = append(seen, "first:"+string(event.Type))
	})
	second := NotifierFunc(func(_ context.Context, event Event) {
		seen = append(seen, "second:"+string(event.Type))
	})

	d := NewDispatcher(first, nil)
	d.Subscribe(second)
	require.Equal(t, 2, d.Len())

	d.Notify(context.Background(), Event{Type: EventTaskCreated})
	require.Equal(t, []string{"first:task.created", "second:task.created"}, seen)
}

func TestDispatcherStampsOccurredAt(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	var got Event

	d := NewDispatcher(NotifierFunc(func(_ context.Context, event Event) {
		got = event
	}))
	d.now = func() time.Time { return fixed }

	d.Notify(nil, Event{Type: EventSprintActivated}) //nolint:staticcheck // nil context is tolerated
	require.Equal(t, fixed, got.OccurredAt)
}

func TestDispatcherSurvivesPanickingListener(t *testing.T) {
	delivered := false
	d := NewDispatcher(
		NotifierFunc(func(context.Context, Event) { panic("boom") }),
		NotifierFunc(func(context.Context, Event) { delivered = true }),
	)

	require.NotPanics(t, func() {
		d.Notify(context.Background(), Event{Type: EventTaskDeleted})
	})
	require.True(t, delivered)
}

func TestBuiltinListenersAcceptEvents(t *testing.T) {
	d := NewDispatcher(LogListener(nil), MetricsListener())
	require.NotPanics(t, func() {
		d.Notify(context.Background(), Event{Type: EventTaskMoved, Workspace: "team:1"})
	})
}
