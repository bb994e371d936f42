package services

import (
	"context"

	"github.com/charlesng35/sprintboard/internal/notifications"
)

func notify(ctx context.Context, notifier notifications.Notifier, event notifications.Event) {
	if notifier == nil {
		return
	}
	notifier.Notify(ctx, event)
}
