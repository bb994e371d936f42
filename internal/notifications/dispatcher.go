package notifications

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/sprintboard/pkg/logger"
	"github.com/charlesng35/sprintboard/pkg/metrics"
)

// Dispatcher fans out events to every subscribed listener. A panicking listener
// is logged and skipped so one bad subscriber cannot fail a committed request.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners []Notifier
	now       func() time.Time
	log       *zap.Logger
}

// NewDispatcher constructs a dispatcher with optional initial listeners.
func NewDispatcher(listeners ...Notifier) *Dispatcher {
	d := &Dispatcher{
		now: time.Now,
		log: logger.WithModule("notifications"),
	}
	for _, l := range listeners {
		d.Subscribe(l)
	}
	return d
}

// Subscribe registers an additional listener.
func (d *Dispatcher) Subscribe(listener Notifier) {
	if listener == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, listener)
}

// Len returns the number of registered listeners.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners)
}

// Notify delivers the event to each listener in registration order.
func (d *Dispatcher) Notify(ctx context.Context, event Event) {
	if ctx == nil {
		ctx = context.Background()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = d.now().UTC()
	}

	d.mu.RLock()
	listeners := make([]Notifier, len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.RUnlock()

	for _, listener := range listeners {
		d.deliver(ctx, listener, event)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, listener Notifier, event Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("notification listener panicked",
				zap.String("event", string(event.Type)),
				zap.Any("error", r),
			)
		}
	}()
	listener.Notify(ctx, event)
}

// LogListener writes each event to the supplied logger at debug level.
func LogListener(log *zap.Logger) Notifier {
	if log == nil {
		log = logger.WithModule("notifications")
	}
	return NotifierFunc(func(_ context.Context, event Event) {
		log.Debug("board mutation",
			zap.String("event", string(event.Type)),
			zap.String("workspace", event.Workspace),
			zap.String("actor_id", event.ActorID),
			zap.String("resource_id", event.ResourceID),
			zap.Any("metadata", event.Metadata),
		)
	})
}

// MetricsListener counts events by type.
func MetricsListener() Notifier {
	return NotifierFunc(func(_ context.Context, event Event) {
		metrics.Mutations.WithLabelValues(string(event.Type)).Inc()
	})
}
