// Package notify keeps the stack of transient notifications for one
// controller.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skinguard/backend/internal/models"
)

// DefaultDuration is how long a notification stays visible.
const DefaultDuration = 5 * time.Second

// Notifier holds active notifications and dismisses each one after a
// fixed duration. Notifications stack; pushing one never removes another.
type Notifier struct {
	mu       sync.Mutex
	duration time.Duration
	active   []models.Notification
	timers   map[string]*time.Timer
	onChange func()
}

// New creates a notifier. A non-positive duration selects DefaultDuration.
func New(duration time.Duration) *Notifier {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Notifier{
		duration: duration,
		timers:   make(map[string]*time.Timer),
	}
}

// OnChange registers a callback run after every push or dismissal. It is
// called without the notifier lock held.
func (n *Notifier) OnChange(fn func()) {
	n.mu.Lock()
	n.onChange = fn
	n.mu.Unlock()
}

// Error pushes an error notification.
func (n *Notifier) Error(message string) models.Notification {
	return n.Push(models.LevelError, message)
}

// Push adds a notification and schedules its dismissal.
func (n *Notifier) Push(level models.NotificationLevel, message string) models.Notification {
	now := time.Now()
	note := models.Notification{
		ID:        uuid.New().String(),
		Message:   message,
		Level:     level,
		CreatedAt: now,
		ExpiresAt: now.Add(n.duration),
	}

	n.mu.Lock()
	n.active = append(n.active, note)
	n.timers[note.ID] = time.AfterFunc(n.duration, func() { n.Dismiss(note.ID) })
	onChange := n.onChange
	n.mu.Unlock()

	if onChange != nil {
		onChange()
	}
	return note
}

// Dismiss removes a notification. It reports whether it was still active.
func (n *Notifier) Dismiss(id string) bool {
	n.mu.Lock()
	found := false
	for i, note := range n.active {
		if note.ID == id {
			n.active = append(n.active[:i], n.active[i+1:]...)
			found = true
			break
		}
	}
	if t, ok := n.timers[id]; ok {
		t.Stop()
		delete(n.timers, id)
	}
	onChange := n.onChange
	n.mu.Unlock()

	if found && onChange != nil {
		onChange()
	}
	return found
}

// Active returns the visible notifications, oldest first.
func (n *Notifier) Active() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.Notification, len(n.active))
	copy(out, n.active)
	return out
}

// Close stops pending dismissal timers.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, t := range n.timers {
		t.Stop()
		delete(n.timers, id)
	}
}
