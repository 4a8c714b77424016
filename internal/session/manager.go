package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skinguard/backend/internal/analysis"
	"github.com/skinguard/backend/internal/hub"
)

// MaxSessions limits concurrent sessions to bound memory held by previews.
const MaxSessions = 200

// ErrTooManySessions is returned when MaxSessions is reached and no idle
// session could be evicted.
var ErrTooManySessions = errors.New("too many active sessions")

// ControllerFactory builds a fresh controller for a new session.
type ControllerFactory func() *analysis.Controller

// Session binds one browser page to its controller.
type Session struct {
	ID         string
	Controller *analysis.Controller
	CreatedAt  time.Time

	mu           sync.Mutex
	lastAccessed time.Time
}

// LastAccessed returns the last time the session was used.
func (s *Session) LastAccessed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed
}

// Touch marks the session as used.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastAccessed = time.Now()
	s.mu.Unlock()
}

// Manager owns the live sessions.
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	factory  ControllerFactory
	hub      *hub.Hub
	logger   *slog.Logger
}

// NewManager creates a session manager. Every controller change is
// published on h as a view snapshot.
func NewManager(factory ControllerFactory, h *hub.Hub, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		factory:  factory,
		hub:      h,
		logger:   logger.With("component", "session"),
	}
}

// Create starts a new session with an Idle controller.
func (m *Manager) Create() (*Session, error) {
	m.mu.RLock()
	full := len(m.sessions) >= MaxSessions
	m.mu.RUnlock()
	if full {
		m.CleanupOldSessions(SessionKeepAliveWindow)
	}

	now := time.Now()
	sess := &Session{
		ID:           uuid.New().String(),
		Controller:   m.factory(),
		CreatedAt:    now,
		lastAccessed: now,
	}

	m.mu.Lock()
	if len(m.sessions) >= MaxSessions {
		m.mu.Unlock()
		sess.Controller.Close()
		return nil, ErrTooManySessions
	}
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	if m.hub != nil {
		id, ctrl := sess.ID, sess.Controller
		ctrl.OnChange(func() { m.hub.Publish(id, ctrl.View()) })
	}

	m.logger.Info("session created", "session_id", sess.ID)
	return sess, nil
}

// Get returns a session and marks it as used.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		sess.Touch()
	}
	return sess, ok
}

// Delete drops a session and stops its timers.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		sess.Controller.Close()
		m.logger.Info("session deleted", "session_id", id)
	}
	return ok
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupOldSessions removes sessions not accessed within maxAge. A
// session with a live view subscriber is kept however old it is. It
// returns the number removed.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	var stale []*Session
	for id, sess := range m.sessions {
		if sess.LastAccessed().Before(cutoff) && !m.hasSubscribers(id) {
			stale = append(stale, sess)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, sess := range stale {
		sess.Controller.Close()
	}
	if len(stale) > 0 {
		m.logger.Info("cleaned up idle sessions", "count", len(stale))
	}
	return len(stale)
}

func (m *Manager) hasSubscribers(id string) bool {
	return m.hub != nil && m.hub.SubscriberCount(id) > 0
}

// Close drops every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.Controller.Close()
	}
}

// RunCleanup sweeps idle sessions every interval until ctx is done.
// Non-positive durations fall back to DefaultCleanupInterval and
// SessionMaxAge.
func (m *Manager) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	if maxAge <= 0 {
		maxAge = SessionMaxAge
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupOldSessions(maxAge)
		}
	}
}
