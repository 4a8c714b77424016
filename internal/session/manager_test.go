package session

import (
	"context"
	"testing"
	"time"

	"github.com/skinguard/backend/internal/analysis"
	"github.com/skinguard/backend/internal/hub"
	"github.com/skinguard/backend/internal/models"
	"github.com/skinguard/backend/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFactory() *analysis.Controller {
	return analysis.NewController(nil, analysis.Options{Notifier: notify.New(time.Minute)})
}

func TestSessionManager(t *testing.T) {
	m := NewManager(testFactory, nil, nil)
	defer m.Close()

	sess, err := m.Create()
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, models.StateIdle, sess.Controller.State())

	got, ok := m.Get(sess.ID)
	require.True(t, ok)
	assert.Same(t, sess, got)

	_, ok = m.Get("missing")
	assert.False(t, ok)

	assert.True(t, m.Delete(sess.ID))
	assert.False(t, m.Delete(sess.ID))
	assert.Equal(t, 0, m.Count())
}

func TestSessionsAreIndependent(t *testing.T) {
	m := NewManager(testFactory, nil, nil)
	defer m.Close()

	a, err := m.Create()
	require.NoError(t, err)
	b, err := m.Create()
	require.NoError(t, err)

	a.Controller.ShowError("only for a")
	assert.Len(t, a.Controller.View().Notifications, 1)
	assert.Empty(t, b.Controller.View().Notifications)
}

func TestCleanupOldSessions(t *testing.T) {
	m := NewManager(testFactory, nil, nil)
	defer m.Close()

	old, err := m.Create()
	require.NoError(t, err)
	fresh, err := m.Create()
	require.NoError(t, err)

	old.mu.Lock()
	old.lastAccessed = time.Now().Add(-time.Hour)
	old.mu.Unlock()

	assert.Equal(t, 1, m.CleanupOldSessions(30*time.Minute))
	_, ok := m.Get(old.ID)
	assert.False(t, ok)
	_, ok = m.Get(fresh.ID)
	assert.True(t, ok)
}

func TestControllerChangesArePublished(t *testing.T) {
	h := hub.New(nil)
	m := NewManager(testFactory, h, nil)
	defer m.Close()

	sess, err := m.Create()
	require.NoError(t, err)

	views, cancel := h.Subscribe(sess.ID)
	defer cancel()

	assert.ErrorIs(t, sess.Controller.Submit(context.Background()), analysis.ErrNoImage)

	select {
	case v := <-views:
		require.Len(t, v.Notifications, 1)
		assert.Equal(t, analysis.MsgNoImage, v.Notifications[0].Message)
	case <-time.After(time.Second):
		t.Fatal("no view published")
	}
}

func TestCleanupKeepsSessionsWithLiveSubscribers(t *testing.T) {
	h := hub.New(nil)
	m := NewManager(testFactory, h, nil)
	defer m.Close()

	watched, err := m.Create()
	require.NoError(t, err)
	idle, err := m.Create()
	require.NoError(t, err)

	for _, sess := range []*Session{watched, idle} {
		sess.mu.Lock()
		sess.lastAccessed = time.Now().Add(-time.Hour)
		sess.mu.Unlock()
	}

	_, cancel := h.Subscribe(watched.ID)
	defer cancel()

	assert.Equal(t, 1, m.CleanupOldSessions(30*time.Minute))
	_, ok := m.Get(watched.ID)
	assert.True(t, ok)
	_, ok = m.Get(idle.ID)
	assert.False(t, ok)
}

func TestTouchRefreshesLastAccessed(t *testing.T) {
	m := NewManager(testFactory, nil, nil)
	defer m.Close()

	sess, err := m.Create()
	require.NoError(t, err)
	sess.mu.Lock()
	sess.lastAccessed = time.Now().Add(-time.Hour)
	sess.mu.Unlock()

	sess.Touch()
	assert.WithinDuration(t, time.Now(), sess.LastAccessed(), time.Second)
	assert.Equal(t, 0, m.CleanupOldSessions(30*time.Minute))
}

func TestRunCleanupWithNonPositiveDurations(t *testing.T) {
	m := NewManager(testFactory, nil, nil)
	defer m.Close()

	sess, err := m.Create()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.RunCleanup(ctx, 0, 0)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunCleanup did not stop")
	}
	_, ok := m.Get(sess.ID)
	assert.True(t, ok)
}
