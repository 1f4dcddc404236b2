// Package timers owns the deferred pause notifications. The registry
// holds at most one live timer per user; scheduling over an existing
// timer replaces it.
package timers

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"github.com/prostoMif/UnTT-v1.0/core/logger"
)

// Handle is an opaque reference to one scheduled timer.
type Handle struct {
	userID   int64
	firesAt  time.Time
	timer    *time.Timer
	canceled bool
}

// FiresAt reports when the timer is due.
func (h *Handle) FiresAt() time.Time {
	return h.firesAt
}

// Manager keeps the per-user timer registry. It is the only owner of
// the registry map; nothing else may touch it.
type Manager struct {
	mu      sync.Mutex
	pending map[int64]*Handle

	// newTimer is swapped in tests to fire synchronously.
	newTimer func(d time.Duration, fn func()) *time.Timer
}

// NewManager returns an empty registry.
func NewManager() *Manager {
	return &Manager{
		pending:  make(map[int64]*Handle),
		newTimer: time.AfterFunc,
	}
}

// Schedule arms a one-shot timer for the user. Any timer already
// registered for the same user is cancelled first, so duplicate
// notifications cannot happen. The fire callback runs on the timer
// goroutine after the handle has been deregistered.
func (m *Manager) Schedule(ctx context.Context, userID int64, d time.Duration, onFire func()) *Handle {
	m.mu.Lock()
	if old, ok := m.pending[userID]; ok {
		old.canceled = true
		old.timer.Stop()
		delete(m.pending, userID)
		logger.Debug(ctx, "service.timers", "timer.replaced",
			slog.Int64("user_id", userID),
		)
	}

	h := &Handle{userID: userID, firesAt: time.Now().Add(d)}
	h.timer = m.newTimer(d, func() {
		m.fire(h, onFire)
	})
	m.pending[userID] = h
	m.mu.Unlock()

	logger.Debug(ctx, "service.timers", "timer.scheduled",
		slog.Int64("user_id", userID),
		slog.Int("minutes", int(d.Minutes())),
	)
	return h
}

// fire deregisters the handle first, then runs the callback, so a
// cancel racing with the fire observes an empty registry and no-ops.
func (m *Manager) fire(h *Handle, onFire func()) {
	m.mu.Lock()
	if h.canceled {
		m.mu.Unlock()
		return
	}
	// Remove only our own handle. A replacement timer installed after
	// this one was cancelled must not be deleted by our cleanup.
	if cur, ok := m.pending[h.userID]; ok && cur == h {
		delete(m.pending, h.userID)
	}
	m.mu.Unlock()

	if onFire != nil {
		onFire()
	}
}

// Cancel stops the user's pending timer if one exists. Calling it with
// no timer registered is a no-op.
func (m *Manager) Cancel(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.pending[userID]
	if !ok {
		return false
	}
	h.canceled = true
	h.timer.Stop()
	delete(m.pending, userID)
	return true
}

// Pending reports whether the user currently has a live timer.
func (m *Manager) Pending(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.pending[userID]
	return ok
}

// Len reports the number of live timers across all users.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}
