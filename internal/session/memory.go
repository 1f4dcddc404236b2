package session

import (
	"context"
	"sync"
)

type memoryManager struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

// NewMemoryManager keeps sessions in process memory.
func NewMemoryManager() Manager {
	return &memoryManager{sessions: make(map[int64]Session)}
}

func (m *memoryManager) Get(_ context.Context, userID int64) Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[userID]; ok {
		return s
	}
	return Session{Step: StepIdle}
}

func (m *memoryManager) Put(_ context.Context, userID int64, s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = s
}

func (m *memoryManager) Clear(_ context.Context, userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

func (m *memoryManager) InProgress(ctx context.Context, userID int64) bool {
	return !m.Get(ctx, userID).Idle()
}
