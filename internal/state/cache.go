package state

import (
	"context"
	"sync"

	"github.com/vibesense/vibesense/internal/domain"
)

// Manager is the in-memory latest-suggestion cache, the default backend
// when Redis is not configured.
type Manager struct {
	mu     sync.RWMutex
	latest map[string]domain.Suggestion
}

// NewManager creates a new in-memory suggestion cache.
func NewManager() *Manager {
	return &Manager{
		latest: make(map[string]domain.Suggestion),
	}
}

// SetLatest stores the most recent suggestion for its user.
func (m *Manager) SetLatest(_ context.Context, suggestion domain.Suggestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest[suggestion.UserID] = suggestion
	return nil
}

// Latest returns the most recent suggestion for a user, or nil when none
// has been stored yet.
func (m *Manager) Latest(_ context.Context, userID string) (*domain.Suggestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	suggestion, ok := m.latest[userID]
	if !ok {
		return nil, nil
	}
	return &suggestion, nil
}
