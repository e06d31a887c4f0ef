package session

import (
	"context"
	"sync"

	"github.com/m3rciful/askbot/core/provider"
)

// Memory is a Store guarded by a single RWMutex.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]State
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]State)}
}

func (m *Memory) Provider(_ context.Context, userID string) (provider.ID, bool, error) {
	if userID == "" {
		return "", false, ErrEmptyUserID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.sessions[userID]
	if !ok || st.SelectedProvider == "" {
		return "", false, nil
	}
	return st.SelectedProvider, true, nil
}

func (m *Memory) SetProvider(_ context.Context, userID string, id provider.ID) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.sessions[userID]
	st.SelectedProvider = id
	m.sessions[userID] = st
	return nil
}

// Len reports how many users have a session.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
