package session

import (
	"context"
	"sync"

	"secret-santa-wishlist/internal/domain"
)

// MemoryStore is the session store used when no Redis is configured and in
// tests. Scenes do not survive a restart, which only costs users a trip
// back to the main menu.
type MemoryStore struct {
	mu     sync.Mutex
	states map[int64]domain.State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[int64]domain.State)}
}

func (s *MemoryStore) Get(_ context.Context, chatID int64) (domain.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.states[chatID]; ok {
		return state, nil
	}
	return domain.StateMenu, nil
}

func (s *MemoryStore) Set(_ context.Context, chatID int64, state domain.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[chatID] = state
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, chatID)
	return nil
}
