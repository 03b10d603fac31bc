package memory

import (
	"context"
	"sync"

	"audit-readiness-service/internal/domain"
)

// StateStore is an in-memory implementation of app.StateStore.
type StateStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewStateStore() *StateStore {
	return &StateStore{blobs: make(map[string][]byte)}
}

func (s *StateStore) Save(_ context.Context, key string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), blob...)
	return nil
}

func (s *StateStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[key]
	if !ok {
		return nil, domain.ErrAssessmentNotFound
	}
	return append([]byte(nil), blob...), nil
}

func (s *StateStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}
