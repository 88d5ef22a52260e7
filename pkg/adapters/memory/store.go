package memory

import (
	"context"
	"sync"

	"github.com/aretw0/manifold/pkg/domain"
	"github.com/google/uuid"
)

// Store implements ports.EntityStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Entity
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Entity),
	}
}

// Save persists the entity in memory and assigns it a fresh version token.
func (s *Store) Save(ctx context.Context, entity *domain.Entity, expectedVersion string) (string, error) {
	// Copy before taking the lock so the caller's value is never retained.
	stored := entity.Clone()
	stored.Version = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	if expectedVersion != "" {
		current, ok := s.data[entity.ID]
		if !ok || current.Version != expectedVersion {
			return "", domain.ErrVersionConflict
		}
	}
	s.data[entity.ID] = stored
	return stored.Version, nil
}

// Load retrieves the entity from memory.
func (s *Store) Load(ctx context.Context, id string) (*domain.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entity, ok := s.data[id]
	if !ok {
		return nil, domain.ErrEntityNotFound
	}

	// Copy on read so callers can't mutate store state through the pointer.
	return entity.Clone(), nil
}

// Delete removes the entity.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns stored entity ids.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}
