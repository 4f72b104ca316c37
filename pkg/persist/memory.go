package persist

import (
	"context"
	"sync"
)

// MemoryStore is the default in-process EntityStore. Entities live until
// flushed or the process exits.
type MemoryStore struct {
	mu       sync.RWMutex
	entities map[string]*Entity
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entities: make(map[string]*Entity)}
}

func key(entityType, id string) string {
	return entityType + "." + id
}

// Get implements EntityStore.
func (s *MemoryStore) Get(_ context.Context, entityType, id string) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[key(entityType, id)]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// Put implements EntityStore.
func (s *MemoryStore) Put(_ context.Context, e *Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[key(e.EntityType, e.ID)] = e
	return nil
}

// Delete implements EntityStore.
func (s *MemoryStore) Delete(_ context.Context, entityType, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(entityType, id)
	if _, ok := s.entities[k]; !ok {
		return ErrNotFound
	}
	delete(s.entities, k)
	return nil
}

// List implements EntityStore.
func (s *MemoryStore) List(_ context.Context, entityType string) ([]*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Entity
	for _, e := range s.entities {
		if e.EntityType == entityType {
			out = append(out, e)
		}
	}
	return out, nil
}

// Flush implements EntityStore.
func (s *MemoryStore) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = make(map[string]*Entity)
	return nil
}

// Len reports the number of stored entities.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// Close implements EntityStore.
func (s *MemoryStore) Close() error { return nil }
