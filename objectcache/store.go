package objectcache

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// Store persists cache entries. Implementations must be safe for concurrent
// use and must not retain or hand out slices shared with the caller.
type Store interface {
	// Get returns the entry for key, or nil when there is none.
	Get(ctx context.Context, key string) (*Entry, error)
	// Set stores entry under entry.Key, replacing any previous one.
	Set(ctx context.Context, entry *Entry) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// KeysByType lists the keys whose entries contain resourceType.
	KeysByType(ctx context.Context, resourceType string) ([]string, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	byType  map[string]map[string]struct{}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*Entry),
		byType:  make(map[string]map[string]struct{}),
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[key].Clone(), nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unindex(entry.Key)
	s.entries[entry.Key] = entry.Clone()
	for _, t := range entry.Types {
		keys, ok := s.byType[t]
		if !ok {
			keys = make(map[string]struct{})
			s.byType[t] = keys
		}
		keys[entry.Key] = struct{}{}
	}
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unindex(key)
	delete(s.entries, key)
	return nil
}

// KeysByType implements Store.
func (s *MemoryStore) KeysByType(_ context.Context, resourceType string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.byType[resourceType])), nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) unindex(key string) {
	old, ok := s.entries[key]
	if !ok {
		return
	}
	for _, t := range old.Types {
		delete(s.byType[t], key)
		if len(s.byType[t]) == 0 {
			delete(s.byType, t)
		}
	}
}
