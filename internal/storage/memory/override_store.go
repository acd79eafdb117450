package memory

import (
	"context"
	"slices"
	"sync"

	"multichain-token-lab/internal/domain"
	"multichain-token-lab/internal/overrides"
	"multichain-token-lab/internal/storage"
)

// OverrideStore is an in-memory implementation of storage.OverrideStore.
type OverrideStore struct {
	mu      sync.RWMutex
	entries map[domain.TokenID]overrides.Entry
}

// NewOverrideStore creates a new in-memory override store.
func NewOverrideStore() *OverrideStore {
	return &OverrideStore{
		entries: make(map[domain.TokenID]overrides.Entry),
	}
}

// Put inserts or replaces the override for id.
func (s *OverrideStore) Put(_ context.Context, id domain.TokenID, entry overrides.Entry) error {
	if id == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[id] = cloneEntry(entry)
	return nil
}

// Delete removes the override for id. Returns ErrNotFound if not exists.
func (s *OverrideStore) Delete(_ context.Context, id domain.TokenID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; !exists {
		return storage.ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

// GetAll loads every override into an immutable table.
func (s *OverrideStore) GetAll(_ context.Context) (*overrides.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return overrides.NewTable(s.entries), nil
}

func cloneEntry(e overrides.Entry) overrides.Entry {
	if e.PartOf != nil {
		e.PartOf = slices.Clone(e.PartOf)
	}
	return e
}

var _ storage.OverrideStore = (*OverrideStore)(nil)
