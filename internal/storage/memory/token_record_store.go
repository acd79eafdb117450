package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"multichain-token-lab/internal/domain"
	"multichain-token-lab/internal/storage"
)

// TokenRecordStore is an in-memory implementation of storage.TokenRecordStore.
type TokenRecordStore struct {
	mu      sync.RWMutex
	records map[domain.TokenID]*domain.TokenRecord
}

// NewTokenRecordStore creates a new in-memory token record store.
func NewTokenRecordStore() *TokenRecordStore {
	return &TokenRecordStore{
		records: make(map[domain.TokenID]*domain.TokenRecord),
	}
}

// UpsertBulk inserts or refreshes records. Fails entire batch on invalid input.
func (s *TokenRecordStore) UpsertBulk(_ context.Context, records []*domain.TokenRecord) error {
	for _, r := range records {
		if r == nil || r.ID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		recordCopy := *r
		s.records[r.ID] = &recordCopy
	}
	return nil
}

// GetByID retrieves a record by token id. Returns ErrNotFound if not exists.
func (s *TokenRecordStore) GetByID(_ context.Context, id domain.TokenID) (*domain.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.records[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	recordCopy := *r
	return &recordCopy, nil
}

// GetByChain retrieves all records of a chain, ordered by token_id ASC.
func (s *TokenRecordStore) GetByChain(_ context.Context, chainID uint64) ([]*domain.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TokenRecord
	for _, r := range s.records {
		if r.ChainID == chainID {
			recordCopy := *r
			result = append(result, &recordCopy)
		}
	}

	slices.SortFunc(result, func(a, b *domain.TokenRecord) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return result, nil
}

// GetAll retrieves all records, ordered by chain_id, token_id ASC.
func (s *TokenRecordStore) GetAll(_ context.Context) ([]*domain.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TokenRecord, 0, len(s.records))
	for _, r := range s.records {
		recordCopy := *r
		result = append(result, &recordCopy)
	}

	slices.SortFunc(result, func(a, b *domain.TokenRecord) int {
		if c := cmp.Compare(a.ChainID, b.ChainID); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return result, nil
}

var _ storage.TokenRecordStore = (*TokenRecordStore)(nil)
