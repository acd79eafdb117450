package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"multichain-token-lab/internal/domain"
	"multichain-token-lab/internal/storage"
)

type snapshotKey struct {
	runID    string
	anchorID domain.TokenID
}

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[snapshotKey]*domain.MultichainSnapshot
	runs      map[string]int64 // run_id -> computed_at
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		snapshots: make(map[snapshotKey]*domain.MultichainSnapshot),
		runs:      make(map[string]int64),
	}
}

// InsertBulk adds snapshots atomically. Returns ErrDuplicateKey if any key exists.
func (s *SnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.MultichainSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[snapshotKey]struct{}, len(snapshots))
	for _, snap := range snapshots {
		if snap == nil || snap.RunID == "" || snap.AnchorID == "" {
			return storage.ErrInvalidInput
		}
		key := snapshotKey{runID: snap.RunID, anchorID: snap.AnchorID}
		if _, exists := s.snapshots[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, dup := seen[key]; dup {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	for _, snap := range snapshots {
		snapCopy := *snap
		snapCopy.MemberIDs = slices.Clone(snap.MemberIDs)
		s.snapshots[snapshotKey{runID: snap.RunID, anchorID: snap.AnchorID}] = &snapCopy
		if snap.ComputedAt >= s.runs[snap.RunID] {
			s.runs[snap.RunID] = snap.ComputedAt
		}
	}
	return nil
}

// GetByRun retrieves a run's snapshots, ordered by total_value_pooled_usd DESC.
func (s *SnapshotStore) GetByRun(_ context.Context, runID string) ([]*domain.MultichainSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MultichainSnapshot
	for key, snap := range s.snapshots {
		if key.runID != runID {
			continue
		}
		snapCopy := *snap
		snapCopy.MemberIDs = slices.Clone(snap.MemberIDs)
		result = append(result, &snapCopy)
	}

	slices.SortFunc(result, func(a, b *domain.MultichainSnapshot) int {
		if c := cmp.Compare(b.TotalValuePooledUsd, a.TotalValuePooledUsd); c != 0 {
			return c
		}
		return cmp.Compare(a.AnchorID, b.AnchorID)
	})
	return result, nil
}

// GetLatestRunID returns the run id with the newest computed_at. Returns ErrNotFound if empty.
func (s *SnapshotStore) GetLatestRunID(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest   string
		latestAt int64
		found    bool
	)
	for runID, at := range s.runs {
		// Ties resolve to the lexically greater run id so the answer is stable.
		if !found || at > latestAt || (at == latestAt && runID > latest) {
			latest, latestAt, found = runID, at, true
		}
	}
	if !found {
		return "", storage.ErrNotFound
	}
	return latest, nil
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
