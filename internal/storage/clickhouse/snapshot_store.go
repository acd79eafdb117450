package clickhouse

import (
	"context"
	"fmt"
	"time"

	"multichain-token-lab/internal/domain"
	"multichain-token-lab/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using ClickHouse.
type SnapshotStore struct {
	conn     *Conn
	observer storage.QueryObserver
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn, opts ...StoreOption) *SnapshotStore {
	s := &SnapshotStore{conn: conn}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StoreOption configures a SnapshotStore.
type StoreOption func(*SnapshotStore)

// WithObserver reports every query to o.
func WithObserver(o storage.QueryObserver) StoreOption {
	return func(s *SnapshotStore) {
		s.observer = o
	}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// InsertBulk adds a run's snapshots. Fails entire batch on any duplicate.
func (s *SnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.MultichainSnapshot) (err error) {
	if len(snapshots) == 0 {
		return nil
	}

	defer s.observe("insert_snapshots", time.Now(), &err)

	// Check for intra-batch duplicates
	seen := make(map[string]struct{}, len(snapshots))
	runs := make(map[string]struct{})
	for _, snap := range snapshots {
		if snap == nil || snap.RunID == "" || snap.AnchorID == "" {
			return storage.ErrInvalidInput
		}
		key := snap.RunID + "|" + string(snap.AnchorID)
		if _, exists := seen[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
		runs[snap.RunID] = struct{}{}
	}

	// ReplacingMergeTree would silently replace, so check existing rows per run.
	for runID := range runs {
		existing, err := s.anchorsOf(ctx, runID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for _, snap := range snapshots {
			if snap.RunID != runID {
				continue
			}
			if _, dup := existing[snap.AnchorID]; dup {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO multichain_snapshots (
			run_id, computed_at, anchor_id, name, symbol,
			chain_count, member_ids, membership_hash, total_value_pooled_usd
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snapshots {
		members := make([]string, len(snap.MemberIDs))
		for i, id := range snap.MemberIDs {
			members[i] = string(id)
		}
		err = batch.Append(
			snap.RunID, uint64(snap.ComputedAt), string(snap.AnchorID), snap.Name, snap.Symbol,
			snap.ChainCount, members, snap.MembershipHash, snap.TotalValuePooledUsd,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRun retrieves a run's snapshots, ordered by total_value_pooled_usd DESC.
func (s *SnapshotStore) GetByRun(ctx context.Context, runID string) (_ []*domain.MultichainSnapshot, err error) {
	defer s.observe("get_snapshots_by_run", time.Now(), &err)

	query := `
		SELECT
			run_id, computed_at, anchor_id, name, symbol,
			chain_count, member_ids, membership_hash, total_value_pooled_usd
		FROM multichain_snapshots FINAL
		WHERE run_id = ?
		ORDER BY total_value_pooled_usd DESC, anchor_id ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var result []*domain.MultichainSnapshot
	for rows.Next() {
		var (
			snap       domain.MultichainSnapshot
			computedAt uint64
			anchorID   string
			members    []string
		)
		if err := rows.Scan(
			&snap.RunID, &computedAt, &anchorID, &snap.Name, &snap.Symbol,
			&snap.ChainCount, &members, &snap.MembershipHash, &snap.TotalValuePooledUsd,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}

		snap.ComputedAt = int64(computedAt)
		snap.AnchorID = domain.TokenID(anchorID)
		snap.MemberIDs = make([]domain.TokenID, len(members))
		for i, m := range members {
			snap.MemberIDs[i] = domain.TokenID(m)
		}
		result = append(result, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return result, nil
}

// GetLatestRunID returns the run id with the newest computed_at. Returns ErrNotFound if empty.
func (s *SnapshotStore) GetLatestRunID(ctx context.Context) (_ string, err error) {
	defer s.observe("get_latest_run", time.Now(), &err)

	query := `
		SELECT run_id
		FROM multichain_snapshots
		GROUP BY run_id
		ORDER BY max(computed_at) DESC, run_id DESC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return "", fmt.Errorf("query latest run: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", fmt.Errorf("iterate latest run: %w", err)
		}
		return "", storage.ErrNotFound
	}

	var runID string
	if err := rows.Scan(&runID); err != nil {
		return "", fmt.Errorf("scan latest run: %w", err)
	}
	return runID, nil
}

func (s *SnapshotStore) anchorsOf(ctx context.Context, runID string) (map[domain.TokenID]struct{}, error) {
	rows, err := s.conn.Query(ctx, `SELECT anchor_id FROM multichain_snapshots WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	anchors := make(map[domain.TokenID]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		anchors[domain.TokenID(id)] = struct{}{}
	}
	return anchors, rows.Err()
}

func (s *SnapshotStore) observe(operation string, start time.Time, err *error) {
	if s.observer != nil {
		s.observer.ObserveQuery(operation, time.Since(start), *err)
	}
}
