package storage

import (
	"context"

	"multichain-token-lab/internal/domain"
	"multichain-token-lab/internal/overrides"
)

// TokenRecordStore provides access to token_records storage.
type TokenRecordStore interface {
	// UpsertBulk inserts or refreshes records by token_id. Fails entire batch on invalid input.
	UpsertBulk(ctx context.Context, records []*domain.TokenRecord) error

	// GetByID retrieves a record by token id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id domain.TokenID) (*domain.TokenRecord, error)

	// GetByChain retrieves all records of a chain, ordered by token_id ASC.
	GetByChain(ctx context.Context, chainID uint64) ([]*domain.TokenRecord, error)

	// GetAll retrieves all records, ordered by chain_id, token_id ASC.
	GetAll(ctx context.Context) ([]*domain.TokenRecord, error)
}

// OverrideStore provides access to token_overrides storage.
type OverrideStore interface {
	// Put inserts or replaces the override for id.
	Put(ctx context.Context, id domain.TokenID, entry overrides.Entry) error

	// Delete removes the override for id. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, id domain.TokenID) error

	// GetAll loads every override into an immutable table.
	GetAll(ctx context.Context) (*overrides.Table, error)
}

// SnapshotStore provides access to multichain_snapshots storage.
// Snapshots are run outputs; reconciliation never reads them back.
type SnapshotStore interface {
	// InsertBulk adds all snapshots of a run. Returns ErrDuplicateKey if (run_id, anchor_id) exists.
	InsertBulk(ctx context.Context, snapshots []*domain.MultichainSnapshot) error

	// GetByRun retrieves a run's snapshots, ordered by total_value_pooled_usd DESC.
	GetByRun(ctx context.Context, runID string) ([]*domain.MultichainSnapshot, error)

	// GetLatestRunID returns the run id with the newest computed_at. Returns ErrNotFound if empty.
	GetLatestRunID(ctx context.Context) (string, error)
}
