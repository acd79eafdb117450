package postgres

import (
	"context"
	"fmt"
	"time"

	"multichain-token-lab/internal/domain"
	"multichain-token-lab/internal/overrides"
	"multichain-token-lab/internal/storage"
)

// OverrideStore implements storage.OverrideStore using PostgreSQL.
type OverrideStore struct {
	pool     *Pool
	observer storage.QueryObserver
}

// NewOverrideStore creates a new OverrideStore.
func NewOverrideStore(pool *Pool, opts ...StoreOption) *OverrideStore {
	o := applyStoreOptions(opts)
	return &OverrideStore{pool: pool, observer: o.observer}
}

// Compile-time interface check.
var _ storage.OverrideStore = (*OverrideStore)(nil)

// Put inserts or replaces the override for id.
func (s *OverrideStore) Put(ctx context.Context, id domain.TokenID, entry overrides.Entry) (err error) {
	if id == "" {
		return storage.ErrInvalidInput
	}

	defer s.observe("put_override", time.Now(), &err)

	query := `
		INSERT INTO token_overrides (token_id, excluded, part_of, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (token_id) DO UPDATE SET
			excluded = EXCLUDED.excluded,
			part_of = EXCLUDED.part_of,
			updated_at = NOW()
	`

	// nil encodes as NULL, an empty slice as '{}'.
	var partOf []string
	if !entry.Exclude {
		partOf = make([]string, 0, len(entry.PartOf))
		for _, target := range entry.PartOf {
			partOf = append(partOf, string(target))
		}
	}

	if _, err := s.pool.Exec(ctx, query, string(id), entry.Exclude, partOf); err != nil {
		return fmt.Errorf("put override: %w", err)
	}
	return nil
}

// Delete removes the override for id. Returns ErrNotFound if not exists.
func (s *OverrideStore) Delete(ctx context.Context, id domain.TokenID) (err error) {
	defer s.observe("delete_override", time.Now(), &err)

	tag, err := s.pool.Exec(ctx, `DELETE FROM token_overrides WHERE token_id = $1`, string(id))
	if err != nil {
		return fmt.Errorf("delete override: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetAll loads every override into an immutable table.
func (s *OverrideStore) GetAll(ctx context.Context) (_ *overrides.Table, err error) {
	defer s.observe("get_overrides", time.Now(), &err)

	rows, err := s.pool.Query(ctx, `SELECT token_id, excluded, part_of FROM token_overrides`)
	if err != nil {
		return nil, fmt.Errorf("query overrides: %w", err)
	}
	defer rows.Close()

	entries := make(map[domain.TokenID]overrides.Entry)
	for rows.Next() {
		var (
			id       string
			excluded bool
			partOf   []string
		)
		if err := rows.Scan(&id, &excluded, &partOf); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}

		if excluded {
			entries[domain.TokenID(id)] = overrides.Excluded()
			continue
		}
		targets := make([]domain.TokenID, 0, len(partOf))
		for _, target := range partOf {
			targets = append(targets, domain.TokenID(target))
		}
		entries[domain.TokenID(id)] = overrides.Entry{PartOf: targets}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overrides: %w", err)
	}

	return overrides.NewTable(entries), nil
}

func (s *OverrideStore) observe(operation string, start time.Time, err *error) {
	if s.observer != nil {
		s.observer.ObserveQuery(operation, time.Since(start), *err)
	}
}
