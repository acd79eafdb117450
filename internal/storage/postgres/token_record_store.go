package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"multichain-token-lab/internal/domain"
	"multichain-token-lab/internal/storage"
)

// TokenRecordStore implements storage.TokenRecordStore using PostgreSQL.
type TokenRecordStore struct {
	pool     *Pool
	observer storage.QueryObserver
}

// NewTokenRecordStore creates a new TokenRecordStore.
func NewTokenRecordStore(pool *Pool, opts ...StoreOption) *TokenRecordStore {
	o := applyStoreOptions(opts)
	return &TokenRecordStore{pool: pool, observer: o.observer}
}

// Compile-time interface check.
var _ storage.TokenRecordStore = (*TokenRecordStore)(nil)

const upsertTokenRecordQuery = `
	INSERT INTO token_records (
		token_id, chain_id, address, name, symbol, normalized_name, normalized_symbol,
		logo_url, total_value_pooled_usd, price_usd, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (token_id) DO UPDATE SET
		name = EXCLUDED.name,
		symbol = EXCLUDED.symbol,
		normalized_name = EXCLUDED.normalized_name,
		normalized_symbol = EXCLUDED.normalized_symbol,
		logo_url = EXCLUDED.logo_url,
		total_value_pooled_usd = EXCLUDED.total_value_pooled_usd,
		price_usd = EXCLUDED.price_usd,
		updated_at = EXCLUDED.updated_at
`

const selectTokenRecordColumns = `
	SELECT token_id, chain_id, address, name, symbol, normalized_name, normalized_symbol,
		logo_url, total_value_pooled_usd, price_usd, updated_at
	FROM token_records
`

// UpsertBulk inserts or refreshes records atomically. Fails entire batch on invalid input.
func (s *TokenRecordStore) UpsertBulk(ctx context.Context, records []*domain.TokenRecord) (err error) {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if r == nil || r.ID == "" {
			return storage.ErrInvalidInput
		}
	}

	defer s.observe("upsert_tokens", time.Now(), &err)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(upsertTokenRecordQuery,
			string(r.ID), r.ChainID, r.Address, r.Name, r.Symbol,
			r.NormalizedName, r.NormalizedSymbol, r.LogoURL,
			r.TotalValuePooledUsd, r.PriceUsd, r.UpdatedAt,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert token records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves a record by token id. Returns ErrNotFound if not exists.
func (s *TokenRecordStore) GetByID(ctx context.Context, id domain.TokenID) (_ *domain.TokenRecord, err error) {
	defer s.observe("get_token", time.Now(), &err)

	row := s.pool.QueryRow(ctx, selectTokenRecordColumns+" WHERE token_id = $1", string(id))
	r, err := scanTokenRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token record by id: %w", err)
	}
	return r, nil
}

// GetByChain retrieves all records of a chain, ordered by token_id ASC.
func (s *TokenRecordStore) GetByChain(ctx context.Context, chainID uint64) (_ []*domain.TokenRecord, err error) {
	defer s.observe("get_tokens_by_chain", time.Now(), &err)

	rows, err := s.pool.Query(ctx, selectTokenRecordColumns+" WHERE chain_id = $1 ORDER BY token_id ASC", chainID)
	if err != nil {
		return nil, fmt.Errorf("query token records by chain: %w", err)
	}
	return collectTokenRecords(rows)
}

// GetAll retrieves all records, ordered by chain_id, token_id ASC.
func (s *TokenRecordStore) GetAll(ctx context.Context) (_ []*domain.TokenRecord, err error) {
	defer s.observe("get_all_tokens", time.Now(), &err)

	rows, err := s.pool.Query(ctx, selectTokenRecordColumns+" ORDER BY chain_id ASC, token_id ASC")
	if err != nil {
		return nil, fmt.Errorf("query token records: %w", err)
	}
	return collectTokenRecords(rows)
}

func (s *TokenRecordStore) observe(operation string, start time.Time, err *error) {
	if s.observer != nil {
		s.observer.ObserveQuery(operation, time.Since(start), *err)
	}
}

func collectTokenRecords(rows pgx.Rows) ([]*domain.TokenRecord, error) {
	defer rows.Close()

	var result []*domain.TokenRecord
	for rows.Next() {
		r, err := scanTokenRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token record: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token records: %w", err)
	}
	return result, nil
}

// scanTokenRecord scans a single row into TokenRecord.
func scanTokenRecord(row pgx.Row) (*domain.TokenRecord, error) {
	var (
		r  domain.TokenRecord
		id string
	)

	err := row.Scan(
		&id,
		&r.ChainID,
		&r.Address,
		&r.Name,
		&r.Symbol,
		&r.NormalizedName,
		&r.NormalizedSymbol,
		&r.LogoURL,
		&r.TotalValuePooledUsd,
		&r.PriceUsd,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.ID = domain.TokenID(id)
	return &r, nil
}
