package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multichain-token-lab/internal/domain"
	"multichain-token-lab/internal/storage"
	"multichain-token-lab/internal/tokenid"
)

func createTestTokenRecord(chainID uint64, address, name, symbol string, pooled float64) *domain.TokenRecord {
	return &domain.TokenRecord{
		ID:                  tokenid.Build(chainID, address),
		ChainID:             chainID,
		Address:             address,
		Name:                name,
		Symbol:              symbol,
		NormalizedName:      name,
		NormalizedSymbol:    symbol,
		LogoURL:             "https://logos.example/" + symbol + ".png",
		TotalValuePooledUsd: pooled,
		PriceUsd:            1.0,
		UpdatedAt:           1704067200000,
	}
}

func TestTokenRecordStore_UpsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenRecordStore(pool)

	rec := createTestTokenRecord(1, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "usd coin", "usdc", 1500)
	require.NoError(t, store.UpsertBulk(ctx, []*domain.TokenRecord{rec}))

	got, err := store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestTokenRecordStore_UpsertRefreshes(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenRecordStore(pool)

	rec := createTestTokenRecord(56, "0xbb", "tether", "usdt", 100)
	require.NoError(t, store.UpsertBulk(ctx, []*domain.TokenRecord{rec}))

	refreshed := *rec
	refreshed.TotalValuePooledUsd = 900
	refreshed.UpdatedAt = rec.UpdatedAt + 60_000
	require.NoError(t, store.UpsertBulk(ctx, []*domain.TokenRecord{&refreshed}))

	got, err := store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 900.0, got.TotalValuePooledUsd)
	assert.Equal(t, refreshed.UpdatedAt, got.UpdatedAt)
}

func TestTokenRecordStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTokenRecordStore(pool)

	_, err := store.GetByID(context.Background(), "1-0xmissing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTokenRecordStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenRecordStore(pool)

	err := store.UpsertBulk(ctx, []*domain.TokenRecord{
		createTestTokenRecord(1, "0xaa", "a", "a", 1),
		{},
	})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestTokenRecordStore_Ordering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTokenRecordStore(pool)

	records := []*domain.TokenRecord{
		createTestTokenRecord(137, "0x03", "c", "c", 1),
		createTestTokenRecord(1, "0x02", "b", "b", 1),
		createTestTokenRecord(1, "0x01", "a", "a", 1),
		// base58 ids keep their case
		createTestTokenRecord(900, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "usd coin", "usdc", 1),
	}
	require.NoError(t, store.UpsertBulk(ctx, records))

	byChain, err := store.GetByChain(ctx, 1)
	require.NoError(t, err)
	require.Len(t, byChain, 2)
	assert.Equal(t, domain.TokenID("1-0x01"), byChain[0].ID)
	assert.Equal(t, domain.TokenID("1-0x02"), byChain[1].ID)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, uint64(1), all[0].ChainID)
	assert.Equal(t, uint64(137), all[2].ChainID)
	assert.Equal(t, domain.TokenID("900-EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"), all[3].ID)
}

func TestTokenRecordStore_ReportsToObserver(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	var ops []string
	observer := storage.QueryObserverFunc(func(op string, _ time.Duration, _ error) {
		ops = append(ops, op)
	})

	ctx := context.Background()
	store := NewTokenRecordStore(pool, WithObserver(observer))

	require.NoError(t, store.UpsertBulk(ctx, []*domain.TokenRecord{createTestTokenRecord(1, "0xaa", "a", "a", 1)}))
	_, _ = store.GetByID(ctx, "1-0xaa")

	assert.Equal(t, []string{"upsert_tokens", "get_token"}, ops)
}
