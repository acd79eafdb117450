package pipeline

import (
	"context"

	"multichain-token-lab/internal/domain"
	"multichain-token-lab/internal/identity"
	"multichain-token-lab/internal/overrides"
	"multichain-token-lab/internal/storage"
	"multichain-token-lab/internal/tokenid"
)

// Fixture chain ids.
const (
	ChainEthereum uint64 = 1
	ChainBSC      uint64 = 56
	ChainPolygon  uint64 = 137
	ChainSolana   uint64 = 900
)

// Fixture token ids referenced by FixtureOverrides.
var (
	FixtureUSDCEthereum = tokenid.Build(ChainEthereum, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	FixtureBridgedUSDC  = tokenid.Build(ChainPolygon, "0x2791bca1f2de4661ed88a30c99a7a9449aa84174")
	FixtureFakeUSDC     = tokenid.Build(ChainBSC, "0x00000000000000000000000000000000deadbeef")
)

// LoadFixtures populates store with a small multichain token set for demonstration.
func LoadFixtures(ctx context.Context, store storage.TokenRecordStore) error {
	return store.UpsertBulk(ctx, FixtureTokens())
}

// FixtureTokens returns stablecoins and wrapped ether on four chains, a bridged
// USDC the heuristic cannot place, and a same-chain USDC impostor.
func FixtureTokens() []*domain.TokenRecord {
	const updatedAt = 1704067200000 // 2024-01-01 00:00:00 UTC

	raw := []struct {
		chain   uint64
		address string
		name    string
		symbol  string
		pooled  float64
		price   float64
	}{
		{ChainEthereum, "0xA0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", "USD Coin", "USDC", 412_000_000, 1.0},
		{ChainBSC, "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d", "USD Coin", "USDC", 95_000_000, 1.0},
		{ChainPolygon, "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", "USD Coin", "USDC", 61_000_000, 1.0},
		{ChainSolana, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "USD Coin", "USDC", 230_000_000, 1.0},
		{ChainPolygon, "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", "USD Coin (PoS)", "USDC.e", 18_000_000, 1.0},
		{ChainBSC, "0x00000000000000000000000000000000DEADBEEF", "USD Coin", "USDC", 1_200, 0.02},
		{ChainEthereum, "0xdAC17F958D2ee523a2206206994597C13D831ec7", "Tether USD", "USDT", 380_000_000, 1.0},
		{ChainBSC, "0x55d398326f99059fF775485246999027B3197955", "Tether USD", "USDT", 140_000_000, 1.0},
		{ChainEthereum, "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", "Wrapped Ether", "WETH", 820_000_000, 3400},
		{ChainPolygon, "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619", "Wrapped Ether", "WETH", 44_000_000, 3400},
		{ChainSolana, "So11111111111111111111111111111111111111112", "Wrapped SOL", "SOL", 510_000_000, 145},
	}

	records := make([]*domain.TokenRecord, 0, len(raw))
	for _, r := range raw {
		rec := &domain.TokenRecord{
			ID:                  tokenid.Build(r.chain, r.address),
			ChainID:             r.chain,
			Address:             r.address,
			Name:                r.name,
			Symbol:              r.symbol,
			TotalValuePooledUsd: r.pooled,
			PriceUsd:            r.price,
			UpdatedAt:           updatedAt,
		}
		identity.Normalize(rec)
		records = append(records, rec)
	}
	return records
}

// FixtureOverrides excludes the impostor and pulls bridged USDC into USDC.
func FixtureOverrides() *overrides.Table {
	return overrides.NewTable(map[domain.TokenID]overrides.Entry{
		FixtureFakeUSDC:    overrides.Excluded(),
		FixtureBridgedUSDC: overrides.PartOf(FixtureUSDCEthereum),
	})
}
