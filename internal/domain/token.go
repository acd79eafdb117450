package domain

// TokenID identifies one asset on one chain.
// Format: "{chainId}-{address}", with hex addresses lowercased.
type TokenID string

// TokenRecord represents one asset instance on one chain as reported by the indexer.
// Corresponds to token_records table in PostgreSQL.
type TokenRecord struct {
	ID               TokenID // PRIMARY KEY, see tokenid.Build
	ChainID          uint64  // EVM chain id (or indexer-assigned id for non-EVM chains)
	Address          string  // contract / mint address as reported
	Name             string  // human-readable name
	Symbol           string  // ticker symbol
	NormalizedName   string  // lowercase, [a-z0-9 ] only, trimmed
	NormalizedSymbol string  // lowercase symbol
	LogoURL          string  // optional logo (empty if unknown)

	TotalValuePooledUsd float64 // tracked pooled USD value
	PriceUsd            float64 // tracked USD price

	UpdatedAt int64 // last refresh from indexer (ms)
}
