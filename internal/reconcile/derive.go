package reconcile

import (
	"multichain-token-lab/internal/cluster"
	"multichain-token-lab/internal/domain"
)

// derive builds the outputs from the final partition.
func (st *run) derive() *Result {
	result := &Result{}
	seen := make(map[domain.TokenID]struct{})

	addDiscard := func(rec *domain.TokenRecord) {
		if _, dup := seen[rec.ID]; dup {
			return
		}
		seen[rec.ID] = struct{}{}
		result.DiscardedTokens = append(result.DiscardedTokens, *rec)
	}

	st.partition.Each(func(_ cluster.Handle, members []domain.TokenID, active bool) {
		if active {
			records := st.resolve(members)
			if len(records) > 0 {
				result.MultichainTokens = append(result.MultichainTokens, deriveMultichainToken(records))
			}
			return
		}

		for _, id := range members {
			if st.partition.IsExcluded(id) {
				continue
			}
			if rec, ok := st.lookup(id); ok {
				addDiscard(rec)
			}
		}
	})

	for _, id := range st.partition.Excluded() {
		if rec, ok := st.registry.Lookup(id); ok {
			addDiscard(rec)
		}
	}

	result.Diagnostics = st.diag
	return result
}

// resolve maps ids to records, dropping (and recording) unknown ids.
func (st *run) resolve(ids []domain.TokenID) []*domain.TokenRecord {
	records := make([]*domain.TokenRecord, 0, len(ids))
	for _, id := range ids {
		if rec, ok := st.lookup(id); ok {
			records = append(records, rec)
		}
	}
	return records
}

func (st *run) lookup(id domain.TokenID) (*domain.TokenRecord, bool) {
	rec, ok := st.registry.Lookup(id)
	if !ok {
		st.markUnresolved(id)
	}
	return rec, ok
}

// deriveMultichainToken aggregates resolved cluster members.
// The anchor is the member with the highest tracked pooled USD value; on a tie
// the member that comes first in cluster order is kept. records must be non-empty.
func deriveMultichainToken(records []*domain.TokenRecord) domain.MultichainToken {
	anchor := records[0]
	total := 0.0
	addresses := make([]domain.ChainAddress, 0, len(records))

	for _, rec := range records {
		if rec.TotalValuePooledUsd > anchor.TotalValuePooledUsd {
			anchor = rec
		}
		total += rec.TotalValuePooledUsd
		addresses = append(addresses, domain.ChainAddress{
			TokenID: rec.ID,
			ChainID: rec.ChainID,
			Address: rec.Address,
		})
	}

	return domain.MultichainToken{
		AnchorID:            anchor.ID,
		Name:                anchor.Name,
		Symbol:              anchor.Symbol,
		LogoURL:             anchor.LogoURL,
		PriceUsd:            anchor.PriceUsd,
		Addresses:           addresses,
		TotalValuePooledUsd: total,
	}
}
