package cluster

import "multichain-token-lab/internal/domain"

// Registry maps token ids to records for one reconciliation run.
type Registry struct {
	records map[domain.TokenID]*domain.TokenRecord
	order   []domain.TokenID // first-seen order, no duplicates
}

// NewRegistry indexes tokens by id. On duplicate ids the last record wins,
// but the id keeps its first-seen position.
func NewRegistry(tokens []domain.TokenRecord) *Registry {
	r := &Registry{records: make(map[domain.TokenID]*domain.TokenRecord, len(tokens))}
	for i := range tokens {
		t := &tokens[i]
		if _, seen := r.records[t.ID]; !seen {
			r.order = append(r.order, t.ID)
		}
		r.records[t.ID] = t
	}
	return r
}

// Lookup returns the record for id.
func (r *Registry) Lookup(id domain.TokenID) (*domain.TokenRecord, bool) {
	t, ok := r.records[id]
	return t, ok
}

// Has reports whether id is known.
func (r *Registry) Has(id domain.TokenID) bool {
	_, ok := r.records[id]
	return ok
}

// IDs returns every id in first-seen order.
func (r *Registry) IDs() []domain.TokenID {
	return append([]domain.TokenID(nil), r.order...)
}

// Len returns the number of distinct ids.
func (r *Registry) Len() int {
	return len(r.records)
}
