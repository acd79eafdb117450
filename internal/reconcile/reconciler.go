// Package reconcile turns candidate groups, discarded singles and the
// override table into the final set of canonical multichain tokens.
//
// Reconcile is synchronous and pure with respect to its inputs: every call
// builds its own Registry and Partition, so one Reconciler may serve
// concurrent callers. The override table is shared read-only.
package reconcile

import (
	"github.com/rs/zerolog"

	"multichain-token-lab/internal/cluster"
	"multichain-token-lab/internal/domain"
	"multichain-token-lab/internal/overrides"
)

// Input is everything one reconciliation run needs besides the override table.
type Input struct {
	// ExistingGroups are candidate groups formed upstream with identity.AreEquivalent.
	ExistingGroups [][]domain.TokenID
	// ExistingDiscarded are tokens upstream decided not to group.
	ExistingDiscarded []domain.TokenID
	// AllTokens covers every id referenced anywhere, override targets included.
	AllTokens []domain.TokenRecord
	SortOrder domain.SortOrder
}

// Result is the output of one run.
type Result struct {
	// MultichainTokens are sorted by Input.SortOrder.
	MultichainTokens []domain.MultichainToken
	// DiscardedTokens are in cluster order followed by excluded tokens.
	DiscardedTokens []domain.TokenRecord
	Diagnostics     Diagnostics
}

// Diagnostics counts the anomalies a run skipped over. None of them fail a run.
type Diagnostics struct {
	// UnresolvedIDs were referenced by a group, a discard or an override
	// target but had no record in AllTokens. Dropped from the output.
	UnresolvedIDs []domain.TokenID
	// DuplicateClaims counts ids seeded more than once; the first claim wins.
	DuplicateClaims int
	// Exclusions counts tokens excluded by the override table.
	Exclusions int
	// Overrides counts tokens moved into their own cluster by a partOf entry.
	Overrides int
	// Merges counts cluster merges performed by partOf targets.
	Merges int
	// SkippedExcludedTargets counts partOf targets ignored because they are excluded.
	SkippedExcludedTargets int
}

// Reconciler applies one override table to reconciliation inputs.
type Reconciler struct {
	overrides *overrides.Table
	logger    zerolog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger used for data-integrity warnings.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = l
	}
}

// New creates a Reconciler for table. A nil table means no overrides.
func New(table *overrides.Table, opts ...Option) *Reconciler {
	if table == nil {
		table = overrides.Empty()
	}
	r := &Reconciler{
		overrides: table,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// run holds per-call state.
type run struct {
	registry  *cluster.Registry
	partition *cluster.Partition
	diag      Diagnostics

	unresolved map[domain.TokenID]struct{}
}

// Reconcile computes the final partition and derives its outputs.
//
// Steps:
//  1. registry from AllTokens (last write wins)
//  2. seed: active cluster per group, inactive singleton per discard
//  3. pass 1: exclusions, partOf tokens isolated in new active clusters
//  4. pass 2: merge each partOf token's cluster with its targets' clusters
//  5. derive multichain tokens from active clusters, discards from the rest
//  6. sort
func (r *Reconciler) Reconcile(in Input) *Result {
	st := &run{
		registry:   cluster.NewRegistry(in.AllTokens),
		partition:  cluster.New(),
		unresolved: make(map[domain.TokenID]struct{}),
	}

	st.seed(in.ExistingGroups, in.ExistingDiscarded)
	overridden := r.applyExclusions(st)
	r.applyMerges(st, overridden)

	result := st.derive()
	SortTokenList(result.MultichainTokens, in.SortOrder)

	r.logger.Debug().
		Int("tokens", st.registry.Len()).
		Int("multichain", len(result.MultichainTokens)).
		Int("discarded", len(result.DiscardedTokens)).
		Int("unresolved", len(result.Diagnostics.UnresolvedIDs)).
		Int("merges", result.Diagnostics.Merges).
		Msg("reconciliation complete")

	return result
}

// seed creates the initial clusters. An id listed twice keeps its first placement.
func (st *run) seed(groups [][]domain.TokenID, discarded []domain.TokenID) {
	p := st.partition

	for _, group := range groups {
		h := p.NewCluster(true)
		for _, id := range group {
			if !p.Claim(id, h) {
				st.diag.DuplicateClaims++
			}
		}
	}

	for _, id := range discarded {
		h := p.NewCluster(false)
		if !p.Claim(id, h) {
			st.diag.DuplicateClaims++
		}
	}
}

// applyExclusions is pass 1. Returns partOf tokens in AllTokens order.
func (r *Reconciler) applyExclusions(st *run) []domain.TokenID {
	var overridden []domain.TokenID

	for _, id := range st.registry.IDs() {
		entry, ok := r.overrides.Lookup(id)
		if !ok {
			continue
		}

		if entry.Exclude {
			st.partition.Exclude(id)
			st.diag.Exclusions++
			continue
		}

		st.partition.Isolate(id)
		st.diag.Overrides++
		overridden = append(overridden, id)
	}

	return overridden
}

// applyMerges is pass 2. Merges are unions over the partition, so chained
// and mutual overrides converge to one cluster regardless of which side runs first.
func (r *Reconciler) applyMerges(st *run, overridden []domain.TokenID) {
	p := st.partition

	for _, id := range overridden {
		entry, _ := r.overrides.Lookup(id)

		for _, target := range entry.PartOf {
			if target == id {
				continue
			}
			if p.IsExcluded(target) {
				st.diag.SkippedExcludedTargets++
				continue
			}

			owner := p.ClusterOf(id)
			current := p.ClusterOf(target)

			if current == cluster.NoHandle {
				if !st.registry.Has(target) {
					st.markUnresolved(target)
					r.logger.Warn().
						Str("token_id", string(id)).
						Str("target", string(target)).
						Msg("override target not in token list")
					continue
				}
				p.Assign(target, owner)
				continue
			}

			if current != owner {
				p.Merge(owner, current)
				st.diag.Merges++
			}
		}
	}
}

func (st *run) markUnresolved(id domain.TokenID) {
	if _, ok := st.unresolved[id]; ok {
		return
	}
	st.unresolved[id] = struct{}{}
	st.diag.UnresolvedIDs = append(st.diag.UnresolvedIDs, id)
}
