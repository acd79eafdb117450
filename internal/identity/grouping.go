package identity

import (
	"sort"

	"multichain-token-lab/internal/domain"
)

// GroupResult holds the candidate groups and singles produced by Group.
type GroupResult struct {
	Groups    [][]domain.TokenID // two or more equivalent tokens on distinct chains
	Discarded []domain.TokenID   // tokens that matched nothing
}

// Group forms candidate multichain groups from a flat token list.
//
// Tokens are visited by tracked pooled USD value, largest first (stable for
// ties), so every group is anchored on its most liquid member. A token joins
// the first group whose anchor is equivalent and that has no member on the
// same chain; otherwise it starts a new group. Tokens with an empty symbol
// never group: the cross-match check would accept any name for them.
func Group(tokens []domain.TokenRecord) GroupResult {
	ordered := make([]*domain.TokenRecord, 0, len(tokens))
	seen := make(map[domain.TokenID]struct{}, len(tokens))
	for i := range tokens {
		if _, dup := seen[tokens[i].ID]; dup {
			continue
		}
		seen[tokens[i].ID] = struct{}{}
		ordered = append(ordered, &tokens[i])
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TotalValuePooledUsd > ordered[j].TotalValuePooledUsd
	})

	type group struct {
		anchor  Descriptor
		members []domain.TokenID
		chains  map[uint64]struct{}
	}

	var groups []*group
	var result GroupResult

	for _, t := range ordered {
		d := DescriptorOf(t)
		if d.NormalizedSymbol == "" {
			result.Discarded = append(result.Discarded, t.ID)
			continue
		}

		var target *group
		for _, g := range groups {
			if _, taken := g.chains[t.ChainID]; taken {
				continue
			}
			if AreEquivalent(g.anchor, d) {
				target = g
				break
			}
		}

		if target == nil {
			target = &group{anchor: d, chains: make(map[uint64]struct{})}
			groups = append(groups, target)
		}
		target.members = append(target.members, t.ID)
		target.chains[t.ChainID] = struct{}{}
	}

	for _, g := range groups {
		if len(g.members) < 2 {
			result.Discarded = append(result.Discarded, g.members...)
			continue
		}
		result.Groups = append(result.Groups, g.members)
	}

	return result
}
