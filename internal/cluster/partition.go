// Package cluster provides the in-memory partition used by reconciliation:
// an arena of clusters addressed by stable handles plus an id->handle index.
// A Partition is built per reconciliation run and must not be shared.
package cluster

import "multichain-token-lab/internal/domain"

// Handle addresses a cluster inside one Partition. Handles are never reused.
type Handle int

// NoHandle is returned for ids that belong to no cluster.
const NoHandle Handle = -1

type cluster struct {
	members []domain.TokenID
	active  bool
}

// Partition assigns token ids to clusters.
//
// Invariants:
//   - an id is in at most one cluster;
//   - an excluded id is in no cluster and can never be assigned again;
//   - a drained cluster is inactive and empty.
type Partition struct {
	clusters []cluster
	index    map[domain.TokenID]Handle

	excluded      map[domain.TokenID]struct{}
	excludedOrder []domain.TokenID
}

// New creates an empty partition.
func New() *Partition {
	return &Partition{
		index:    make(map[domain.TokenID]Handle),
		excluded: make(map[domain.TokenID]struct{}),
	}
}

// NewCluster appends an empty cluster and returns its handle.
func (p *Partition) NewCluster(active bool) Handle {
	p.clusters = append(p.clusters, cluster{active: active})
	return Handle(len(p.clusters) - 1)
}

// Claim places id into h only if id is not yet placed and not excluded.
// Returns false when the id was already claimed.
func (p *Partition) Claim(id domain.TokenID, h Handle) bool {
	if _, placed := p.index[id]; placed {
		return false
	}
	if p.IsExcluded(id) {
		return false
	}
	p.insert(id, h)
	return true
}

// Assign moves id into h, removing it from its current cluster first.
// Excluded ids are never assigned. Returns false if nothing changed.
func (p *Partition) Assign(id domain.TokenID, h Handle) bool {
	if p.IsExcluded(id) {
		return false
	}
	if cur, ok := p.index[id]; ok {
		if cur == h {
			return false
		}
		p.detach(id, cur)
	}
	p.insert(id, h)
	return true
}

// Isolate removes id from its cluster and places it alone in a new active cluster.
// Returns NoHandle for excluded ids.
func (p *Partition) Isolate(id domain.TokenID) Handle {
	if p.IsExcluded(id) {
		return NoHandle
	}
	p.Remove(id)
	h := p.NewCluster(true)
	p.insert(id, h)
	return h
}

// Remove detaches id from its cluster, if any.
func (p *Partition) Remove(id domain.TokenID) {
	if cur, ok := p.index[id]; ok {
		p.detach(id, cur)
	}
}

// Exclude removes id from its cluster and marks it permanently excluded.
func (p *Partition) Exclude(id domain.TokenID) {
	p.Remove(id)
	if _, ok := p.excluded[id]; ok {
		return
	}
	p.excluded[id] = struct{}{}
	p.excludedOrder = append(p.excludedOrder, id)
}

// IsExcluded reports whether id was excluded.
func (p *Partition) IsExcluded(id domain.TokenID) bool {
	_, ok := p.excluded[id]
	return ok
}

// Excluded returns excluded ids in exclusion order.
func (p *Partition) Excluded() []domain.TokenID {
	return append([]domain.TokenID(nil), p.excludedOrder...)
}

// ClusterOf returns the cluster holding id, or NoHandle.
func (p *Partition) ClusterOf(id domain.TokenID) Handle {
	if h, ok := p.index[id]; ok {
		return h
	}
	return NoHandle
}

// Merge drains src into dst: every member of src is moved to dst in order,
// src is marked inactive and left empty. Merging a cluster into itself is a no-op.
// Returns the number of moved ids.
func (p *Partition) Merge(dst, src Handle) int {
	if dst == src {
		return 0
	}

	moved := p.clusters[src].members
	for _, id := range moved {
		p.index[id] = dst
	}
	p.clusters[dst].members = append(p.clusters[dst].members, moved...)

	p.clusters[src].members = nil
	p.clusters[src].active = false
	return len(moved)
}

// Members returns a copy of the ids in h, in insertion order.
func (p *Partition) Members(h Handle) []domain.TokenID {
	return append([]domain.TokenID(nil), p.clusters[h].members...)
}

// Active reports whether h is an active (multichain) cluster.
func (p *Partition) Active(h Handle) bool {
	return p.clusters[h].active
}

// Len returns the number of clusters ever created, including drained ones.
func (p *Partition) Len() int {
	return len(p.clusters)
}

// Placed returns the number of ids currently in some cluster.
func (p *Partition) Placed() int {
	return len(p.index)
}

// Each calls fn for every non-empty cluster in handle order.
func (p *Partition) Each(fn func(h Handle, members []domain.TokenID, active bool)) {
	for i := range p.clusters {
		c := &p.clusters[i]
		if len(c.members) == 0 {
			continue
		}
		fn(Handle(i), c.members, c.active)
	}
}

func (p *Partition) insert(id domain.TokenID, h Handle) {
	p.clusters[h].members = append(p.clusters[h].members, id)
	p.index[id] = h
}

func (p *Partition) detach(id domain.TokenID, h Handle) {
	members := p.clusters[h].members
	for i, m := range members {
		if m == id {
			p.clusters[h].members = append(members[:i], members[i+1:]...)
			break
		}
	}
	delete(p.index, id)
}
