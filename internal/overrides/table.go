// Package overrides holds the operator override table: per-token exclusions
// and forced multichain memberships that take precedence over the heuristic.
package overrides

import (
	"errors"
	"sort"

	"multichain-token-lab/internal/domain"
)

// ErrInvalidEntry is returned when an override entry cannot be decoded.
var ErrInvalidEntry = errors.New("invalid override entry")

// Entry is one override.
//
// Exclude set: the token is permanently kept out of every multichain token.
// Otherwise: the token is pulled into its own active cluster and merged with
// the clusters of every PartOf target. An empty PartOf means "stand alone".
type Entry struct {
	Exclude bool
	PartOf  []domain.TokenID
}

// Excluded returns an exclusion entry.
func Excluded() Entry {
	return Entry{Exclude: true}
}

// PartOf returns a forced-membership entry. With no targets the token stands alone.
func PartOf(targets ...domain.TokenID) Entry {
	return Entry{PartOf: append([]domain.TokenID{}, targets...)}
}

// Table is an immutable override table. Safe for concurrent reads.
type Table struct {
	entries map[domain.TokenID]Entry
}

// NewTable copies entries into a new Table.
func NewTable(entries map[domain.TokenID]Entry) *Table {
	t := &Table{entries: make(map[domain.TokenID]Entry, len(entries))}
	for id, e := range entries {
		t.entries[id] = Entry{
			Exclude: e.Exclude,
			PartOf:  append([]domain.TokenID{}, e.PartOf...),
		}
	}
	return t
}

// Empty returns a table with no overrides.
func Empty() *Table {
	return NewTable(nil)
}

// Lookup returns the entry for id.
func (t *Table) Lookup(id domain.TokenID) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	e, ok := t.entries[id]
	return e, ok
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// IDs returns all overridden token ids, sorted.
func (t *Table) IDs() []domain.TokenID {
	if t == nil {
		return nil
	}
	ids := make([]domain.TokenID, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
