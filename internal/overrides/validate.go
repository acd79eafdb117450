package overrides

import (
	"fmt"

	"multichain-token-lab/internal/domain"
)

// WarningKind classifies a data-integrity problem in the table.
type WarningKind string

const (
	WarnUnknownToken    WarningKind = "unknown_token"    // key not in the token list
	WarnUnknownTarget   WarningKind = "unknown_target"   // partOf target not in the token list
	WarnSelfReference   WarningKind = "self_reference"   // partOf lists the key itself
	WarnExcludedTarget  WarningKind = "excluded_target"  // partOf target is itself excluded
	WarnDuplicateTarget WarningKind = "duplicate_target" // target listed twice in one entry
)

// Warning is a non-fatal problem with one override entry.
// Reconciliation still runs; the offending part is skipped.
type Warning struct {
	Kind    WarningKind
	TokenID domain.TokenID
	Target  domain.TokenID // empty for WarnUnknownToken
}

func (w Warning) String() string {
	if w.Target == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.TokenID)
	}
	return fmt.Sprintf("%s: %s -> %s", w.Kind, w.TokenID, w.Target)
}

// Validate checks t against the set of known token ids.
// Warnings are ordered by key, then by target order.
func Validate(t *Table, known func(domain.TokenID) bool) []Warning {
	var warnings []Warning

	for _, id := range t.IDs() {
		e, _ := t.Lookup(id)
		if !known(id) {
			warnings = append(warnings, Warning{Kind: WarnUnknownToken, TokenID: id})
		}
		if e.Exclude {
			continue
		}

		seen := make(map[domain.TokenID]struct{}, len(e.PartOf))
		for _, target := range e.PartOf {
			if _, dup := seen[target]; dup {
				warnings = append(warnings, Warning{Kind: WarnDuplicateTarget, TokenID: id, Target: target})
				continue
			}
			seen[target] = struct{}{}

			switch {
			case target == id:
				warnings = append(warnings, Warning{Kind: WarnSelfReference, TokenID: id, Target: target})
			case !known(target):
				warnings = append(warnings, Warning{Kind: WarnUnknownTarget, TokenID: id, Target: target})
			default:
				if te, ok := t.Lookup(target); ok && te.Exclude {
					warnings = append(warnings, Warning{Kind: WarnExcludedTarget, TokenID: id, Target: target})
				}
			}
		}
	}

	return warnings
}
