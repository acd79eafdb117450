// Package identity decides whether two single-chain token records denote the
// same logical asset, and forms the candidate groups consumed by reconciliation.
package identity

import "strings"

// MinWordOverlap is the Jaccard ratio at which two names are considered similar.
const MinWordOverlap = 0.5

// AreEquivalent reports whether a and b denote the same asset.
// Checks run in order and short-circuit on the first match:
//  1. identical normalized names
//  2. name of one contains the symbol of the other ("wrapped ether" / "weth")
//  3. acronym of one name equals the other symbol
//  4. same first word and word overlap >= MinWordOverlap
//
// Inputs are re-normalized, so raw names and symbols are accepted too.
func AreEquivalent(a, b Descriptor) bool {
	nameA, nameB := NormalizeName(a.NormalizedName), NormalizeName(b.NormalizedName)
	symA, symB := NormalizeSymbol(a.NormalizedSymbol), NormalizeSymbol(b.NormalizedSymbol)

	if nameA == nameB {
		return true
	}

	if strings.Contains(nameA, symB) || strings.Contains(nameB, symA) {
		return true
	}

	if acronym(nameA) == symB || acronym(nameB) == symA {
		return true
	}

	wordsA := strings.Fields(nameA)
	wordsB := strings.Fields(nameB)

	// "usd mapped token" must not match "usdm stablecoin".
	if len(wordsA) == 0 || len(wordsB) == 0 || wordsA[0] != wordsB[0] {
		return false
	}

	return wordOverlap(wordsA, wordsB) >= MinWordOverlap
}

// acronym takes the first character of each word, in word order.
func acronym(name string) string {
	var sb strings.Builder
	for _, w := range strings.Fields(name) {
		sb.WriteByte(w[0])
	}
	return sb.String()
}

// wordOverlap returns |A ∩ B| / |A ∪ B| over the word sets.
func wordOverlap(wordsA, wordsB []string) float64 {
	setA := make(map[string]struct{}, len(wordsA))
	for _, w := range wordsA {
		setA[w] = struct{}{}
	}

	union := make(map[string]struct{}, len(wordsA)+len(wordsB))
	for w := range setA {
		union[w] = struct{}{}
	}

	intersection := 0
	seenB := make(map[string]struct{}, len(wordsB))
	for _, w := range wordsB {
		if _, dup := seenB[w]; dup {
			continue
		}
		seenB[w] = struct{}{}
		union[w] = struct{}{}
		if _, ok := setA[w]; ok {
			intersection++
		}
	}

	if len(union) == 0 {
		return 0
	}
	return float64(intersection) / float64(len(union))
}
