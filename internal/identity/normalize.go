package identity

import (
	"strings"

	"multichain-token-lab/internal/domain"
)

// Descriptor is the part of a token record the heuristic looks at.
type Descriptor struct {
	NormalizedName   string
	NormalizedSymbol string
}

// NormalizeName lowercases name, strips everything outside [a-z0-9 ] and trims.
func NormalizeName(name string) string {
	lower := strings.ToLower(name)

	var sb strings.Builder
	sb.Grow(len(lower))
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == ' ' {
			sb.WriteByte(c)
		}
	}

	return strings.TrimSpace(sb.String())
}

// NormalizeSymbol lowercases symbol. Nothing else is stripped.
func NormalizeSymbol(symbol string) string {
	return strings.ToLower(symbol)
}

// Normalize fills NormalizedName and NormalizedSymbol from Name and Symbol.
func Normalize(r *domain.TokenRecord) {
	r.NormalizedName = NormalizeName(r.Name)
	r.NormalizedSymbol = NormalizeSymbol(r.Symbol)
}

// DescriptorOf returns the descriptor of r, deriving normalized fields
// from Name/Symbol when the record was stored without them.
func DescriptorOf(r *domain.TokenRecord) Descriptor {
	d := Descriptor{NormalizedName: r.NormalizedName, NormalizedSymbol: r.NormalizedSymbol}
	if d.NormalizedName == "" {
		d.NormalizedName = NormalizeName(r.Name)
	}
	if d.NormalizedSymbol == "" {
		d.NormalizedSymbol = NormalizeSymbol(r.Symbol)
	}
	return d
}
