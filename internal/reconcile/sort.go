package reconcile

import (
	"slices"

	"multichain-token-lab/internal/domain"
)

// SortTokenList stable-sorts tokens in place by order.Field.
// Unsupported fields compare equal, so the input order is kept.
// Any direction other than desc sorts ascending.
func SortTokenList(tokens []domain.MultichainToken, order domain.SortOrder) {
	compare := fieldComparator(order.Field)
	sign := 1
	if order.Direction == domain.SortDesc {
		sign = -1
	}

	slices.SortStableFunc(tokens, func(a, b domain.MultichainToken) int {
		return sign * compare(&a, &b)
	})
}

func fieldComparator(field domain.SortField) func(a, b *domain.MultichainToken) int {
	switch field {
	case domain.SortFieldTotalValuePooledUsd:
		return func(a, b *domain.MultichainToken) int {
			return signOf(a.TotalValuePooledUsd - b.TotalValuePooledUsd)
		}
	default:
		return func(_, _ *domain.MultichainToken) int { return 0 }
	}
}

// signOf maps a difference to -1/0/1. NaN compares equal.
func signOf(d float64) int {
	switch {
	case d < 0:
		return -1
	case d > 0:
		return 1
	default:
		return 0
	}
}
