package reconcile

import (
	"math"
	"testing"

	"multichain-token-lab/internal/domain"
)

func mt(anchor domain.TokenID, value float64) domain.MultichainToken {
	return domain.MultichainToken{AnchorID: anchor, TotalValuePooledUsd: value}
}

func anchors(tokens []domain.MultichainToken) []domain.TokenID {
	ids := make([]domain.TokenID, len(tokens))
	for i, t := range tokens {
		ids[i] = t.AnchorID
	}
	return ids
}

func TestSortTokenList(t *testing.T) {
	tests := []struct {
		name  string
		order domain.SortOrder
		want  []domain.TokenID
	}{
		{
			name:  "ascending",
			order: domain.SortOrder{Field: domain.SortFieldTotalValuePooledUsd, Direction: domain.SortAsc},
			want:  []domain.TokenID{"c", "a", "d", "b"},
		},
		{
			name:  "descending keeps tie order",
			order: domain.SortOrder{Field: domain.SortFieldTotalValuePooledUsd, Direction: domain.SortDesc},
			want:  []domain.TokenID{"b", "a", "d", "c"},
		},
		{
			name:  "unknown field is a no-op",
			order: domain.SortOrder{Field: "marketCap", Direction: domain.SortDesc},
			want:  []domain.TokenID{"a", "b", "c", "d"},
		},
		{
			name:  "empty order is a no-op",
			order: domain.SortOrder{},
			want:  []domain.TokenID{"a", "b", "c", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := []domain.MultichainToken{mt("a", 50), mt("b", 900), mt("c", 1), mt("d", 50)}
			SortTokenList(tokens, tt.order)

			got := anchors(tokens)
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("order = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestSortTokenList_NaNComparesEqual(t *testing.T) {
	tokens := []domain.MultichainToken{mt("a", 10), mt("nan", math.NaN()), mt("b", 5)}
	SortTokenList(tokens, domain.SortOrder{Field: domain.SortFieldTotalValuePooledUsd, Direction: domain.SortAsc})

	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d", len(tokens))
	}
}

func TestSortTokenList_Empty(t *testing.T) {
	SortTokenList(nil, domain.DefaultSortOrder())
}
