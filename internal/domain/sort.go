package domain

// SortField names the field multichain tokens are ordered by.
type SortField string

// SortDirection is ascending or descending.
type SortDirection string

const (
	SortFieldTotalValuePooledUsd SortField = "totalValuePooledUsd"

	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortOrder is a single-field ordering request.
type SortOrder struct {
	Field     SortField
	Direction SortDirection
}

// DefaultSortOrder orders by pooled value, largest first.
func DefaultSortOrder() SortOrder {
	return SortOrder{Field: SortFieldTotalValuePooledUsd, Direction: SortDesc}
}
