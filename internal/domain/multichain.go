package domain

// ChainAddress is one member of a multichain token.
type ChainAddress struct {
	TokenID TokenID
	ChainID uint64
	Address string
}

// MultichainToken is the canonical view of an asset deployed on several chains.
// Derived from one active cluster; never stored as cluster state.
type MultichainToken struct {
	// AnchorID is the member with the highest tracked pooled USD value.
	AnchorID TokenID
	Name     string
	Symbol   string
	LogoURL  string
	PriceUsd float64

	// Addresses lists every resolved member in cluster order.
	Addresses []ChainAddress

	// TotalValuePooledUsd is the sum over all resolved members.
	TotalValuePooledUsd float64
}

// ChainIDs returns the chain ids of all members, in member order.
func (m *MultichainToken) ChainIDs() []uint64 {
	ids := make([]uint64, len(m.Addresses))
	for i, a := range m.Addresses {
		ids[i] = a.ChainID
	}
	return ids
}

// MemberIDs returns the token ids of all members, in member order.
func (m *MultichainToken) MemberIDs() []TokenID {
	ids := make([]TokenID, len(m.Addresses))
	for i, a := range m.Addresses {
		ids[i] = a.TokenID
	}
	return ids
}
