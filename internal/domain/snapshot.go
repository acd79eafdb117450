package domain

// MultichainSnapshot is one multichain token as produced by one reconciliation run.
// Corresponds to multichain_snapshots table in ClickHouse. Output only:
// reconciliation never reads snapshots back.
type MultichainSnapshot struct {
	RunID               string    // reconciliation run id (uuid)
	ComputedAt          int64     // run timestamp (ms)
	AnchorID            TokenID   // anchor member
	Name                string    // anchor name
	Symbol              string    // anchor symbol
	ChainCount          uint32    // number of resolved members
	MemberIDs           []TokenID // all resolved members
	MembershipHash      string    // idhash.MembershipHash of MemberIDs
	TotalValuePooledUsd float64   // sum over members
}
