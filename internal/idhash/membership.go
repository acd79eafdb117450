package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"multichain-token-lab/internal/domain"
)

// MembershipHash computes a deterministic fingerprint of a multichain token's members.
// Formula: SHA256(sorted member ids joined by "|")
// Member order does not matter. Returns hex-encoded hash (64 characters).
func MembershipHash(members []domain.TokenID) string {
	ids := make([]string, len(members))
	for i, id := range members {
		ids[i] = string(id)
	}
	sort.Strings(ids)

	hash := sha256.Sum256([]byte(strings.Join(ids, "|")))
	return hex.EncodeToString(hash[:])
}
