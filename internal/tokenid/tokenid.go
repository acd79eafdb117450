// Package tokenid builds and parses canonical token identifiers.
package tokenid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"

	"multichain-token-lab/internal/domain"
)

// ErrInvalidTokenID is returned when an identifier cannot be parsed.
var ErrInvalidTokenID = errors.New("invalid token id")

const (
	separator = "-"

	hexAddressLen     = 40 // without 0x prefix
	base58AddressSize = 32 // decoded public key size
)

// Build computes the canonical token id.
// Formula: chainId + "-" + address, where 0x-prefixed hex addresses are
// lowercased. Other encodings (base58 mints) are case-sensitive and kept as is.
func Build(chainID uint64, address string) domain.TokenID {
	return domain.TokenID(strconv.FormatUint(chainID, 10) + separator + foldAddress(address))
}

// Parse splits a token id into chain id and address.
func Parse(id domain.TokenID) (uint64, string, error) {
	chain, address, ok := strings.Cut(string(id), separator)
	if !ok || chain == "" || address == "" {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidTokenID, id)
	}

	chainID, err := strconv.ParseUint(chain, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: chain id %q: %v", ErrInvalidTokenID, chain, err)
	}

	return chainID, address, nil
}

// Canonical re-builds id so that hex address casing is folded.
// Returns ErrInvalidTokenID if id is malformed.
func Canonical(id domain.TokenID) (domain.TokenID, error) {
	chainID, address, err := Parse(id)
	if err != nil {
		return "", err
	}
	return Build(chainID, address), nil
}

// Valid reports whether id parses and its address is a hex or base58 address.
func Valid(id domain.TokenID) bool {
	_, address, err := Parse(id)
	if err != nil {
		return false
	}
	return IsHexAddress(address) || IsBase58Address(address)
}

// IsHexAddress reports whether s is a 0x-prefixed 20-byte hex address.
func IsHexAddress(s string) bool {
	if !hasHexPrefix(s) || len(s) != hexAddressLen+2 {
		return false
	}
	return isHex(s[2:])
}

// IsBase58Address reports whether s decodes to a 32-byte base58 public key.
func IsBase58Address(s string) bool {
	if s == "" || hasHexPrefix(s) {
		return false
	}
	decoded, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(decoded) == base58AddressSize
}

// foldAddress lowercases hex addresses only.
func foldAddress(address string) string {
	if hasHexPrefix(address) && isHex(address[2:]) {
		return strings.ToLower(address)
	}
	return address
}

func hasHexPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
