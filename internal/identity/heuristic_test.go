package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func desc(name, symbol string) Descriptor {
	return Descriptor{NormalizedName: NormalizeName(name), NormalizedSymbol: NormalizeSymbol(symbol)}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"USD Coin", "usd coin"},
		{"  Wrapped Ether (PoS)  ", "wrapped ether pos"},
		{"Tether USD₮", "tether usd"},
		{"$PEPE", "pepe"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in), "NormalizeName(%q)", tt.in)
	}
}

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "usdc.e", NormalizeSymbol("USDC.e"))
	assert.Equal(t, "weth", NormalizeSymbol("WETH"))
}

func TestAreEquivalent(t *testing.T) {
	tests := []struct {
		name string
		a    Descriptor
		b    Descriptor
		want bool
	}{
		{"identical names", desc("USD Coin", "USDC"), desc("USD Coin", "USDbC"), true},
		{"cross match wrapped ether", desc("Wrapped Ether", "WETH"), desc("WETH", "WETH"), true},
		{"name contains other symbol", desc("Bridged USDC", "USDC.e"), desc("USD Coin", "USDC"), true},
		{"acronym match", desc("Decentralized Autonomous Index", "DAIX"), desc("Index Coin", "DAI"), true},
		{"same first word low overlap without acronym", desc("Wrapped Bitcoin", "WBTC"), desc("Wrapped BTC", "WBT"), false},
		{"acronym of name equals other symbol", desc("Staked Ether", "stETH"), desc("Lido Staked", "SE"), true},
		{"first word guard", desc("USD Mapped Token", "USDMT"), desc("USDM Stablecoin", "USDM"), false},
		{"similar names same first word", desc("Pepe Coin Classic", "PPC"), desc("Pepe Coin", "PPE"), true},
		{"same first word low overlap", desc("Pepe Coin Classic Edition", "PCCE"), desc("Pepe Inu", "PINU"), false},
		{"unrelated", desc("Uniswap", "UNI"), desc("Aave Token", "AAVE"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AreEquivalent(tt.a, tt.b))
		})
	}
}

func TestAreEquivalent_NamesDifferOnlyInPunctuationNormalizeEqual(t *testing.T) {
	// "USD-Coin!" normalizes to "usdcoin", not "usd coin"; the cross match
	// still fires because "usdcoin" contains "usdc".
	a := desc("USD-Coin!", "usdc")
	b := desc("USD Coin", "USDC")
	assert.True(t, AreEquivalent(a, b))
}

func TestAreEquivalent_Symmetric(t *testing.T) {
	pool := []Descriptor{
		desc("USD Coin", "USDC"),
		desc("Bridged USD Coin", "USDC.e"),
		desc("Wrapped Ether", "WETH"),
		desc("Ether", "ETH"),
		desc("USD Mapped Token", "USDMT"),
		desc("USDM Stablecoin", "USDM"),
		desc("usd usd coin", "uuc"),
		desc("usd token", "ut"),
		desc("Tether USD", "USDT"),
		desc("", "X"),
		desc("Chainlink", ""),
	}

	for _, a := range pool {
		for _, b := range pool {
			assert.Equal(t, AreEquivalent(a, b), AreEquivalent(b, a), "asymmetric for %+v / %+v", a, b)
		}
		assert.True(t, AreEquivalent(a, a), "not reflexive for %+v", a)
	}
}

func TestWordOverlap(t *testing.T) {
	assert.InDelta(t, 1.0, wordOverlap([]string{"a", "b"}, []string{"b", "a"}), 1e-9)
	assert.InDelta(t, 1.0/3.0, wordOverlap([]string{"a", "b"}, []string{"a", "c"}), 1e-9)
	// duplicates count once
	assert.InDelta(t, 1.0/3.0, wordOverlap([]string{"usd", "usd", "coin"}, []string{"usd", "token"}), 1e-9)
}

func TestAcronym(t *testing.T) {
	assert.Equal(t, "wbtc", acronym("wrapped bitcoin token classic"))
	assert.Equal(t, "", acronym(""))
}
