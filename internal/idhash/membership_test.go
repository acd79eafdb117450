package idhash

import (
	"testing"

	"multichain-token-lab/internal/domain"
)

func TestMembershipHash(t *testing.T) {
	tests := []struct {
		name    string
		members []domain.TokenID
	}{
		{name: "single member", members: []domain.TokenID{"1-0xaaa"}},
		{name: "two chains", members: []domain.TokenID{"1-0xaaa", "56-0xbbb"}},
		{name: "empty", members: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MembershipHash(tt.members)
			if len(got) != 64 {
				t.Errorf("hash length = %d, want 64", len(got))
			}
			if again := MembershipHash(tt.members); again != got {
				t.Errorf("not deterministic: %s != %s", got, again)
			}
		})
	}
}

func TestMembershipHash_OrderIndependent(t *testing.T) {
	a := MembershipHash([]domain.TokenID{"1-0xaaa", "56-0xbbb", "137-0xccc"})
	b := MembershipHash([]domain.TokenID{"137-0xccc", "1-0xaaa", "56-0xbbb"})
	if a != b {
		t.Errorf("member order changed hash: %s != %s", a, b)
	}
}

func TestMembershipHash_DifferentMembers(t *testing.T) {
	a := MembershipHash([]domain.TokenID{"1-0xaaa", "56-0xbbb"})
	b := MembershipHash([]domain.TokenID{"1-0xaaa", "56-0xccc"})
	if a == b {
		t.Error("different members produced the same hash")
	}
}

func TestMembershipHash_DoesNotMutateInput(t *testing.T) {
	members := []domain.TokenID{"56-0xbbb", "1-0xaaa"}
	MembershipHash(members)
	if members[0] != "56-0xbbb" {
		t.Errorf("input reordered: %v", members)
	}
}

func TestMembershipHash_SeparatorMatters(t *testing.T) {
	// "a|b" as one id must not collide with ids "a" and "b".
	a := MembershipHash([]domain.TokenID{"1-0xa", "1-0xb"})
	b := MembershipHash([]domain.TokenID{"1-0xa1-0xb"})
	if a == b {
		t.Error("concatenated ids collided")
	}
}
