package domain

import (
	"bytes"
	"errors"
	"testing"

	"github.com/mr-tron/base58"
)

func testAddr(b byte) string {
	return base58.Encode(bytes.Repeat([]byte{b}, AddressLength))
}

func testPool() *Pool {
	return &Pool{
		Identity: testAddr(1),
		Vault:    testAddr(2),
		Mint:     testAddr(3),
		Admin:    testAddr(4),
		RewardPools: []RewardSubPool{
			{Index: 0, ForfeitableBalance: 10},
			{Index: 1, ForfeitableBalance: 100},
		},
	}
}

func TestPool_SubPoolBounds(t *testing.T) {
	p := testPool()

	tests := []struct {
		index uint64
		ok    bool
	}{
		{0, true},
		{1, true},
		{2, false},
		{^uint64(0), false},
	}

	for _, tt := range tests {
		_, ok := p.SubPool(tt.index)
		if ok != tt.ok {
			t.Errorf("SubPool(%d) ok = %v, want %v", tt.index, ok, tt.ok)
		}
	}
}

func TestPool_CloneIsIndependent(t *testing.T) {
	p := testPool()
	c := p.Clone()

	c.RewardPools[1].ForfeitableBalance = 0
	c.RewardPools[1].IsLocked = true

	if p.RewardPools[1].ForfeitableBalance != 100 || p.RewardPools[1].IsLocked {
		t.Error("mutating clone changed original reward pools")
	}
}

func TestPool_Validate(t *testing.T) {
	if err := testPool().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	badVault := testPool()
	badVault.Vault = "not-base58-0OIl"
	if err := badVault.Validate(); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("expected ErrInvalidAddress, got %v", err)
	}

	empty := testPool()
	empty.RewardPools = nil
	if err := empty.Validate(); !errors.Is(err, ErrNoRewardPools) {
		t.Errorf("expected ErrNoRewardPools, got %v", err)
	}

	shuffled := testPool()
	shuffled.RewardPools[0].Index = 1
	if err := shuffled.Validate(); !errors.Is(err, ErrRewardPoolIndex) {
		t.Errorf("expected ErrRewardPoolIndex, got %v", err)
	}
}

func TestValidateAddress_ShortKey(t *testing.T) {
	short := base58.Encode([]byte{1, 2, 3})
	if err := ValidateAddress(short); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("expected ErrInvalidAddress for short key, got %v", err)
	}
	if err := ValidateAddress(""); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("expected ErrInvalidAddress for empty, got %v", err)
	}
}

func TestAction_Properties(t *testing.T) {
	tests := []struct {
		action       Action
		targetLocked bool
		debits       bool
		movesFunds   bool
		creditsVault bool
	}{
		{ActionPenalty, true, true, true, false},
		{ActionForfeitToVault, true, true, false, true},
		{ActionRelease, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.action.String(), func(t *testing.T) {
			if !tt.action.IsValid() {
				t.Fatal("expected valid action")
			}
			if got := tt.action.TargetLocked(); got != tt.targetLocked {
				t.Errorf("TargetLocked = %v, want %v", got, tt.targetLocked)
			}
			if got := tt.action.Debits(); got != tt.debits {
				t.Errorf("Debits = %v, want %v", got, tt.debits)
			}
			if got := tt.action.MovesFunds(); got != tt.movesFunds {
				t.Errorf("MovesFunds = %v, want %v", got, tt.movesFunds)
			}
			if got := tt.action.CreditsVault(); got != tt.creditsVault {
				t.Errorf("CreditsVault = %v, want %v", got, tt.creditsVault)
			}
		})
	}

	if Action("LOCK").IsValid() {
		t.Error("unknown action must be invalid")
	}
}
