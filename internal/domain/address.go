package domain

import (
	"errors"

	"github.com/mr-tron/base58"
)

// AddressLength is the byte length of a decoded Solana address.
const AddressLength = 32

var (
	// ErrInvalidAddress is returned when a value is not a base58 32-byte address.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrNoRewardPools is returned for a pool without reward sub-pools.
	ErrNoRewardPools = errors.New("pool has no reward sub-pools")

	// ErrRewardPoolIndex is returned when a sub-pool index does not match its position.
	ErrRewardPoolIndex = errors.New("reward sub-pool index does not match position")
)

// ValidateAddress checks that s decodes to a 32-byte base58 address.
func ValidateAddress(s string) error {
	if s == "" {
		return ErrInvalidAddress
	}
	decoded, err := base58.Decode(s)
	if err != nil || len(decoded) != AddressLength {
		return ErrInvalidAddress
	}
	return nil
}
