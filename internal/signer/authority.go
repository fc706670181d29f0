package signer

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"github.com/mr-tron/base58"
)

const redacted = "[redacted]"

// ErrNotSerializable is returned by every marshal method of Authority.
var ErrNotSerializable = errors.New("derived authority is not serializable")

// Authority is the opaque signing identity of a pool. It can be compared but
// never printed, marshaled or converted back to bytes.
type Authority struct {
	key  [32]byte
	bump uint8
	set  bool
}

// IsZero reports whether the authority was never derived.
func (a Authority) IsZero() bool {
	return !a.set
}

// Equal reports whether both authorities are derived and identical.
func (a Authority) Equal(other Authority) bool {
	if !a.set || !other.set {
		return false
	}
	return subtle.ConstantTimeCompare(a.key[:], other.key[:]) == 1
}

// MatchesAddress reports whether the authority is the given base58 address.
// Used to confirm on-chain custody of a vault.
func (a Authority) MatchesAddress(address string) bool {
	if !a.set {
		return false
	}
	decoded, err := base58.Decode(address)
	if err != nil || len(decoded) != len(a.key) {
		return false
	}
	return subtle.ConstantTimeCompare(a.key[:], decoded) == 1
}

// String implements fmt.Stringer.
func (a Authority) String() string {
	return "Authority" + redacted
}

// GoString implements fmt.GoStringer.
func (a Authority) GoString() string {
	return a.String()
}

// Format implements fmt.Formatter so no verb can reach the key bytes.
func (a Authority) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, a.String())
}

// MarshalText implements encoding.TextMarshaler and always fails.
func (a Authority) MarshalText() ([]byte, error) {
	return nil, ErrNotSerializable
}

// MarshalJSON implements json.Marshaler and always fails.
func (a Authority) MarshalJSON() ([]byte, error) {
	return nil, ErrNotSerializable
}

// MarshalBinary implements encoding.BinaryMarshaler and always fails.
func (a Authority) MarshalBinary() ([]byte, error) {
	return nil, ErrNotSerializable
}
