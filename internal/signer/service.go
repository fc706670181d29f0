// Package signer derives the program-controlled authority that signs outgoing
// vault transfers. The authority is a program derived address whose seeds mix
// the pool identity with a private derivation tag held only by this process.
package signer

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/hkdf"
)

// MinTagLength is the minimum derivation tag size in bytes.
const MinTagLength = 32

const pdaMarker = "ProgramDerivedAddress"

var hkdfSalt = []byte("stakepool-signer")

var (
	// ErrTagTooShort is returned when the derivation tag is shorter than MinTagLength.
	ErrTagTooShort = errors.New("derivation tag too short")

	// ErrInvalidIdentity is returned when a pool identity is not a 32-byte base58 address.
	ErrInvalidIdentity = errors.New("invalid pool identity")

	// ErrInvalidProgramID is returned when the program ID is not a 32-byte base58 address.
	ErrInvalidProgramID = errors.New("invalid program id")

	// ErrNoViableBump is returned when every bump seed lands on the ed25519 curve.
	ErrNoViableBump = errors.New("unable to find a viable program address bump seed")
)

// Service derives authorities for pools. The tag is process-lifetime state:
// it is copied in at construction and there is no accessor for it.
type Service struct {
	tag       []byte
	programID []byte
}

// New creates a derivation service for the given program ID.
func New(tag []byte, programID string) (*Service, error) {
	if len(tag) < MinTagLength {
		return nil, ErrTagTooShort
	}
	program, err := base58.Decode(programID)
	if err != nil || len(program) != 32 {
		return nil, ErrInvalidProgramID
	}

	t := make([]byte, len(tag))
	copy(t, tag)
	return &Service{tag: t, programID: program}, nil
}

// LoadTagFile reads a hex-encoded derivation tag from path.
func LoadTagFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read derivation tag: %w", err)
	}
	tag, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("decode derivation tag: %w", err)
	}
	if len(tag) < MinTagLength {
		return nil, ErrTagTooShort
	}
	return tag, nil
}

// Derive returns the authority for a pool identity.
// Same identity always yields the same authority; distinct identities yield distinct ones.
func (s *Service) Derive(identity string) (Authority, error) {
	id, err := base58.Decode(identity)
	if err != nil || len(id) != 32 {
		return Authority{}, ErrInvalidIdentity
	}

	seed, err := s.seed(id)
	if err != nil {
		return Authority{}, err
	}

	key, bump, err := findProgramAddress([][]byte{id, seed}, s.programID)
	if err != nil {
		return Authority{}, err
	}
	return Authority{key: key, bump: bump, set: true}, nil
}

// seed expands the private tag into per-pool seed material.
func (s *Service) seed(identity []byte) ([]byte, error) {
	reader := hkdf.New(sha256.New, s.tag, hkdfSalt, identity)

	out := make([]byte, 32)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, fmt.Errorf("derive seed: %w", err)
	}
	return out, nil
}

// String implements fmt.Stringer without revealing the tag.
func (s *Service) String() string {
	return "signer.Service{tag:" + redacted + "}"
}

// GoString implements fmt.GoStringer without revealing the tag.
func (s *Service) GoString() string {
	return s.String()
}

// findProgramAddress derives a program address using the Solana algorithm:
// sha256(seeds || bump || programID || "ProgramDerivedAddress"), searching bump
// from 255 down until the hash is not a valid ed25519 point.
func findProgramAddress(seeds [][]byte, programID []byte) ([32]byte, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		data := make([]byte, 0, 32*len(seeds)+1+len(programID)+len(pdaMarker))
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, byte(bump))
		data = append(data, programID...)
		data = append(data, pdaMarker...)

		hash := sha256.Sum256(data)
		if !isOnCurve(hash[:]) {
			return hash, uint8(bump), nil
		}
	}
	return [32]byte{}, 0, ErrNoViableBump
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// Custodies reports whether address is the derived authority of identity.
func (s *Service) Custodies(identity, address string) (bool, error) {
	a, err := s.Derive(identity)
	if err != nil {
		return false, err
	}
	return a.MatchesAddress(address), nil
}
