package api

import (
	"crypto/ed25519"
	"errors"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"

	"stakepool-custody/internal/domain"
)

// SignatureHeader carries the caller's base58 ed25519 signature over SigningMessage.
const SignatureHeader = "X-Caller-Signature"

const signingDomain = "stakepool-custody/penalty/v1"

var (
	errMissingSignature = errors.New("missing " + SignatureHeader)
	errBadSignature     = errors.New("signature does not verify for caller")
)

// SigningMessage returns the canonical bytes a caller signs for req.
func SigningMessage(req domain.PenaltyRequest) []byte {
	return signingMessage(req.PoolIdentity, req.Vault, req.Mint, req.Caller,
		strconv.FormatUint(req.PoolIndex, 10), strconv.FormatUint(req.Amount, 10),
		req.Destination, string(req.Action))
}

func signingMessage(pool, vault, mint, caller, index, amount, destination, action string) []byte {
	return []byte(strings.Join([]string{
		signingDomain, pool, vault, mint, caller, index, amount, destination, action,
	}, "\n"))
}

// verifySignature checks that sig was produced by caller's key over msg.
// The caller address is its ed25519 public key.
func verifySignature(caller string, msg []byte, sig string) error {
	if sig == "" {
		return errMissingSignature
	}
	pub, err := base58.Decode(caller)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return errBadSignature
	}
	raw, err := base58.Decode(sig)
	if err != nil || len(raw) != ed25519.SignatureSize {
		return errBadSignature
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), msg, raw) {
		return errBadSignature
	}
	return nil
}
