package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"stakepool-custody/internal/domain"
)

// ComputeReceiptID computes a receipt_id using SHA256.
// Formula: SHA256(execution_id|pool_identity|pool_index|action|amount|destination|forfeitable_after|executed_at)
// executionID must be unique per executed action; the rest binds the ID to
// what was executed. Returns hex-encoded hash (64 characters).
func ComputeReceiptID(
	executionID string,
	poolIdentity string,
	poolIndex uint64,
	action domain.Action,
	amount uint64,
	destination string,
	forfeitableAfter uint64,
	executedAt int64,
) string {
	data := fmt.Sprintf("%s|%s|%d|%s|%d|%s|%d|%d",
		executionID,
		poolIdentity,
		poolIndex,
		string(action),
		amount,
		destination,
		forfeitableAfter,
		executedAt,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
