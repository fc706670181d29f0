package domain

// Outcome is the result class of a penalty request.
type Outcome string

const (
	OutcomeAccepted   Outcome = "ACCEPTED"
	OutcomeRejected   Outcome = "REJECTED"
	OutcomeRolledBack Outcome = "ROLLED_BACK"
)

// PenaltyEvent is an append-only audit row for every request the engine handled.
// Corresponds to penalty_events table in ClickHouse.
type PenaltyEvent struct {
	EventTime    int64 // Unix timestamp in milliseconds
	PoolIdentity string
	PoolIndex    uint64
	Action       Action
	Amount       uint64
	Caller       string
	Outcome      Outcome
	ErrorKind    string // empty when accepted
	ReceiptID    string // empty unless accepted
}
