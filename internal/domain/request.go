package domain

// PenaltyRequest is an inbound request against one reward sub-pool.
// All fields are mandatory.
type PenaltyRequest struct {
	PoolIdentity string
	Vault        string
	Mint         string
	Caller       string
	PoolIndex    uint64
	Amount       uint64
	Destination  string
	Action       Action

	// IndexInvalid and AmountInvalid mark inputs that were negative or did not
	// fit in 64 bits. PoolIndex or Amount is zero when set.
	IndexInvalid  bool
	AmountInvalid bool
}

// TransferReceipt is returned for every successful action.
// Corresponds to penalty_receipts table in PostgreSQL.
type TransferReceipt struct {
	ReceiptID        string // unique per execution, see idhash.ComputeReceiptID
	PoolIdentity     string
	PoolIndex        uint64
	Action           Action
	Amount           uint64
	Destination      string
	NewLockState     bool
	ForfeitableAfter uint64
	ExecutedAt       int64 // Unix timestamp in milliseconds
}
