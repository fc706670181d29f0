package domain

// Action is the closed set of operations a caller may request against a reward sub-pool.
// The resulting lock state is a function of the action, never a caller-supplied value.
type Action string

const (
	// ActionPenalty locks the sub-pool, debits the forfeitable balance and moves
	// the amount out of the vault to the destination.
	ActionPenalty Action = "PENALTY"
	// ActionForfeitToVault locks the sub-pool and debits the forfeitable balance
	// while the tokens stay in the vault. Destination must be the vault itself.
	ActionForfeitToVault Action = "FORFEIT_TO_VAULT"
	// ActionRelease unlocks the sub-pool. Amount must be zero; nothing moves.
	// Destination stays mandatory and must be a valid address other than the
	// vault, the same as for PENALTY, so every request passes one rule set.
	ActionRelease Action = "RELEASE"
)

// String returns the string representation of Action.
func (a Action) String() string {
	return string(a)
}

// IsValid checks if the action is a known value.
func (a Action) IsValid() bool {
	switch a {
	case ActionPenalty, ActionForfeitToVault, ActionRelease:
		return true
	}
	return false
}

// TargetLocked is the lock state a sub-pool ends in after the action.
func (a Action) TargetLocked() bool {
	return a != ActionRelease
}

// Debits reports whether the action consumes forfeitable balance.
func (a Action) Debits() bool {
	return a == ActionPenalty || a == ActionForfeitToVault
}

// MovesFunds reports whether the action invokes the transfer primitive.
func (a Action) MovesFunds() bool {
	return a == ActionPenalty
}

// CreditsVault reports whether the action's destination is the pool vault by design.
func (a Action) CreditsVault() bool {
	return a == ActionForfeitToVault
}
