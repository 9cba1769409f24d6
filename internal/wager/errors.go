// internal/wager/errors.go
package wager

import "errors"

// Validation errors. Rejected before any state mutation.
var (
	ErrInvalidSide     = errors.New("invalid side (must be 0 or 1)")
	ErrInvalidTeamSize = errors.New("invalid team size (allowed: 1, 2, 5)")
	ErrStakeTooSmall   = errors.New("stake is below minimum")
	ErrInvalidSeed     = errors.New("invalid randomness seed (cannot be zero)")
)

// State errors. Rejected before any state mutation.
var (
	ErrLobbyNotJoinable = errors.New("lobby already pending/resolved/refunded")
	ErrLobbyNotOpen     = errors.New("lobby is not open")
	ErrLobbyNotPending  = errors.New("lobby not pending")
	ErrAlreadyJoined    = errors.New("participant already joined")
	ErrSideFull         = errors.New("side is full")
	ErrMustUseFinalJoin = errors.New("join would fill the lobby - use the final join entry point")
	ErrAlreadyFinalized = errors.New("lobby already finalized")
	ErrNoWinners        = errors.New("winning side has no members")
)

// Registry and authorization errors.
var (
	ErrDuplicateActiveLobby = errors.New("creator already has an active lobby")
	ErrLobbyNotFound        = errors.New("lobby not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrTooSoonToRefund      = errors.New("too soon to refund")
)

// Consistency errors raised while validating caller-supplied recipient
// lists. Rejected before any transfer.
var (
	ErrRecipientListLength   = errors.New("recipient list length mismatch")
	ErrRecipientIdentity     = errors.New("recipient list does not match stored rosters")
	ErrWrongRandomnessHandle = errors.New("wrong randomness handle bound to lobby")
	ErrInsufficientEscrow    = errors.New("escrow balance below required transfer")
)
