// internal/ledger/ledger.go
package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrInsufficientFunds is returned by Transfer when the source account does
// not hold the requested amount.
var ErrInsufficientFunds = errors.New("ledger: insufficient funds")

// Ledger is the custody backend the settlement engine moves funds through.
// Implementations must serialize transfers touching the same account; the
// wagering core relies on that guarantee instead of taking its own locks
// around money movement.
//
// Accounts are keyed by UUID. Lobby escrows are ordinary accounts keyed by
// the lobby ID, so escrow balances are observable through Balance like any
// participant account.
type Ledger interface {
	Balance(ctx context.Context, account uuid.UUID) (uint64, error)
	Transfer(ctx context.Context, from, to uuid.UUID, amount uint64) error

	// CheckpointHash returns a hash over recent ledger state. Only the
	// insecure local-entropy randomness fallback consumes this.
	CheckpointHash(ctx context.Context) ([32]byte, error)
}
