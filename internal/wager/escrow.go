// internal/wager/escrow.go
package wager

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avolkov/pvparena/internal/ledger"
)

// PayoutEngine drains a lobby's escrow account at terminal transitions.
//
// Recipient lists are always caller-supplied and validated against the
// stored rosters; the engine never infers recipients from storage. The
// finalized flag and terminal status are written before the first transfer,
// so a reentrant resolve/refund observes Finalized and is rejected - that
// ordering is the design's reentrancy guard.
type PayoutEngine struct {
	ledger      ledger.Ledger
	feeReceiver uuid.UUID
	logger      *logrus.Logger
}

// NewPayoutEngine builds the engine over the custody ledger. feeReceiver is
// the deployment's configured fee account; it never varies per lobby.
func NewPayoutEngine(l ledger.Ledger, feeReceiver uuid.UUID, logger *logrus.Logger) *PayoutEngine {
	return &PayoutEngine{ledger: l, feeReceiver: feeReceiver, logger: logger}
}

// Transfer is one completed escrow disbursement.
type Transfer struct {
	To     uuid.UUID
	Amount uint64
}

// Disbursement records the transfers completed by one terminal transition,
// in execution order. On a mid-sequence failure it holds the progress made
// before the abort; remediation of a partial payout is manual.
type Disbursement struct {
	Transfers []Transfer
}

// Total sums the disbursed amounts.
func (d *Disbursement) Total() uint64 {
	var t uint64
	for _, tr := range d.Transfers {
		t += tr.Amount
	}
	return t
}

// PayOut settles a resolved lobby: fee to the fee receiver first, then the
// winning roster in join order. recipients must be exactly
// [feeReceiver, team1 in join order..., team2 in join order...].
// Callers hold the lobby's lock and have already set WinnerSide.
func (e *PayoutEngine) PayOut(ctx context.Context, l *Lobby, recipients []uuid.UUID, s Settlement) (*Disbursement, error) {
	if err := e.checkSettleRecipients(l, recipients); err != nil {
		return nil, err
	}

	amounts := make([]uint64, len(recipients))
	amounts[0] = s.Fee
	winnerStart := 1
	winnerLen := int(l.Team1.Count())
	if l.WinnerSide == SideTeam2 {
		winnerStart = 1 + int(l.Team1.Count())
		winnerLen = int(l.Team2.Count())
	}
	for i := 0; i < winnerLen; i++ {
		amounts[winnerStart+i] = s.PayoutPerWinner
	}

	return e.run(ctx, l, StatusResolved, recipients, amounts)
}

// RefundAll returns every participant's stake: team1 members then team2
// members, in join order. recipients must be exactly the concatenated
// rosters, with no fee receiver entry.
func (e *PayoutEngine) RefundAll(ctx context.Context, l *Lobby, recipients []uuid.UUID) (*Disbursement, error) {
	if err := e.checkRefundRecipients(l, recipients); err != nil {
		return nil, err
	}
	amounts := make([]uint64, len(recipients))
	for i := range amounts {
		amounts[i] = l.Stake
	}
	return e.run(ctx, l, StatusRefunded, recipients, amounts)
}

// checkSettleRecipients validates the [fee, team1..., team2...] shape.
func (e *PayoutEngine) checkSettleRecipients(l *Lobby, recipients []uuid.UUID) error {
	if len(recipients) != 1+l.ParticipantCount() {
		return ErrRecipientListLength
	}
	if recipients[0] != e.feeReceiver {
		return ErrRecipientIdentity
	}
	return matchRosters(l, recipients[1:])
}

// checkRefundRecipients validates the [team1..., team2...] shape.
func (e *PayoutEngine) checkRefundRecipients(l *Lobby, recipients []uuid.UUID) error {
	if len(recipients) != l.ParticipantCount() {
		return ErrRecipientListLength
	}
	return matchRosters(l, recipients)
}

// matchRosters requires rest to equal team1 then team2 in join order.
func matchRosters(l *Lobby, rest []uuid.UUID) error {
	n1 := int(l.Team1.Count())
	for i := 0; i < n1; i++ {
		if rest[i] != l.Team1.At(i) {
			return ErrRecipientIdentity
		}
	}
	for j := 0; j < int(l.Team2.Count()); j++ {
		if rest[n1+j] != l.Team2.At(j) {
			return ErrRecipientIdentity
		}
	}
	return nil
}

// run finalizes the lobby and then performs the transfers in order. A
// failure mid-sequence aborts the invocation; the lobby stays finalized and
// the returned Disbursement shows how far payment got.
func (e *PayoutEngine) run(ctx context.Context, l *Lobby, terminal Status, recipients []uuid.UUID, amounts []uint64) (*Disbursement, error) {
	if l.Finalized {
		return nil, ErrAlreadyFinalized
	}

	// Point of no return: finalize before any funds move.
	l.Finalized = true
	l.Status = terminal

	d := &Disbursement{}
	for i, to := range recipients {
		amount := amounts[i]
		if amount == 0 {
			continue
		}
		if err := e.ledger.Transfer(ctx, l.ID, to, amount); err != nil {
			if errors.Is(err, ledger.ErrInsufficientFunds) {
				err = ErrInsufficientEscrow
			}
			e.logger.WithFields(logrus.Fields{
				"lobby":     l.ID,
				"recipient": to,
				"amount":    amount,
				"paid":      len(d.Transfers),
			}).Error("escrow disbursement aborted mid-sequence")
			return d, fmt.Errorf("disburse to %s: %w", to, err)
		}
		d.Transfers = append(d.Transfers, Transfer{To: to, Amount: amount})
	}
	return d, nil
}
