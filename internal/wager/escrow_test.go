// internal/wager/escrow_test.go
package wager

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avolkov/pvparena/internal/ledger"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fullLobby builds a funded 2v2 lobby with its stakes already in escrow.
func fullLobby(t *testing.T, led *ledger.Memory, stake uint64) (*Lobby, []uuid.UUID, []uuid.UUID) {
	t.Helper()
	team1 := []uuid.UUID{uuid.New(), uuid.New()}
	team2 := []uuid.UUID{uuid.New(), uuid.New()}
	l := NewLobby(team1[0], 2, stake, time.Now())
	for _, p := range team1 {
		l.admit(p, SideTeam1)
	}
	for _, p := range team2 {
		l.admit(p, SideTeam2)
	}
	led.Credit(l.ID, stake*4)
	return l, team1, team2
}

func TestPayOutOrderAndAmounts(t *testing.T) {
	led := ledger.NewMemory()
	feeReceiver := uuid.New()
	engine := NewPayoutEngine(led, feeReceiver, testLogger())

	const stake = 50_000_000
	l, team1, team2 := fullLobby(t, led, stake)
	l.Status = StatusPending
	l.WinnerSide = SideTeam2

	st, err := Settle(stake, 2, 2, SideTeam2, 100)
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}

	recipients := append([]uuid.UUID{feeReceiver}, append(append([]uuid.UUID{}, team1...), team2...)...)
	d, err := engine.PayOut(context.Background(), l, recipients, st)
	if err != nil {
		t.Fatalf("PayOut failed: %v", err)
	}

	if l.Status != StatusResolved || !l.Finalized {
		t.Fatalf("lobby not finalized resolved: status=%s finalized=%v", l.Status, l.Finalized)
	}
	if len(d.Transfers) != 3 {
		t.Fatalf("transfers = %d, want 3 (fee + 2 winners)", len(d.Transfers))
	}
	if d.Transfers[0].To != feeReceiver || d.Transfers[0].Amount != st.Fee {
		t.Errorf("first transfer = %v/%d, want fee %d to fee receiver", d.Transfers[0].To, d.Transfers[0].Amount, st.Fee)
	}
	for i, winner := range team2 {
		tr := d.Transfers[1+i]
		if tr.To != winner || tr.Amount != st.PayoutPerWinner {
			t.Errorf("transfer %d = %v/%d, want %d to %v", 1+i, tr.To, tr.Amount, st.PayoutPerWinner, winner)
		}
	}

	for _, loser := range team1 {
		if bal, _ := led.Balance(context.Background(), loser); bal != 0 {
			t.Errorf("loser %v balance = %d, want 0", loser, bal)
		}
	}
	if bal, _ := led.Balance(context.Background(), l.ID); bal != 0 {
		t.Errorf("escrow balance = %d, want 0", bal)
	}
}

func TestPayOutRecipientValidation(t *testing.T) {
	led := ledger.NewMemory()
	feeReceiver := uuid.New()
	engine := NewPayoutEngine(led, feeReceiver, testLogger())

	l, team1, team2 := fullLobby(t, led, 50_000_000)
	l.Status = StatusPending
	st, _ := Settle(50_000_000, 2, 2, SideTeam1, 100)

	good := append([]uuid.UUID{feeReceiver}, append(append([]uuid.UUID{}, team1...), team2...)...)

	short := good[:len(good)-1]
	if _, err := engine.PayOut(context.Background(), l, short, st); !errors.Is(err, ErrRecipientListLength) {
		t.Errorf("short list err = %v, want ErrRecipientListLength", err)
	}

	wrongFee := append([]uuid.UUID{uuid.New()}, good[1:]...)
	if _, err := engine.PayOut(context.Background(), l, wrongFee, st); !errors.Is(err, ErrRecipientIdentity) {
		t.Errorf("wrong fee receiver err = %v, want ErrRecipientIdentity", err)
	}

	swapped := append([]uuid.UUID{}, good...)
	swapped[1], swapped[2] = swapped[2], swapped[1]
	if _, err := engine.PayOut(context.Background(), l, swapped, st); !errors.Is(err, ErrRecipientIdentity) {
		t.Errorf("swapped roster err = %v, want ErrRecipientIdentity", err)
	}

	if l.Finalized {
		t.Error("validation failures must not finalize the lobby")
	}
}

func TestRefundAllReturnsStakes(t *testing.T) {
	led := ledger.NewMemory()
	engine := NewPayoutEngine(led, uuid.New(), testLogger())

	const stake = 50_000_000
	l, team1, team2 := fullLobby(t, led, stake)

	recipients := append(append([]uuid.UUID{}, team1...), team2...)
	d, err := engine.RefundAll(context.Background(), l, recipients)
	if err != nil {
		t.Fatalf("RefundAll failed: %v", err)
	}
	if l.Status != StatusRefunded || !l.Finalized {
		t.Fatalf("lobby not finalized refunded: status=%s finalized=%v", l.Status, l.Finalized)
	}
	if d.Total() != stake*4 {
		t.Errorf("total refunded = %d, want %d", d.Total(), stake*4)
	}
	for _, p := range recipients {
		if bal, _ := led.Balance(context.Background(), p); bal != stake {
			t.Errorf("participant %v balance = %d, want %d", p, bal, stake)
		}
	}
}

func TestDisbursementIsGuardedAgainstReentry(t *testing.T) {
	led := ledger.NewMemory()
	engine := NewPayoutEngine(led, uuid.New(), testLogger())

	l, team1, team2 := fullLobby(t, led, 50_000_000)
	recipients := append(append([]uuid.UUID{}, team1...), team2...)

	if _, err := engine.RefundAll(context.Background(), l, recipients); err != nil {
		t.Fatalf("first RefundAll failed: %v", err)
	}
	if _, err := engine.RefundAll(context.Background(), l, recipients); !errors.Is(err, ErrAlreadyFinalized) {
		t.Errorf("second RefundAll err = %v, want ErrAlreadyFinalized", err)
	}
}

func TestDisbursementAbortsOnInsufficientEscrow(t *testing.T) {
	led := ledger.NewMemory()
	engine := NewPayoutEngine(led, uuid.New(), testLogger())

	const stake = 50_000_000
	team1 := []uuid.UUID{uuid.New()}
	team2 := []uuid.UUID{uuid.New()}
	l := NewLobby(team1[0], 1, stake, time.Now())
	l.admit(team1[0], SideTeam1)
	l.admit(team2[0], SideTeam2)
	// Escrow holds one stake too few.
	led.Credit(l.ID, stake)

	recipients := []uuid.UUID{team1[0], team2[0]}
	d, err := engine.RefundAll(context.Background(), l, recipients)
	if !errors.Is(err, ErrInsufficientEscrow) {
		t.Fatalf("err = %v, want ErrInsufficientEscrow", err)
	}
	if !l.Finalized {
		t.Error("lobby must stay finalized after an aborted disbursement")
	}
	if len(d.Transfers) != 1 || d.Transfers[0].To != team1[0] {
		t.Errorf("partial disbursement = %+v, want the single completed transfer to %v", d.Transfers, team1[0])
	}
}
