// internal/wager/settlement.go
package wager

import "math"

// Settlement is the computed outcome of a resolved lobby.
type Settlement struct {
	Pot             uint64
	Fee             uint64
	PayoutPerWinner uint64
	WinnersCount    uint64
}

// Settle computes the fee and per-winner payout for a full lobby. The
// multiplications saturate at the uint64 ceiling instead of wrapping, so a
// pathological stake clamps the pot rather than shrinking it.
//
// Integer division on the distributable pot leaves a remainder of at most
// winnersCount-1; it is folded into the fee so the pot always splits
// exactly: Fee + PayoutPerWinner*WinnersCount == Pot, for all inputs.
func Settle(stake uint64, team1Size, team2Size uint8, winnerSide uint8, feeBps uint64) (Settlement, error) {
	if winnerSide > 1 {
		return Settlement{}, ErrInvalidSide
	}
	winners := uint64(team1Size)
	if winnerSide == SideTeam2 {
		winners = uint64(team2Size)
	}
	if winners == 0 {
		return Settlement{}, ErrNoWinners
	}

	pot := satMul(stake, uint64(team1Size)+uint64(team2Size))
	fee := satMul(pot, feeBps) / 10_000
	distributable := satSub(pot, fee)
	payout := distributable / winners
	fee += distributable - payout*winners

	return Settlement{
		Pot:             pot,
		Fee:             fee,
		PayoutPerWinner: payout,
		WinnersCount:    winners,
	}, nil
}

// satMul multiplies, saturating at the uint64 ceiling.
func satMul(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	p := a * b
	if p/a != b {
		return math.MaxUint64
	}
	return p
}

// satSub subtracts with a floor of zero.
func satSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
