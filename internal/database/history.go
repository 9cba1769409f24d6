// internal/database/history.go
package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/avolkov/pvparena/internal/wager"
)

// InsertLobbyHistory writes the terminal audit row for a settled or
// refunded lobby. Terminal records persist even though the lobby itself is
// dropped from the active registry.
func InsertLobbyHistory(ctx context.Context, rec wager.HistoryRecord) error {
	q := `
	INSERT INTO lobby_history (
		id, creator, status, team_size, stake,
		team1, team2,
		winner_side, randomness_value,
		pot, fee, payout_per_winner, total_moved,
		created_at, finalized_at
	)
	VALUES ($1, $2, $3, $4, $5,
	        $6, $7,
	        $8, $9,
	        $10, $11, $12, $13,
	        $14, $15)
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q,
			rec.LobbyID,
			rec.Creator,
			string(rec.Status),
			int16(rec.TeamSize),
			int64(rec.Stake),
			uuidStrings(rec.Team1),
			uuidStrings(rec.Team2),
			int16(rec.WinnerSide),
			int64(rec.RandomnessValue),
			int64(rec.Pot),
			int64(rec.Fee),
			int64(rec.PayoutPerWinner),
			int64(rec.TotalMoved),
			rec.CreatedAt,
			rec.FinalizedAt,
		)
		return err
	})
}

// GetLobbyHistory fetches one terminal lobby record by ID.
func GetLobbyHistory(ctx context.Context, lobbyID uuid.UUID) (*wager.HistoryRecord, error) {
	var (
		rec          wager.HistoryRecord
		status       string
		teamSize     int16
		winnerSide   int16
		stake, pot   int64
		fee, payout  int64
		moved, value int64
		team1, team2 []string
	)
	q := `
	SELECT id, creator, status, team_size, stake,
	       team1, team2,
	       winner_side, randomness_value,
	       pot, fee, payout_per_winner, total_moved,
	       created_at, finalized_at
	FROM lobby_history
	WHERE id = $1
	`
	err := DB.QueryRow(ctx, q, lobbyID).Scan(
		&rec.LobbyID, &rec.Creator, &status, &teamSize, &stake,
		&team1, &team2,
		&winnerSide, &value,
		&pot, &fee, &payout, &moved,
		&rec.CreatedAt, &rec.FinalizedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Status = wager.Status(status)
	rec.TeamSize = uint8(teamSize)
	rec.Stake = uint64(stake)
	rec.WinnerSide = uint8(winnerSide)
	rec.RandomnessValue = uint64(value)
	rec.Pot = uint64(pot)
	rec.Fee = uint64(fee)
	rec.PayoutPerWinner = uint64(payout)
	rec.TotalMoved = uint64(moved)
	if rec.Team1, err = parseUUIDs(team1); err != nil {
		return nil, fmt.Errorf("parse team1: %w", err)
	}
	if rec.Team2, err = parseUUIDs(team2); err != nil {
		return nil, fmt.Errorf("parse team2: %w", err)
	}
	return &rec, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, len(raw))
	for i, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}
