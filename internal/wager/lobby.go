// internal/wager/lobby.go
package wager

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avolkov/pvparena/internal/vrf"
)

// Status is the lobby lifecycle state.
type Status string

const (
	StatusOpen     Status = "open"     // collecting participants
	StatusPending  Status = "pending"  // randomness requested, waiting for fulfillment
	StatusResolved Status = "resolved" // paid out to winners
	StatusRefunded Status = "refunded" // stakes returned to participants
)

// Sides of a lobby. Side is a 0/1 bit everywhere it crosses a boundary.
const (
	SideTeam1 uint8 = 0
	SideTeam2 uint8 = 1
)

// AllowedTeamSizes are the per-side sizes a lobby may be created with.
var AllowedTeamSizes = []uint8{1, 2, 5}

// Lobby is the aggregate for one wager: two rosters, a fixed per-seat stake,
// and the settlement state machine. The escrow holding the stakes is the
// ledger account keyed by the lobby ID.
//
// Mu guards all mutable fields. The service locks it for the duration of
// every operation that touches the lobby, mirroring the single-writer
// serialization the custody ledger provides per account.
type Lobby struct {
	Mu sync.Mutex `json:"-"`

	ID        uuid.UUID `json:"id"`
	Creator   uuid.UUID `json:"creator"`
	Status    Status    `json:"status"`
	TeamSize  uint8     `json:"teamSize"`
	Stake     uint64    `json:"stake"`
	CreatedAt time.Time `json:"createdAt"`

	// Finalized is set exactly once, immediately before the terminal
	// disbursement begins. It is the reentrancy fence: any second
	// resolve/refund attempt observes it and fails.
	Finalized bool `json:"finalized"`

	// Seed and Handle are set on the join that fills both rosters, never
	// again. HasRequest distinguishes "never requested" from a zero value.
	Seed       vrf.Seed   `json:"-"`
	Handle     vrf.Handle `json:"randomnessHandle,omitempty"`
	HasRequest bool       `json:"-"`

	// WinnerSide is meaningful only once Status == StatusResolved.
	WinnerSide uint8 `json:"winnerSide"`

	// RandomnessValue is the audited u64 the winner was derived from,
	// recorded at resolution for transparency.
	RandomnessValue uint64 `json:"randomnessValue,omitempty"`

	Team1 Roster `json:"team1"`
	Team2 Roster `json:"team2"`
}

// NewLobby builds an Open lobby. Parameter validation (team size, stake
// floor, side) happens in the service before any funds move.
func NewLobby(creator uuid.UUID, teamSize uint8, stake uint64, now time.Time) *Lobby {
	id, _ := uuid.NewV7()
	return &Lobby{
		ID:        id,
		Creator:   creator,
		Status:    StatusOpen,
		TeamSize:  teamSize,
		Stake:     stake,
		CreatedAt: now,
	}
}

// roster returns the roster for a validated side.
func (l *Lobby) roster(side uint8) *Roster {
	if side == SideTeam1 {
		return &l.Team1
	}
	return &l.Team2
}

// IsFull reports whether both rosters hold TeamSize members.
func (l *Lobby) IsFull() bool {
	return l.Team1.Count() == l.TeamSize && l.Team2.Count() == l.TeamSize
}

// ParticipantCount is the total number of joined participants.
func (l *Lobby) ParticipantCount() int {
	return int(l.Team1.Count()) + int(l.Team2.Count())
}

// admitCheck validates a prospective join without mutating anything.
// Callers hold Mu.
func (l *Lobby) admitCheck(p uuid.UUID, side uint8) error {
	if side > 1 {
		return ErrInvalidSide
	}
	if l.Status != StatusOpen {
		return ErrLobbyNotJoinable
	}
	if l.Team1.Contains(p) || l.Team2.Contains(p) {
		return ErrAlreadyJoined
	}
	if l.roster(side).Count() >= l.TeamSize {
		return ErrSideFull
	}
	return nil
}

// admit appends a validated participant to the chosen side. Callers hold Mu
// and have already collected the stake into escrow.
func (l *Lobby) admit(p uuid.UUID, side uint8) {
	l.roster(side).append(p)
}

// JoinResult reports roster occupancy after a join, for event emission.
type JoinResult struct {
	Team1Count uint8     `json:"team1Count"`
	Team2Count uint8     `json:"team2Count"`
	IsFull     bool      `json:"isFull"`
	LobbyID    uuid.UUID `json:"lobbyId"`
}
