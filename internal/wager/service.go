// internal/wager/service.go
package wager

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avolkov/pvparena/internal/ledger"
	"github.com/avolkov/pvparena/internal/vrf"
)

// Params are the deployment's fixed economic parameters and trust roots.
// They are injected once at startup and read-only afterwards; nothing here
// is settable per lobby.
type Params struct {
	MinStake   uint64
	FeeBps     uint64
	RefundLock time.Duration

	// AdminID may authorize refunds alongside the creator and is the
	// authority the background refunder acts with.
	AdminID uuid.UUID

	// FeeReceiverID collects the platform fee on every resolution.
	FeeReceiverID uuid.UUID
}

// HistoryRecord is the audit row handed to the finalization sink when a
// lobby reaches a terminal state.
type HistoryRecord struct {
	LobbyID         uuid.UUID
	Creator         uuid.UUID
	Status          Status
	TeamSize        uint8
	Stake           uint64
	Team1           []uuid.UUID
	Team2           []uuid.UUID
	WinnerSide      uint8
	RandomnessValue uint64
	Pot             uint64
	Fee             uint64
	PayoutPerWinner uint64
	TotalMoved      uint64
	CreatedAt       time.Time
	FinalizedAt     time.Time
}

// Service drives the lobby lifecycle: create, join, resolve, refund. One
// lobby's operations are serialized on the lobby mutex; money movement is
// serialized again by the ledger per account.
type Service struct {
	params   Params
	registry *Registry
	ledger   ledger.Ledger
	engine   *PayoutEngine
	gateway  vrf.Gateway
	logger   *logrus.Logger

	// now is swappable for refund-lock tests.
	now func() time.Time

	// OnEvent, when set, receives lobby lifecycle events for broadcast to
	// connected websocket clients.
	OnEvent func(lobbyID uuid.UUID, event map[string]interface{})

	// OnFinalized, when set, receives the audit record after a terminal
	// transition. It is invoked with the lobby lock still held; hand
	// long-running work to a goroutine.
	OnFinalized func(ctx context.Context, rec HistoryRecord)
}

// NewService wires the settlement core.
func NewService(p Params, reg *Registry, led ledger.Ledger, gw vrf.Gateway, logger *logrus.Logger) *Service {
	return &Service{
		params:   p,
		registry: reg,
		ledger:   led,
		engine:   NewPayoutEngine(led, p.FeeReceiverID, logger),
		gateway:  gw,
		logger:   logger,
		now:      time.Now,
	}
}

// Params returns the service's fixed parameters.
func (s *Service) Params() Params {
	return s.params
}

// Registry exposes the active-lobby index (listing, workers).
func (s *Service) Registry() *Registry {
	return s.registry
}

// Gateway returns the configured randomness backend.
func (s *Service) Gateway() vrf.Gateway {
	return s.gateway
}

// teamSizeAllowed checks the fixed allowed set {1, 2, 5}.
func teamSizeAllowed(size uint8) bool {
	for _, allowed := range AllowedTeamSizes {
		if size == allowed {
			return true
		}
	}
	return false
}

// CreateLobby opens a lobby and joins the creator onto the chosen side
// immediately, collecting their stake. One active lobby per creator.
func (s *Service) CreateLobby(ctx context.Context, creator uuid.UUID, teamSize uint8, stake uint64, side uint8) (*Lobby, error) {
	if !teamSizeAllowed(teamSize) {
		return nil, ErrInvalidTeamSize
	}
	if stake < s.params.MinStake {
		return nil, ErrStakeTooSmall
	}
	if side > 1 {
		return nil, ErrInvalidSide
	}

	l := NewLobby(creator, teamSize, stake, s.now())
	if err := s.registry.Register(l); err != nil {
		return nil, err
	}

	// Collect the creator's stake. On failure the lobby never existed as
	// far as the registry is concerned.
	if err := s.collectStake(ctx, l, creator, side); err != nil {
		s.registry.Release(l)
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"lobby":    l.ID,
		"creator":  creator,
		"teamSize": teamSize,
		"stake":    stake,
	}).Info("lobby created")
	s.emit(l.ID, map[string]interface{}{
		"type":     "lobby_created",
		"lobby_id": l.ID.String(),
		"creator":  creator.String(),
		"stake":    stake,
		"teamSize": teamSize,
	})
	return l, nil
}

// Join admits a participant through the ordinary entry point. A join that
// would fill the lobby must go through JoinFinal instead, so the randomness
// request is never skipped; such joins fail with ErrMustUseFinalJoin before
// any funds move.
func (s *Service) Join(ctx context.Context, lobbyID, participant uuid.UUID, side uint8) (JoinResult, error) {
	l, ok := s.registry.Get(lobbyID)
	if !ok {
		return JoinResult{}, ErrLobbyNotFound
	}

	l.Mu.Lock()
	defer l.Mu.Unlock()

	if err := l.admitCheck(participant, side); err != nil {
		return JoinResult{}, err
	}
	if s.wouldFill(l, side) {
		return JoinResult{}, ErrMustUseFinalJoin
	}
	if err := s.collectStake(ctx, l, participant, side); err != nil {
		return JoinResult{}, err
	}

	res := s.joinResult(l)
	s.emitJoined(l, participant, side, res)
	return res, nil
}

// JoinFinal admits a participant through the filling entry point. When the
// join fills both rosters it issues the randomness request exactly once and
// moves the lobby to Pending. A non-filling join through this entry point
// behaves like an ordinary join.
func (s *Service) JoinFinal(ctx context.Context, lobbyID, participant uuid.UUID, side uint8, seed vrf.Seed) (JoinResult, error) {
	if seed.IsZero() {
		return JoinResult{}, ErrInvalidSeed
	}
	l, ok := s.registry.Get(lobbyID)
	if !ok {
		return JoinResult{}, ErrLobbyNotFound
	}

	l.Mu.Lock()
	defer l.Mu.Unlock()

	if err := l.admitCheck(participant, side); err != nil {
		return JoinResult{}, err
	}

	// Issue the oracle request before collecting the stake, so a gateway
	// failure leaves the lobby untouched. An orphaned oracle request from a
	// later stake failure is harmless: requests are keyed by seed and the
	// lobby records a handle only on success.
	var handle vrf.Handle
	willFill := s.wouldFill(l, side)
	if willFill {
		var err error
		handle, err = s.gateway.Request(ctx, seed)
		if err != nil {
			return JoinResult{}, fmt.Errorf("randomness request: %w", err)
		}
	}

	if err := s.collectStake(ctx, l, participant, side); err != nil {
		return JoinResult{}, err
	}

	if willFill {
		l.Seed = seed
		l.Handle = handle
		l.HasRequest = true
		l.Status = StatusPending
		s.logger.WithFields(logrus.Fields{
			"lobby":  l.ID,
			"handle": handle,
		}).Info("lobby full, randomness requested")
	}

	res := s.joinResult(l)
	s.emitJoined(l, participant, side, res)
	return res, nil
}

// wouldFill reports whether admitting one more participant on side fills
// both rosters. Callers hold the lobby lock and have validated the side.
func (s *Service) wouldFill(l *Lobby, side uint8) bool {
	t1, t2 := l.Team1.Count(), l.Team2.Count()
	if side == SideTeam1 {
		t1++
	} else {
		t2++
	}
	return t1 == l.TeamSize && t2 == l.TeamSize
}

// collectStake moves the participant's stake into the lobby escrow and
// appends them to the roster. Under the lobby lock the two steps are atomic
// as observed by every other operation.
func (s *Service) collectStake(ctx context.Context, l *Lobby, participant uuid.UUID, side uint8) error {
	if err := s.ledger.Transfer(ctx, participant, l.ID, l.Stake); err != nil {
		return fmt.Errorf("collect stake: %w", err)
	}
	l.admit(participant, side)
	return nil
}

// joinResult snapshots roster occupancy. Callers hold the lobby lock.
func (s *Service) joinResult(l *Lobby) JoinResult {
	return JoinResult{
		LobbyID:    l.ID,
		Team1Count: l.Team1.Count(),
		Team2Count: l.Team2.Count(),
		IsFull:     l.IsFull(),
	}
}

// ResolveOutcome reports a successful resolution.
type ResolveOutcome struct {
	WinnerSide      uint8
	RandomnessValue uint64
	Settlement      Settlement
	Disbursement    *Disbursement
}

// Resolve reads the fulfilled randomness, picks the winner, and pays out.
// It is callable by anyone (typically the resolver bot): the recipient list
// is validated against stored state, so a caller gains nothing by invoking
// it. While the oracle has not fulfilled, it fails with vrf.ErrNotFulfilled
// and may simply be retried later; no state changes.
func (s *Service) Resolve(ctx context.Context, lobbyID uuid.UUID, recipients []uuid.UUID) (*ResolveOutcome, error) {
	l, ok := s.registry.Get(lobbyID)
	if !ok {
		return nil, ErrLobbyNotFound
	}

	l.Mu.Lock()
	defer l.Mu.Unlock()

	if l.Status != StatusPending {
		return nil, ErrLobbyNotPending
	}
	if l.Finalized {
		return nil, ErrAlreadyFinalized
	}
	if !l.HasRequest {
		return nil, ErrWrongRandomnessHandle
	}

	f, err := s.gateway.Read(ctx, l.Handle)
	if err != nil {
		return nil, err
	}

	value := f.Value()
	winner := uint8(value % 2)

	st, err := Settle(l.Stake, l.Team1.Count(), l.Team2.Count(), winner, s.params.FeeBps)
	if err != nil {
		return nil, err
	}

	l.WinnerSide = winner
	l.RandomnessValue = value

	d, err := s.engine.PayOut(ctx, l, recipients, st)
	if err != nil {
		// A mid-sequence disbursement failure leaves the lobby finalized.
		// It is terminal either way: drop it from the active index and
		// record how far payment got, so the creator is not blocked and
		// remediation can start from the audit row.
		if l.Finalized {
			s.registry.Release(l)
			s.finalized(ctx, l, st, d)
		}
		return nil, err
	}

	s.registry.Release(l)
	s.logger.WithFields(logrus.Fields{
		"lobby":      l.ID,
		"winnerSide": winner,
		"randomness": value,
		"pot":        st.Pot,
		"fee":        st.Fee,
		"payout":     st.PayoutPerWinner,
	}).Info("lobby resolved")
	s.emit(l.ID, map[string]interface{}{
		"type":        "lobby_resolved",
		"lobby_id":    l.ID.String(),
		"winner_side": winner,
		"randomness":  value,
		"pot":         st.Pot,
		"payout":      st.PayoutPerWinner,
	})
	s.finalized(ctx, l, st, d)

	return &ResolveOutcome{
		WinnerSide:      winner,
		RandomnessValue: value,
		Settlement:      st,
		Disbursement:    d,
	}, nil
}

// Refund reverses an Open lobby after the time lock: every participant gets
// their stake back. Only the creator or the admin may request it.
func (s *Service) Refund(ctx context.Context, lobbyID, requester uuid.UUID, recipients []uuid.UUID) (*Disbursement, error) {
	return s.refund(ctx, lobbyID, requester, recipients, false)
}

// ForceRefund is the operational escape hatch: same effect and
// authorization as Refund, but valid from any non-finalized state and
// without the time lock. It unsticks lobbies whose oracle never fulfills.
func (s *Service) ForceRefund(ctx context.Context, lobbyID, requester uuid.UUID, recipients []uuid.UUID) (*Disbursement, error) {
	return s.refund(ctx, lobbyID, requester, recipients, true)
}

func (s *Service) refund(ctx context.Context, lobbyID, requester uuid.UUID, recipients []uuid.UUID, forced bool) (*Disbursement, error) {
	l, ok := s.registry.Get(lobbyID)
	if !ok {
		return nil, ErrLobbyNotFound
	}

	l.Mu.Lock()
	defer l.Mu.Unlock()

	if !forced {
		if l.Status != StatusOpen {
			return nil, ErrLobbyNotOpen
		}
		if s.now().Before(l.CreatedAt.Add(s.params.RefundLock)) {
			return nil, ErrTooSoonToRefund
		}
	}
	if requester != l.Creator && requester != s.params.AdminID {
		return nil, ErrUnauthorized
	}
	if l.Finalized {
		return nil, ErrAlreadyFinalized
	}

	d, err := s.engine.RefundAll(ctx, l, recipients)
	if err != nil {
		// Same as Resolve: once finalized the lobby is terminal even if the
		// disbursement aborted partway, so release it and audit the progress.
		if l.Finalized {
			s.registry.Release(l)
			s.finalized(ctx, l, Settlement{}, d)
		}
		return nil, err
	}

	s.registry.Release(l)
	s.logger.WithFields(logrus.Fields{
		"lobby":    l.ID,
		"refunded": len(d.Transfers),
		"total":    d.Total(),
		"forced":   forced,
	}).Info("lobby refunded")
	s.emit(l.ID, map[string]interface{}{
		"type":     "lobby_refunded",
		"lobby_id": l.ID.String(),
		"refunded": len(d.Transfers),
		"total":    d.Total(),
		"forced":   forced,
	})
	s.finalized(ctx, l, Settlement{}, d)
	return d, nil
}

// Get returns an active lobby.
func (s *Service) Get(lobbyID uuid.UUID) (*Lobby, bool) {
	return s.registry.Get(lobbyID)
}

// emit forwards an event to the broadcast hook, if set.
func (s *Service) emit(lobbyID uuid.UUID, event map[string]interface{}) {
	if s.OnEvent != nil {
		s.OnEvent(lobbyID, event)
	}
}

// emitJoined emits the per-join observability event.
func (s *Service) emitJoined(l *Lobby, participant uuid.UUID, side uint8, res JoinResult) {
	s.emit(l.ID, map[string]interface{}{
		"type":        "player_joined",
		"lobby_id":    l.ID.String(),
		"player":      participant.String(),
		"side":        side,
		"team1_count": res.Team1Count,
		"team2_count": res.Team2Count,
		"is_full":     res.IsFull,
	})
}

// finalized hands the audit record to the sink. Callers hold the lobby
// lock; the fields read here are frozen once the lobby is finalized.
func (s *Service) finalized(ctx context.Context, l *Lobby, st Settlement, d *Disbursement) {
	if s.OnFinalized == nil {
		return
	}
	var moved uint64
	if d != nil {
		moved = d.Total()
	}
	s.OnFinalized(ctx, HistoryRecord{
		LobbyID:         l.ID,
		Creator:         l.Creator,
		Status:          l.Status,
		TeamSize:        l.TeamSize,
		Stake:           l.Stake,
		Team1:           l.Team1.Members(),
		Team2:           l.Team2.Members(),
		WinnerSide:      l.WinnerSide,
		RandomnessValue: l.RandomnessValue,
		Pot:             st.Pot,
		Fee:             st.Fee,
		PayoutPerWinner: st.PayoutPerWinner,
		TotalMoved:      moved,
		CreatedAt:       l.CreatedAt,
		FinalizedAt:     s.now(),
	})
}
