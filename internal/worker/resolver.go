// internal/worker/resolver.go
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avolkov/pvparena/internal/vrf"
	"github.com/avolkov/pvparena/internal/wager"
)

// Resolver periodically sweeps Pending lobbies and attempts resolution.
// Lobbies whose oracle has not fulfilled yet simply stay Pending until the
// next pass; there is no timeout transition here.
type Resolver struct {
	Svc      *wager.Service
	Interval time.Duration
	Logger   *logrus.Logger
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (r *Resolver) Run(ctx context.Context) {
	r.Logger.Infof("resolver started, sweeping every %s", r.Interval)
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Logger.Info("resolver stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// sweep tries to resolve every Pending lobby once.
func (r *Resolver) sweep(ctx context.Context) {
	for _, l := range r.Svc.Registry().Active() {
		l.Mu.Lock()
		pending := l.Status == wager.StatusPending
		id := l.ID
		recipients := resolveRecipients(l, r.Svc.Params().FeeReceiverID)
		l.Mu.Unlock()
		if !pending {
			continue
		}

		outcome, err := r.Svc.Resolve(ctx, id, recipients)
		switch {
		case err == nil:
			r.Logger.WithFields(logrus.Fields{
				"lobby":      id,
				"winnerSide": outcome.WinnerSide,
			}).Info("resolver settled lobby")
		case errors.Is(err, vrf.ErrNotFulfilled):
			// Retry next sweep.
		case errors.Is(err, wager.ErrLobbyNotPending), errors.Is(err, wager.ErrAlreadyFinalized):
			// Raced with a manual resolve or refund; nothing to do.
		default:
			r.Logger.WithField("lobby", id).Warnf("resolve attempt failed: %v", err)
		}
	}
}

// resolveRecipients builds the required [feeReceiver, team1..., team2...]
// list from the lobby's stored rosters. Callers hold the lobby lock.
func resolveRecipients(l *wager.Lobby, feeReceiver uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, 1+l.ParticipantCount())
	out = append(out, feeReceiver)
	out = append(out, l.Team1.Members()...)
	out = append(out, l.Team2.Members()...)
	return out
}
