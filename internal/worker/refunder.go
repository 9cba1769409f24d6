// internal/worker/refunder.go
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avolkov/pvparena/internal/wager"
)

// Refunder is the operational janitor: with the admin authority it
// force-refunds lobbies stuck in Pending past a deadline (oracle never
// fulfilled) and refunds Open lobbies that have sat unfilled past their
// expiry.
type Refunder struct {
	Svc      *wager.Service
	Interval time.Duration

	// PendingDeadline is how long a lobby may wait on its oracle before
	// being force-refunded.
	PendingDeadline time.Duration

	// OpenExpiry is how long an Open lobby may sit unfilled before being
	// refunded on the participants' behalf.
	OpenExpiry time.Duration

	Logger *logrus.Logger
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (r *Refunder) Run(ctx context.Context) {
	r.Logger.Infof("refunder started, sweeping every %s", r.Interval)
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Logger.Info("refunder stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

type refundCandidate struct {
	id         uuid.UUID
	recipients []uuid.UUID
	forced     bool
}

// sweep collects overdue lobbies and refunds them with admin authority.
func (r *Refunder) sweep(ctx context.Context) {
	now := time.Now()
	var candidates []refundCandidate

	for _, l := range r.Svc.Registry().Active() {
		l.Mu.Lock()
		switch {
		case l.Status == wager.StatusPending && now.Sub(l.CreatedAt) >= r.PendingDeadline:
			candidates = append(candidates, refundCandidate{
				id:         l.ID,
				recipients: refundRecipients(l),
				forced:     true,
			})
		case l.Status == wager.StatusOpen && now.Sub(l.CreatedAt) >= r.OpenExpiry:
			candidates = append(candidates, refundCandidate{
				id:         l.ID,
				recipients: refundRecipients(l),
			})
		}
		l.Mu.Unlock()
	}

	admin := r.Svc.Params().AdminID
	for _, c := range candidates {
		var err error
		if c.forced {
			_, err = r.Svc.ForceRefund(ctx, c.id, admin, c.recipients)
		} else {
			_, err = r.Svc.Refund(ctx, c.id, admin, c.recipients)
		}
		switch {
		case err == nil:
			r.Logger.WithFields(logrus.Fields{
				"lobby":  c.id,
				"forced": c.forced,
			}).Info("refunder reversed overdue lobby")
		case errors.Is(err, wager.ErrAlreadyFinalized), errors.Is(err, wager.ErrLobbyNotFound):
			// Raced with a resolve or manual refund.
		default:
			r.Logger.WithField("lobby", c.id).Warnf("refund attempt failed: %v", err)
		}
	}
}

// refundRecipients builds [team1..., team2...] in join order. Callers hold
// the lobby lock.
func refundRecipients(l *wager.Lobby) []uuid.UUID {
	out := make([]uuid.UUID, 0, l.ParticipantCount())
	out = append(out, l.Team1.Members()...)
	out = append(out, l.Team2.Members()...)
	return out
}
