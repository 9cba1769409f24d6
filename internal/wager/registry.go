// internal/wager/registry.go
package wager

import (
	"sync"

	"github.com/google/uuid"
)

// Registry enforces at most one active lobby per creator and indexes the
// lobbies that have not reached a terminal state. An entry is created
// atomically with its lobby and released exactly once, by whichever
// operation drives the lobby to Resolved or Refunded; the caller's
// finalized guard is what prevents a second release.
type Registry struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*Lobby
	byOwner map[uuid.UUID]uuid.UUID
}

// NewRegistry returns an empty lobby registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:    make(map[uuid.UUID]*Lobby),
		byOwner: make(map[uuid.UUID]uuid.UUID),
	}
}

// Register indexes a freshly created lobby, failing with
// ErrDuplicateActiveLobby if the creator already has one in flight.
func (r *Registry) Register(l *Lobby) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byOwner[l.Creator]; exists {
		return ErrDuplicateActiveLobby
	}
	r.byOwner[l.Creator] = l.ID
	r.byID[l.ID] = l
	return nil
}

// Release drops the terminal lobby from the active index, freeing the
// creator to open a new one.
func (r *Registry) Release(l *Lobby) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byOwner[l.Creator] == l.ID {
		delete(r.byOwner, l.Creator)
	}
	delete(r.byID, l.ID)
}

// Get returns an active lobby by ID.
func (r *Registry) Get(id uuid.UUID) (*Lobby, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byID[id]
	return l, ok
}

// Active returns a snapshot of all active lobbies.
func (r *Registry) Active() []*Lobby {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Lobby, 0, len(r.byID))
	for _, l := range r.byID {
		out = append(out, l)
	}
	return out
}
