// internal/wager/roster.go
package wager

import (
	"encoding/json"

	"github.com/google/uuid"
)

// RosterCapacity bounds storage per side regardless of the configured team
// size, matching the persisted-record allocation of the ledger program.
const RosterCapacity = 5

// Roster is a fixed-capacity, append-only member list for one side. It never
// reallocates; team size only limits how much of the array is used.
type Roster struct {
	members [RosterCapacity]uuid.UUID
	count   uint8
}

// Count returns the number of members on the roster.
func (r *Roster) Count() uint8 {
	return r.count
}

// Contains reports whether the participant is on the roster.
func (r *Roster) Contains(p uuid.UUID) bool {
	for i := uint8(0); i < r.count; i++ {
		if r.members[i] == p {
			return true
		}
	}
	return false
}

// At returns the member at position i in join order.
func (r *Roster) At(i int) uuid.UUID {
	return r.members[i]
}

// Members returns a copy of the roster in join order.
func (r *Roster) Members() []uuid.UUID {
	out := make([]uuid.UUID, r.count)
	copy(out, r.members[:r.count])
	return out
}

// append adds a participant. Callers validate capacity and duplicates first;
// appending past capacity indicates a bug upstream.
func (r *Roster) append(p uuid.UUID) {
	if r.count >= RosterCapacity {
		panic("wager: roster append past capacity")
	}
	r.members[r.count] = p
	r.count++
}

// MarshalJSON renders the roster as a plain array of member IDs.
func (r Roster) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Members())
}
