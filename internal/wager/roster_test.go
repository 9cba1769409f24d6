// internal/wager/roster_test.go
package wager

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestRosterJoinOrder(t *testing.T) {
	var r Roster
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		r.append(id)
	}

	if r.Count() != 3 {
		t.Fatalf("count = %d, want 3", r.Count())
	}
	for i, id := range ids {
		if r.At(i) != id {
			t.Errorf("At(%d) = %v, want %v", i, r.At(i), id)
		}
	}
	if !r.Contains(ids[1]) || r.Contains(uuid.New()) {
		t.Error("Contains mismatch")
	}

	got := r.Members()
	got[0] = uuid.New() // Members must be a copy
	if r.At(0) != ids[0] {
		t.Error("Members leaked the backing array")
	}
}

func TestRosterAppendPastCapacityPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic past capacity")
		}
	}()
	var r Roster
	for i := 0; i <= RosterCapacity; i++ {
		r.append(uuid.New())
	}
}

func TestRosterMarshalsAsArray(t *testing.T) {
	var r Roster
	a, b := uuid.New(), uuid.New()
	r.append(a)
	r.append(b)

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var got []uuid.UUID
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("marshaled roster = %v, want [%v %v]", got, a, b)
	}
}
