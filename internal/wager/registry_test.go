// internal/wager/registry_test.go
package wager

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRegistryOneLobbyPerCreator(t *testing.T) {
	r := NewRegistry()
	creator := uuid.New()

	first := NewLobby(creator, 2, 50_000_000, time.Now())
	if err := r.Register(first); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	second := NewLobby(creator, 2, 50_000_000, time.Now())
	if err := r.Register(second); !errors.Is(err, ErrDuplicateActiveLobby) {
		t.Fatalf("duplicate register err = %v, want ErrDuplicateActiveLobby", err)
	}

	r.Release(first)
	if err := r.Register(second); err != nil {
		t.Fatalf("register after release failed: %v", err)
	}
}

func TestRegistryGetAndActive(t *testing.T) {
	r := NewRegistry()
	a := NewLobby(uuid.New(), 1, 50_000_000, time.Now())
	b := NewLobby(uuid.New(), 5, 50_000_000, time.Now())
	if err := r.Register(a); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(b); err != nil {
		t.Fatal(err)
	}

	got, ok := r.Get(a.ID)
	if !ok || got != a {
		t.Fatalf("Get(%v) = %v, %v", a.ID, got, ok)
	}
	if _, ok := r.Get(uuid.New()); ok {
		t.Error("Get returned a lobby for an unknown ID")
	}
	if n := len(r.Active()); n != 2 {
		t.Errorf("Active len = %d, want 2", n)
	}

	r.Release(b)
	if _, ok := r.Get(b.ID); ok {
		t.Error("released lobby still reachable")
	}
	if n := len(r.Active()); n != 1 {
		t.Errorf("Active len after release = %d, want 1", n)
	}
}
