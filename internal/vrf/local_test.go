// internal/vrf/local_test.go
package vrf

import (
	"context"
	"errors"
	"testing"
)

func TestLocalEntropyFulfillsImmediately(t *testing.T) {
	checkpoint := [32]byte{1, 2, 3}
	o := NewLocalEntropy(func(context.Context) ([32]byte, error) {
		return checkpoint, nil
	})
	ctx := context.Background()
	seed := mustSeed(t, 9)

	handle, err := o.Request(ctx, seed)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	f, err := o.Read(ctx, handle)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	var zero [PayloadLen]byte
	if f.Randomness == zero {
		t.Error("payload is all zeroes")
	}
}

func TestLocalEntropyUnknownHandle(t *testing.T) {
	o := NewLocalEntropy(func(context.Context) ([32]byte, error) {
		return [32]byte{}, nil
	})
	if _, err := o.Read(context.Background(), "feedface"); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("err = %v, want ErrUnknownHandle", err)
	}
}

func TestLocalEntropyPropagatesCheckpointError(t *testing.T) {
	boom := errors.New("ledger offline")
	o := NewLocalEntropy(func(context.Context) ([32]byte, error) {
		return [32]byte{}, boom
	})
	if _, err := o.Request(context.Background(), mustSeed(t, 10)); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped checkpoint error", err)
	}
}
