// internal/vrf/local.go
package vrf

import (
	"context"
	"crypto/sha512"
	"encoding/binary"
	"fmt"
	"sync"
	"time"
)

// LocalEntropy derives "randomness" from a recent ledger checkpoint hash,
// the request seed, and the local clock.
//
// WARNING: this backend is NOT verifiable and NOT safe for real stakes. The
// participant submitting the lobby-filling join can observe the checkpoint
// hash and time their join to influence the outcome. It exists only as an
// operational fallback for environments without oracle access; production
// deployments must use an oracle-backed gateway.
type LocalEntropy struct {
	// Checkpoint returns a recent ledger state hash to fold into the payload.
	Checkpoint func(ctx context.Context) ([32]byte, error)

	mu        sync.Mutex
	fulfilled map[Handle]Fulfillment
}

// NewLocalEntropy builds the insecure fallback gateway.
func NewLocalEntropy(checkpoint func(ctx context.Context) ([32]byte, error)) *LocalEntropy {
	return &LocalEntropy{
		Checkpoint: checkpoint,
		fulfilled:  make(map[Handle]Fulfillment),
	}
}

// Request fulfills immediately from local entropy; there is no external
// oracle to wait for.
func (o *LocalEntropy) Request(ctx context.Context, seed Seed) (Handle, error) {
	if seed.IsZero() {
		return "", ErrInvalidSeed
	}
	chk, err := o.Checkpoint(ctx)
	if err != nil {
		return "", fmt.Errorf("ledger checkpoint: %w", err)
	}

	var buf [32 + 32 + 8]byte
	copy(buf[:32], chk[:])
	copy(buf[32:64], seed[:])
	binary.LittleEndian.PutUint64(buf[64:], uint64(time.Now().UnixNano()))

	var f Fulfillment
	f.Randomness = sha512.Sum512(buf[:])

	handle := HandleFor(seed)
	o.mu.Lock()
	o.fulfilled[handle] = f
	o.mu.Unlock()
	return handle, nil
}

// Read returns the locally derived fulfillment.
func (o *LocalEntropy) Read(_ context.Context, handle Handle) (Fulfillment, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	f, ok := o.fulfilled[handle]
	if !ok {
		return Fulfillment{}, ErrUnknownHandle
	}
	return f, nil
}
