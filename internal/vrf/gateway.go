// internal/vrf/gateway.go
package vrf

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
)

// Seed is the caller-supplied 32-byte value that keys a randomness request.
// A zero seed is rejected so that request handles are never ambiguous.
type Seed [32]byte

// Handle is an opaque reference to an outstanding or fulfilled randomness
// request. It is derived from the request seed and is stable across reads.
type Handle string

// PayloadLen is the byte length of a fulfilled randomness payload.
const PayloadLen = 64

var (
	// ErrInvalidSeed is returned by Request when the seed is all zeroes.
	ErrInvalidSeed = errors.New("vrf: seed cannot be zero")

	// ErrNotFulfilled is returned by Read while the oracle has not yet
	// published randomness for the handle. Callers retry later; Read never
	// blocks waiting for fulfillment.
	ErrNotFulfilled = errors.New("vrf: randomness not yet fulfilled")

	// ErrInvalidRecord is returned when an oracle record is shorter than the
	// fixed layout requires or otherwise cannot be parsed.
	ErrInvalidRecord = errors.New("vrf: invalid randomness record")

	// ErrUnknownHandle is returned by Read for a handle that was never
	// requested through this gateway.
	ErrUnknownHandle = errors.New("vrf: unknown request handle")
)

// Fulfillment carries the oracle's randomness payload.
type Fulfillment struct {
	Randomness [PayloadLen]byte
}

// Value interprets the first 8 bytes of the payload as an unsigned
// little-endian 64-bit integer. Winner selection is value % 2 on every
// backend; changing this per backend would break auditability.
func (f Fulfillment) Value() uint64 {
	return binary.LittleEndian.Uint64(f.Randomness[:8])
}

// Gateway is the request/read contract shared by all randomness backends.
//
// Request registers a seed with the external oracle and returns the handle
// under which the fulfillment will later be readable. Issuing a request at
// most once per lobby is the caller's responsibility.
type Gateway interface {
	Request(ctx context.Context, seed Seed) (Handle, error)
	Read(ctx context.Context, handle Handle) (Fulfillment, error)
}

// IsZero reports whether the seed is all zeroes.
func (s Seed) IsZero() bool {
	return s == Seed{}
}

// HandleFor derives the canonical handle for a seed. All backends use the
// same derivation so a lobby's stored handle survives a backend swap.
func HandleFor(seed Seed) Handle {
	return Handle(hex.EncodeToString(seed[:]))
}

// SeedFromHex parses a 64-character hex string into a Seed.
func SeedFromHex(s string) (Seed, error) {
	var seed Seed
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(seed) {
		return Seed{}, ErrInvalidSeed
	}
	copy(seed[:], b)
	if seed.IsZero() {
		return Seed{}, ErrInvalidSeed
	}
	return seed, nil
}
