// internal/vrf/gateway_test.go
package vrf

import (
	"errors"
	"strings"
	"testing"
)

func TestSeedFromHex(t *testing.T) {
	seed, err := SeedFromHex(strings.Repeat("ab", 32))
	if err != nil {
		t.Fatalf("SeedFromHex failed: %v", err)
	}
	if seed[0] != 0xAB || seed[31] != 0xAB {
		t.Errorf("seed = %x", seed)
	}
	if HandleFor(seed) != Handle(strings.Repeat("ab", 32)) {
		t.Errorf("handle = %s", HandleFor(seed))
	}

	// Empty, short, zero, non-hex, and odd-length inputs are all rejected.
	for _, bad := range []string{
		"",
		"abcd",
		strings.Repeat("00", 32),
		strings.Repeat("zz", 32),
		strings.Repeat("ab", 32)[1:],
	} {
		if _, err := SeedFromHex(bad); !errors.Is(err, ErrInvalidSeed) {
			t.Errorf("SeedFromHex(%q) err = %v, want ErrInvalidSeed", bad, err)
		}
	}
}

func TestSeedIsZero(t *testing.T) {
	var zero Seed
	if !zero.IsZero() {
		t.Error("zero seed not detected")
	}
	zero[16] = 1
	if zero.IsZero() {
		t.Error("non-zero seed reported zero")
	}
}
