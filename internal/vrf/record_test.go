// internal/vrf/record_test.go
package vrf

import (
	"encoding/binary"
	"errors"
	"testing"
)

// buildRecord assembles a raw oracle record for tests.
func buildRecord(headerLen int, status byte, seed Seed, payload [PayloadLen]byte) []byte {
	out := make([]byte, headerLen+recordBodyLen)
	body := out[headerLen:]
	body[0] = status
	// requester bytes stay zero; nothing here validates them
	copy(body[33:65], seed[:])
	copy(body[65:], payload[:])
	return out
}

func testPayload(value uint64) [PayloadLen]byte {
	var p [PayloadLen]byte
	binary.LittleEndian.PutUint64(p[:8], value)
	return p
}

func TestParseRecordFulfilled(t *testing.T) {
	var seed Seed
	seed[0] = 0xAB
	data := buildRecord(DefaultHeaderLen, statusFulfilled, seed, testPayload(42))

	rec, err := ParseRecord(data, DefaultHeaderLen)
	if err != nil {
		t.Fatalf("ParseRecord failed: %v", err)
	}
	if !rec.Fulfilled {
		t.Fatal("record not marked fulfilled")
	}
	if rec.Seed != seed {
		t.Errorf("seed = %x, want %x", rec.Seed, seed)
	}
	f, err := fulfillmentFromRecord(rec)
	if err != nil {
		t.Fatalf("fulfillmentFromRecord failed: %v", err)
	}
	if f.Value() != 42 {
		t.Errorf("value = %d, want 42", f.Value())
	}
}

func TestParseRecordHeaderless(t *testing.T) {
	var seed Seed
	seed[31] = 1
	data := buildRecord(LegacyHeaderLen, statusFulfilled, seed, testPayload(7))

	rec, err := ParseRecord(data, LegacyHeaderLen)
	if err != nil {
		t.Fatalf("ParseRecord failed: %v", err)
	}
	if rec.Seed != seed {
		t.Errorf("seed = %x, want %x", rec.Seed, seed)
	}

	// The same bytes are too short once an 8-byte header is expected.
	if _, err := ParseRecord(data, DefaultHeaderLen); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("headered parse of headerless record err = %v, want ErrInvalidRecord", err)
	}
}

func TestParseRecordPending(t *testing.T) {
	data := buildRecord(DefaultHeaderLen, statusPending, Seed{}, [PayloadLen]byte{})

	rec, err := ParseRecord(data, DefaultHeaderLen)
	if err != nil {
		t.Fatalf("pending record must parse: %v", err)
	}
	if rec.Fulfilled {
		t.Fatal("pending record marked fulfilled")
	}
	if _, err := fulfillmentFromRecord(rec); !errors.Is(err, ErrNotFulfilled) {
		t.Errorf("pending fulfillment err = %v, want ErrNotFulfilled", err)
	}
}

func TestParseRecordRejectsMalformed(t *testing.T) {
	short := make([]byte, DefaultHeaderLen+recordBodyLen-1)
	if _, err := ParseRecord(short, DefaultHeaderLen); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("short record err = %v, want ErrInvalidRecord", err)
	}

	badTag := buildRecord(DefaultHeaderLen, 7, Seed{}, [PayloadLen]byte{})
	if _, err := ParseRecord(badTag, DefaultHeaderLen); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("bad status tag err = %v, want ErrInvalidRecord", err)
	}

	if _, err := ParseRecord(nil, DefaultHeaderLen); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("nil record err = %v, want ErrInvalidRecord", err)
	}
}

func TestFulfillmentValueLittleEndian(t *testing.T) {
	var f Fulfillment
	f.Randomness[0] = 0x01
	f.Randomness[1] = 0x02
	if got := f.Value(); got != 0x0201 {
		t.Errorf("value = %#x, want 0x0201", got)
	}
	// Winner parity comes from the low byte.
	if f.Value()%2 != 1 {
		t.Error("parity mismatch")
	}
}
