// internal/vrf/record.go
package vrf

// Oracle records share one fixed layout after a backend-defined header:
//
//	[0:h]          header (h bytes, backend-defined)
//	[h]            status tag: 0 = pending, 1 = fulfilled
//	[h+1 : h+33]   requester identity (32 bytes)
//	[h+33 : h+65]  request seed (32 bytes)
//	[h+65 : h+129] randomness payload (64 bytes)
//
// The primary backend prefixes an 8-byte header, so its minimum fulfilled
// record is 137 bytes.

const (
	// DefaultHeaderLen is the header size used by the primary oracle.
	DefaultHeaderLen = 8

	// LegacyHeaderLen is used by the legacy callback oracle, which publishes
	// the record without any header.
	LegacyHeaderLen = 0

	statusPending   = 0
	statusFulfilled = 1

	recordBodyLen = 1 + 32 + 32 + PayloadLen
)

// Record is a parsed oracle record.
type Record struct {
	Fulfilled bool
	Requester [32]byte
	Seed      Seed
	Payload   [PayloadLen]byte
}

// ParseRecord decodes an oracle record with the given header length.
// Records shorter than the fixed layout fail with ErrInvalidRecord. A record
// whose status tag is pending parses successfully with Fulfilled == false;
// its seed and payload fields are not meaningful in that case.
func ParseRecord(data []byte, headerLen int) (Record, error) {
	var rec Record
	if headerLen < 0 || len(data) < headerLen+recordBodyLen {
		return rec, ErrInvalidRecord
	}
	body := data[headerLen:]
	switch body[0] {
	case statusPending:
		return rec, nil
	case statusFulfilled:
		rec.Fulfilled = true
	default:
		return rec, ErrInvalidRecord
	}
	copy(rec.Requester[:], body[1:33])
	copy(rec.Seed[:], body[33:65])
	copy(rec.Payload[:], body[65:65+PayloadLen])
	return rec, nil
}

// fulfillmentFromRecord converts a fulfilled record into a Fulfillment, or
// reports the pending state as ErrNotFulfilled.
func fulfillmentFromRecord(rec Record) (Fulfillment, error) {
	if !rec.Fulfilled {
		return Fulfillment{}, ErrNotFulfilled
	}
	return Fulfillment{Randomness: rec.Payload}, nil
}
