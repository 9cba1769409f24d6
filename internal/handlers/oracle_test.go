// internal/handlers/oracle_test.go
package handlers

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/avolkov/pvparena/internal/vrf"
)

// callbackRecord assembles a raw oracle record with an 8-byte header.
func callbackRecord(status byte, seed vrf.Seed, value uint64) []byte {
	out := make([]byte, vrf.DefaultHeaderLen+1+32+32+vrf.PayloadLen)
	body := out[vrf.DefaultHeaderLen:]
	body[0] = status
	copy(body[33:65], seed[:])
	binary.LittleEndian.PutUint64(body[65:73], value)
	return out
}

func TestOracleCallbackHandler(t *testing.T) {
	s, _ := newTestServer(t)
	oracle := vrf.NewPushOracle("http://unused", vrf.NewMemoryStore(), quietLogger())
	handler := OracleCallbackHandler(s, oracle)

	var seed vrf.Seed
	seed[0] = 0x55

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/oracle/callback", bytes.NewReader(callbackRecord(1, seed, 77)))
	handler(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Handle string `json:"handle"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if vrf.Handle(resp.Handle) != vrf.HandleFor(seed) {
		t.Errorf("handle = %s, want %s", resp.Handle, vrf.HandleFor(seed))
	}

	f, err := oracle.Read(req.Context(), vrf.HandleFor(seed))
	if err != nil {
		t.Fatalf("Read after callback failed: %v", err)
	}
	if f.Value() != 77 {
		t.Errorf("value = %d, want 77", f.Value())
	}
}

func TestOracleCallbackHandlerPendingRecord(t *testing.T) {
	s, _ := newTestServer(t)
	oracle := vrf.NewPushOracle("http://unused", vrf.NewMemoryStore(), quietLogger())
	handler := OracleCallbackHandler(s, oracle)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/oracle/callback", bytes.NewReader(callbackRecord(0, vrf.Seed{}, 0)))
	handler(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("pending record status = %d, want 202", w.Code)
	}
}

func TestOracleCallbackHandlerMalformedRecord(t *testing.T) {
	s, _ := newTestServer(t)
	oracle := vrf.NewPushOracle("http://unused", vrf.NewMemoryStore(), quietLogger())
	handler := OracleCallbackHandler(s, oracle)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/oracle/callback", bytes.NewReader([]byte{1, 2, 3}))
	handler(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed record status = %d, want 400", w.Code)
	}
}
