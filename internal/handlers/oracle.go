// internal/handlers/oracle.go
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/avolkov/pvparena/internal/vrf"
)

// maxCallbackBytes bounds the oracle callback body; records are small.
const maxCallbackBytes = 4096

// OracleCallbackHandler receives fulfillment records POSTed by the oracle
// network for the push and legacy backends. The body is the raw binary
// record; the backend parses and stores it, after which Resolve can read
// the randomness.
func OracleCallbackHandler(s *Server, receiver CallbackReceiver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBytes))
		if err != nil {
			http.Error(w, "failed to read callback body", http.StatusBadRequest)
			return
		}

		handle, err := receiver.AcceptCallback(r.Context(), data)
		if errors.Is(err, vrf.ErrNotFulfilled) {
			// The oracle posted a still-pending record; nothing to store.
			w.WriteHeader(http.StatusAccepted)
			return
		}
		if err != nil {
			s.Logger.Warnf("rejected oracle callback: %v", err)
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"handle": string(handle),
		})
	}
}
