// internal/handlers/lobby.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/avolkov/pvparena/internal/auth"
	"github.com/avolkov/pvparena/internal/database"
	"github.com/avolkov/pvparena/internal/vrf"
	"github.com/avolkov/pvparena/internal/wager"
)

// createLobbyRequest is the body for POST /lobby/create. The creator funds
// and occupies the first seat immediately.
type createLobbyRequest struct {
	TeamSize uint8  `json:"teamSize"`
	Stake    uint64 `json:"stake"`
	Side     uint8  `json:"side"`
}

// CreateLobbyHandler opens a lobby for the authenticated caller.
func CreateLobbyHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creator, err := auth.ParticipantFromRequest(r)
		if err != nil {
			http.Error(w, "invalid or missing auth_token", http.StatusUnauthorized)
			return
		}

		var req createLobbyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad lobby request payload", http.StatusBadRequest)
			return
		}

		lob, err := s.Svc.CreateLobby(r.Context(), creator, req.TeamSize, req.Stake, req.Side)
		if err != nil {
			writeError(w, err)
			return
		}

		lob.Mu.Lock()
		defer lob.Mu.Unlock()
		writeJSON(w, http.StatusOK, lob)
	}
}

// joinRequest is the body for both join entry points. Seed is required only
// on /join_final, as a 64-character hex string.
type joinRequest struct {
	Side uint8  `json:"side"`
	Seed string `json:"seed,omitempty"`
}

// JoinHandler admits the caller through the ordinary entry point.
func JoinHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		participant, err := auth.ParticipantFromRequest(r)
		if err != nil {
			http.Error(w, "invalid or missing auth_token", http.StatusUnauthorized)
			return
		}
		lobbyID, ok := lobbyIDFromPath(r.URL.Path, "/lobby/")
		if !ok {
			http.Error(w, "invalid lobby id", http.StatusBadRequest)
			return
		}

		var req joinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad join payload", http.StatusBadRequest)
			return
		}

		res, err := s.Svc.Join(r.Context(), lobbyID, participant, req.Side)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// JoinFinalHandler admits the caller through the filling entry point, which
// carries the randomness seed for the request issued when the lobby fills.
func JoinFinalHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		participant, err := auth.ParticipantFromRequest(r)
		if err != nil {
			http.Error(w, "invalid or missing auth_token", http.StatusUnauthorized)
			return
		}
		lobbyID, ok := lobbyIDFromPath(r.URL.Path, "/lobby/")
		if !ok {
			http.Error(w, "invalid lobby id", http.StatusBadRequest)
			return
		}

		var req joinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad join payload", http.StatusBadRequest)
			return
		}
		seed, err := vrf.SeedFromHex(req.Seed)
		if err != nil {
			writeError(w, wager.ErrInvalidSeed)
			return
		}

		res, err := s.Svc.JoinFinal(r.Context(), lobbyID, participant, req.Side, seed)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// recipientsRequest carries the explicit, ordered recipient list for any
// operation that moves funds. The service validates it against stored
// rosters; recipients are never inferred from storage.
type recipientsRequest struct {
	Recipients []string `json:"recipients"`
}

// ResolveHandler settles a Pending lobby from fulfilled randomness. Callable
// by any authenticated user (typically the resolver bot).
func ResolveHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := auth.ParticipantFromRequest(r); err != nil {
			http.Error(w, "invalid or missing auth_token", http.StatusUnauthorized)
			return
		}
		lobbyID, ok := lobbyIDFromPath(r.URL.Path, "/lobby/")
		if !ok {
			http.Error(w, "invalid lobby id", http.StatusBadRequest)
			return
		}

		var req recipientsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad resolve payload", http.StatusBadRequest)
			return
		}
		recipients, err := parseRecipients(req.Recipients)
		if err != nil {
			writeError(w, err)
			return
		}

		outcome, err := s.Svc.Resolve(r.Context(), lobbyID, recipients)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"winner_side":       outcome.WinnerSide,
			"randomness_value":  outcome.RandomnessValue,
			"pot":               outcome.Settlement.Pot,
			"fee":               outcome.Settlement.Fee,
			"payout_per_winner": outcome.Settlement.PayoutPerWinner,
		})
	}
}

// RefundHandler reverses an Open lobby after the time lock.
func RefundHandler(s *Server) http.HandlerFunc {
	return refundHandler(s, false)
}

// ForceRefundHandler is the escape hatch for stuck lobbies; no time lock,
// any non-finalized state.
func ForceRefundHandler(s *Server) http.HandlerFunc {
	return refundHandler(s, true)
}

func refundHandler(s *Server, forced bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requester, err := auth.ParticipantFromRequest(r)
		if err != nil {
			http.Error(w, "invalid or missing auth_token", http.StatusUnauthorized)
			return
		}
		lobbyID, ok := lobbyIDFromPath(r.URL.Path, "/lobby/")
		if !ok {
			http.Error(w, "invalid lobby id", http.StatusBadRequest)
			return
		}

		var req recipientsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad refund payload", http.StatusBadRequest)
			return
		}
		recipients, err := parseRecipients(req.Recipients)
		if err != nil {
			writeError(w, err)
			return
		}

		var d *wager.Disbursement
		if forced {
			d, err = s.Svc.ForceRefund(r.Context(), lobbyID, requester, recipients)
		} else {
			d, err = s.Svc.Refund(r.Context(), lobbyID, requester, recipients)
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"refunded_count": len(d.Transfers),
			"total_refunded": d.Total(),
		})
	}
}

// LobbyHistoryHandler returns the terminal audit record for a settled or
// refunded lobby. Active lobbies have no history row yet; callers watch the
// event stream or poll /lobby/list for those.
func LobbyHistoryHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := auth.ParticipantFromRequest(r); err != nil {
			http.Error(w, "invalid or missing auth_token", http.StatusUnauthorized)
			return
		}
		lobbyID, ok := lobbyIDFromPath(r.URL.Path, "/lobby/")
		if !ok {
			http.Error(w, "invalid lobby id", http.StatusBadRequest)
			return
		}

		rec, err := database.GetLobbyHistory(r.Context(), lobbyID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeError(w, wager.ErrLobbyNotFound)
				return
			}
			s.Logger.Errorf("lobby history lookup failed: %v", err)
			http.Error(w, "history lookup failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// ListLobbiesHandler returns the active lobbies, for debugging and clients.
func ListLobbiesHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := auth.ParticipantFromRequest(r); err != nil {
			http.Error(w, "invalid or missing auth_token", http.StatusUnauthorized)
			return
		}

		active := s.Svc.Registry().Active()
		out := make([]interface{}, 0, len(active))
		for _, l := range active {
			l.Mu.Lock()
			data, err := json.Marshal(l)
			l.Mu.Unlock()
			if err != nil {
				continue
			}
			var m map[string]interface{}
			json.Unmarshal(data, &m)
			out = append(out, m)
		}
		writeJSON(w, http.StatusOK, out)
	}
}
