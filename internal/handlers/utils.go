// internal/handlers/utils.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/avolkov/pvparena/internal/vrf"
	"github.com/avolkov/pvparena/internal/wager"
)

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError renders a wagering error with the status it maps to.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]interface{}{
		"error":     err.Error(),
		"retryable": errors.Is(err, vrf.ErrNotFulfilled),
	})
}

// statusFor maps the error taxonomy onto HTTP statuses: validation and
// consistency to 400, authorization to 403, unknown lobby to 404, state
// conflicts (including not-yet-fulfilled randomness, which the caller just
// retries) to 409.
func statusFor(err error) int {
	switch {
	case errors.Is(err, wager.ErrInvalidSide),
		errors.Is(err, wager.ErrInvalidTeamSize),
		errors.Is(err, wager.ErrStakeTooSmall),
		errors.Is(err, wager.ErrInvalidSeed),
		errors.Is(err, wager.ErrRecipientListLength),
		errors.Is(err, wager.ErrRecipientIdentity),
		errors.Is(err, vrf.ErrInvalidSeed),
		errors.Is(err, vrf.ErrInvalidRecord):
		return http.StatusBadRequest
	case errors.Is(err, wager.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, wager.ErrLobbyNotFound),
		errors.Is(err, vrf.ErrUnknownHandle):
		return http.StatusNotFound
	case errors.Is(err, wager.ErrDuplicateActiveLobby),
		errors.Is(err, wager.ErrLobbyNotJoinable),
		errors.Is(err, wager.ErrLobbyNotOpen),
		errors.Is(err, wager.ErrLobbyNotPending),
		errors.Is(err, wager.ErrAlreadyJoined),
		errors.Is(err, wager.ErrSideFull),
		errors.Is(err, wager.ErrMustUseFinalJoin),
		errors.Is(err, wager.ErrAlreadyFinalized),
		errors.Is(err, wager.ErrTooSoonToRefund),
		errors.Is(err, vrf.ErrNotFulfilled):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// lobbyIDFromPath extracts the UUID segment following prefix, e.g. the id
// in /lobby/{id}/join.
func lobbyIDFromPath(path, prefix string) (uuid.UUID, bool) {
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.Split(rest, "/")
	if len(parts) < 1 || parts[0] == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// parseRecipients converts the caller-supplied recipient strings. The order
// is preserved exactly; it is validated against stored rosters downstream.
func parseRecipients(raw []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, len(raw))
	for i, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, wager.ErrRecipientIdentity
		}
		out[i] = id
	}
	return out, nil
}
