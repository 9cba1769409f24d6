// internal/handlers/lobby_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avolkov/pvparena/internal/auth"
	"github.com/avolkov/pvparena/internal/ledger"
	"github.com/avolkov/pvparena/internal/vrf"
	"github.com/avolkov/pvparena/internal/wager"
)

const testStake = 50_000_000

type echoGateway struct{}

func (echoGateway) Request(_ context.Context, seed vrf.Seed) (vrf.Handle, error) {
	return vrf.HandleFor(seed), nil
}

func (echoGateway) Read(_ context.Context, _ vrf.Handle) (vrf.Fulfillment, error) {
	return vrf.Fulfillment{}, vrf.ErrNotFulfilled
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestServer(t *testing.T) (*Server, *ledger.Memory) {
	t.Helper()
	auth.Init()
	led := ledger.NewMemory()
	svc := wager.NewService(wager.Params{
		MinStake:      testStake,
		FeeBps:        100,
		RefundLock:    120 * time.Second,
		AdminID:       uuid.New(),
		FeeReceiverID: uuid.New(),
	}, wager.NewRegistry(), led, echoGateway{}, quietLogger())
	return NewServer(svc, quietLogger()), led
}

// authedRequest builds a request carrying a session cookie for the participant.
func authedRequest(t *testing.T, method, target string, body interface{}, participant uuid.UUID) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	r := httptest.NewRequest(method, target, &buf)
	token, err := auth.CreateJWT(participant.String())
	if err != nil {
		t.Fatalf("CreateJWT failed: %v", err)
	}
	r.Header.Set("Cookie", "auth_token="+token)
	return r
}

func TestCreateLobbyHandler(t *testing.T) {
	s, led := newTestServer(t)
	creator := uuid.New()
	led.Credit(creator, testStake*2)

	w := httptest.NewRecorder()
	req := authedRequest(t, http.MethodPost, "/lobby/create",
		map[string]interface{}{"teamSize": 2, "stake": testStake, "side": 0}, creator)
	CreateLobbyHandler(s)(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		ID     uuid.UUID   `json:"id"`
		Status string      `json:"status"`
		Team1  []uuid.UUID `json:"team1"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "open" {
		t.Errorf("status = %s, want open", resp.Status)
	}
	if len(resp.Team1) != 1 || resp.Team1[0] != creator {
		t.Errorf("team1 = %v, want [%v]", resp.Team1, creator)
	}
	if _, ok := s.Svc.Get(resp.ID); !ok {
		t.Error("created lobby not registered")
	}
}

func TestCreateLobbyHandlerRequiresAuth(t *testing.T) {
	s, _ := newTestServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/lobby/create", strings.NewReader("{}"))
	CreateLobbyHandler(s)(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestJoinHandlerMapsConflicts(t *testing.T) {
	s, led := newTestServer(t)
	creator := uuid.New()
	led.Credit(creator, testStake*2)

	l, err := s.Svc.CreateLobby(context.Background(), creator, 2, testStake, wager.SideTeam1)
	if err != nil {
		t.Fatalf("CreateLobby failed: %v", err)
	}

	// Rejoining is a state conflict, not a validation failure.
	w := httptest.NewRecorder()
	req := authedRequest(t, http.MethodPost, "/lobby/"+l.ID.String()+"/join",
		map[string]interface{}{"side": 1}, creator)
	JoinHandler(s)(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("rejoin status = %d, want 409; body = %s", w.Code, w.Body.String())
	}

	// Unknown lobby maps to 404.
	w = httptest.NewRecorder()
	req = authedRequest(t, http.MethodPost, "/lobby/"+uuid.NewString()+"/join",
		map[string]interface{}{"side": 1}, uuid.New())
	JoinHandler(s)(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown lobby status = %d, want 404", w.Code)
	}
}

func TestJoinFinalHandlerValidatesSeed(t *testing.T) {
	s, led := newTestServer(t)
	creator := uuid.New()
	joiner := uuid.New()
	led.Credit(creator, testStake*2)
	led.Credit(joiner, testStake*2)

	l, err := s.Svc.CreateLobby(context.Background(), creator, 1, testStake, wager.SideTeam1)
	if err != nil {
		t.Fatalf("CreateLobby failed: %v", err)
	}

	w := httptest.NewRecorder()
	req := authedRequest(t, http.MethodPost, "/lobby/"+l.ID.String()+"/join_final",
		map[string]interface{}{"side": 1, "seed": "not-hex"}, joiner)
	JoinFinalHandler(s)(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad seed status = %d, want 400", w.Code)
	}

	w = httptest.NewRecorder()
	req = authedRequest(t, http.MethodPost, "/lobby/"+l.ID.String()+"/join_final",
		map[string]interface{}{"side": 1, "seed": strings.Repeat("0f", 32)}, joiner)
	JoinFinalHandler(s)(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("join_final status = %d, body = %s", w.Code, w.Body.String())
	}
	var res wager.JoinResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if !res.IsFull {
		t.Error("join_final did not fill the lobby")
	}
}

func TestResolveHandlerReportsRetryable(t *testing.T) {
	s, led := newTestServer(t)
	creator := uuid.New()
	joiner := uuid.New()
	led.Credit(creator, testStake*2)
	led.Credit(joiner, testStake*2)
	ctx := context.Background()

	l, err := s.Svc.CreateLobby(ctx, creator, 1, testStake, wager.SideTeam1)
	if err != nil {
		t.Fatalf("CreateLobby failed: %v", err)
	}
	var seed vrf.Seed
	seed[0] = 1
	if _, err := s.Svc.JoinFinal(ctx, l.ID, joiner, wager.SideTeam2, seed); err != nil {
		t.Fatalf("JoinFinal failed: %v", err)
	}

	recipients := []string{
		s.Svc.Params().FeeReceiverID.String(),
		creator.String(),
		joiner.String(),
	}
	w := httptest.NewRecorder()
	req := authedRequest(t, http.MethodPost, "/lobby/"+l.ID.String()+"/resolve",
		map[string]interface{}{"recipients": recipients}, creator)
	ResolveHandler(s)(w, req)

	// The stub gateway never fulfills; the caller is told to retry.
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Retryable bool `json:"retryable"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Retryable {
		t.Error("unfulfilled randomness not marked retryable")
	}
}

func TestStatusForTaxonomy(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{wager.ErrInvalidTeamSize, http.StatusBadRequest},
		{wager.ErrStakeTooSmall, http.StatusBadRequest},
		{wager.ErrRecipientIdentity, http.StatusBadRequest},
		{vrf.ErrInvalidRecord, http.StatusBadRequest},
		{wager.ErrUnauthorized, http.StatusForbidden},
		{wager.ErrLobbyNotFound, http.StatusNotFound},
		{vrf.ErrUnknownHandle, http.StatusNotFound},
		{wager.ErrMustUseFinalJoin, http.StatusConflict},
		{wager.ErrAlreadyFinalized, http.StatusConflict},
		{wager.ErrTooSoonToRefund, http.StatusConflict},
		{vrf.ErrNotFulfilled, http.StatusConflict},
		{fmt.Errorf("wrapped: %w", wager.ErrSideFull), http.StatusConflict},
		{fmt.Errorf("database exploded"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := statusFor(c.err); got != c.want {
			t.Errorf("statusFor(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestLobbyIDFromPath(t *testing.T) {
	id := uuid.New()
	got, ok := lobbyIDFromPath("/lobby/"+id.String()+"/join", "/lobby/")
	if !ok || got != id {
		t.Fatalf("lobbyIDFromPath = %v, %v", got, ok)
	}
	if _, ok := lobbyIDFromPath("/lobby//join", "/lobby/"); ok {
		t.Error("empty segment accepted")
	}
	if _, ok := lobbyIDFromPath("/lobby/not-a-uuid/join", "/lobby/"); ok {
		t.Error("malformed id accepted")
	}
}
