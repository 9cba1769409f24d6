// internal/handlers/ws.go
package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avolkov/pvparena/internal/middleware"
)

// EventHub fans lobby lifecycle events out to connected websocket clients.
// Subscribers are per-lobby; a slow client drops events rather than
// blocking settlement.
type EventHub struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[*subscriber]bool
}

type subscriber struct {
	out chan map[string]interface{}
}

// NewEventHub returns an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[uuid.UUID]map[*subscriber]bool)}
}

// Broadcast delivers an event to every subscriber of the lobby.
func (h *EventHub) Broadcast(lobbyID uuid.UUID, event map[string]interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[lobbyID] {
		select {
		case sub.out <- event:
		default:
			// Drop for slow consumers; the event stream is advisory.
		}
	}
}

// subscribe registers a new subscriber for the lobby.
func (h *EventHub) subscribe(lobbyID uuid.UUID) *subscriber {
	sub := &subscriber{out: make(chan map[string]interface{}, 16)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[lobbyID] == nil {
		h.subs[lobbyID] = make(map[*subscriber]bool)
	}
	h.subs[lobbyID][sub] = true
	return sub
}

// unsubscribe removes the subscriber and cleans empty lobby entries.
func (h *EventHub) unsubscribe(lobbyID uuid.UUID, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[lobbyID], sub)
	if len(h.subs[lobbyID]) == 0 {
		delete(h.subs, lobbyID)
	}
}

// LobbyWSHandler streams a lobby's lifecycle events (joins, resolution,
// refunds) over a websocket at /lobby/ws/{id}.
func LobbyWSHandler(logger *logrus.Logger, s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lobbyID, ok := lobbyIDFromPath(r.URL.Path, "/lobby/ws/")
		if !ok {
			http.Error(w, "invalid lobby id", http.StatusBadRequest)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"lobby"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		sub := s.Hub.subscribe(lobbyID)
		defer s.Hub.unsubscribe(lobbyID, sub)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Reader goroutine: we accept no client messages, but reading
		// surfaces disconnects.
		go func() {
			defer cancel()
			for {
				if _, _, err := c.Read(ctx); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-ctx.Done():
				middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, ctx.Err())
				c.Close(websocket.StatusNormalClosure, "bye")
				return
			case event := <-sub.out:
				if err := wsjson.Write(ctx, c, event); err != nil {
					middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, err)
					return
				}
			}
		}
	}
}
