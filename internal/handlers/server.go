// internal/handlers/server.go
package handlers

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/avolkov/pvparena/internal/vrf"
	"github.com/avolkov/pvparena/internal/wager"
)

// CallbackReceiver is implemented by randomness backends that take
// fulfillments through our webhook (the push and legacy oracles).
type CallbackReceiver interface {
	AcceptCallback(ctx context.Context, data []byte) (vrf.Handle, error)
}

// Server bundles the wagering service with the transport-level pieces the
// HTTP handlers need.
type Server struct {
	Svc    *wager.Service
	Hub    *EventHub
	Logger *logrus.Logger
}

// NewServer wires the HTTP layer over the settlement service and connects
// lifecycle events to the websocket hub.
func NewServer(svc *wager.Service, logger *logrus.Logger) *Server {
	s := &Server{
		Svc:    svc,
		Hub:    NewEventHub(),
		Logger: logger,
	}
	svc.OnEvent = s.Hub.Broadcast
	return s
}
