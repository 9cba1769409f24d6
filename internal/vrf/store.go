// internal/vrf/store.go
package vrf

import (
	"context"
	"sync"
)

// FulfillmentStore holds fulfilled randomness delivered out-of-band (the
// push and legacy oracles POST records to our callback endpoint; the handler
// parses them and puts the payload here for later reads).
type FulfillmentStore interface {
	Put(ctx context.Context, handle Handle, f Fulfillment) error
	// Get returns ok == false when no fulfillment has been stored yet.
	Get(ctx context.Context, handle Handle) (Fulfillment, bool, error)
}

// MemoryStore is an in-process FulfillmentStore used in tests and
// single-node deployments.
type MemoryStore struct {
	mu        sync.Mutex
	fulfilled map[Handle]Fulfillment
}

// NewMemoryStore returns an empty in-memory fulfillment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{fulfilled: make(map[Handle]Fulfillment)}
}

// Put stores a fulfillment for the handle.
func (s *MemoryStore) Put(_ context.Context, handle Handle, f Fulfillment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fulfilled[handle] = f
	return nil
}

// Get returns the stored fulfillment, if any.
func (s *MemoryStore) Get(_ context.Context, handle Handle) (Fulfillment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fulfilled[handle]
	return f, ok, nil
}
