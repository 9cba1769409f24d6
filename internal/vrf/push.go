// internal/vrf/push.go
package vrf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// PushOracle talks to a push-callback randomness service: Request registers
// the seed with the oracle over HTTP, the oracle's network fulfills it and
// POSTs the record to our callback endpoint, and the handler stores the
// parsed payload in a FulfillmentStore for Read to find.
//
// This is the primary production backend.
type PushOracle struct {
	baseURL string
	client  *http.Client
	store   FulfillmentStore
	logger  *logrus.Logger
}

// NewPushOracle builds a push-callback gateway against the oracle at baseURL.
func NewPushOracle(baseURL string, store FulfillmentStore, logger *logrus.Logger) *PushOracle {
	return &PushOracle{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		store:   store,
		logger:  logger,
	}
}

type pushRequestBody struct {
	Seed string `json:"seed"`
}

// Request registers the seed with the oracle and returns its handle.
func (o *PushOracle) Request(ctx context.Context, seed Seed) (Handle, error) {
	if seed.IsZero() {
		return "", ErrInvalidSeed
	}
	handle := HandleFor(seed)

	body, err := json.Marshal(pushRequestBody{Seed: string(handle)})
	if err != nil {
		return "", fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v2/request", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build oracle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("oracle request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("oracle request rejected: status %d", resp.StatusCode)
	}

	o.logger.WithFields(logrus.Fields{
		"handle":  handle,
		"backend": "push",
	}).Info("randomness requested")
	return handle, nil
}

// Read returns the fulfillment previously delivered through the callback,
// or ErrNotFulfilled while the oracle has not called back yet.
func (o *PushOracle) Read(ctx context.Context, handle Handle) (Fulfillment, error) {
	f, ok, err := o.store.Get(ctx, handle)
	if err != nil {
		return Fulfillment{}, fmt.Errorf("fulfillment store: %w", err)
	}
	if !ok {
		return Fulfillment{}, ErrNotFulfilled
	}
	return f, nil
}

// AcceptCallback parses a record POSTed by the oracle network and stores its
// payload under the record's seed-derived handle. Pending or malformed
// records are rejected without touching the store.
func (o *PushOracle) AcceptCallback(ctx context.Context, data []byte) (Handle, error) {
	rec, err := ParseRecord(data, DefaultHeaderLen)
	if err != nil {
		return "", err
	}
	f, err := fulfillmentFromRecord(rec)
	if err != nil {
		return "", err
	}
	handle := HandleFor(rec.Seed)
	if err := o.store.Put(ctx, handle, f); err != nil {
		return "", fmt.Errorf("store fulfillment: %w", err)
	}
	o.logger.WithFields(logrus.Fields{
		"handle":  handle,
		"backend": "push",
	}).Info("randomness fulfilled via callback")
	return handle, nil
}
