// internal/vrf/legacy.go
package vrf

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// LegacyOracle speaks the previous generation callback API: requests go out
// as form-encoded POSTs and the oracle calls back with a headerless record.
// Kept only for deployments still pointed at the old network; new lobbies
// should use PushOracle.
type LegacyOracle struct {
	baseURL string
	client  *http.Client
	store   FulfillmentStore
	logger  *logrus.Logger
}

// NewLegacyOracle builds a legacy-callback gateway against the oracle at baseURL.
func NewLegacyOracle(baseURL string, store FulfillmentStore, logger *logrus.Logger) *LegacyOracle {
	return &LegacyOracle{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		store:   store,
		logger:  logger,
	}
}

// Request registers the seed with the legacy oracle.
func (o *LegacyOracle) Request(ctx context.Context, seed Seed) (Handle, error) {
	if seed.IsZero() {
		return "", ErrInvalidSeed
	}
	handle := HandleFor(seed)

	form := url.Values{"seed": {string(handle)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/request", nil)
	if err != nil {
		return "", fmt.Errorf("build oracle request: %w", err)
	}
	req.URL.RawQuery = form.Encode()

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("oracle request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oracle request rejected: status %d", resp.StatusCode)
	}

	o.logger.WithFields(logrus.Fields{
		"handle":  handle,
		"backend": "legacy",
	}).Info("randomness requested")
	return handle, nil
}

// Read returns the callback-delivered fulfillment, if present.
func (o *LegacyOracle) Read(ctx context.Context, handle Handle) (Fulfillment, error) {
	f, ok, err := o.store.Get(ctx, handle)
	if err != nil {
		return Fulfillment{}, fmt.Errorf("fulfillment store: %w", err)
	}
	if !ok {
		return Fulfillment{}, ErrNotFulfilled
	}
	return f, nil
}

// AcceptCallback parses a headerless legacy record and stores its payload.
func (o *LegacyOracle) AcceptCallback(ctx context.Context, data []byte) (Handle, error) {
	rec, err := ParseRecord(data, LegacyHeaderLen)
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
		"backend": "legacy",
	}).Info("randomness fulfilled via legacy callback")
	return handle, nil
}
