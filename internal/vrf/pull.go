// internal/vrf/pull.go
package vrf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// maxRecordBytes bounds how much of an oracle response we will read.
const maxRecordBytes = 4096

// PullOracle talks to an on-demand randomness service: Request registers the
// seed, and Read fetches the current record from the oracle each time it is
// called. Nothing is stored locally; the oracle's record is the source of
// truth until the lobby is resolved.
type PullOracle struct {
	baseURL string
	client  *http.Client
	logger  *logrus.Logger
}

// NewPullOracle builds a pull-model gateway against the oracle at baseURL.
func NewPullOracle(baseURL string, logger *logrus.Logger) *PullOracle {
	return &PullOracle{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// Request registers the seed with the oracle and returns its handle.
func (o *PullOracle) Request(ctx context.Context, seed Seed) (Handle, error) {
	if seed.IsZero() {
		return "", ErrInvalidSeed
	}
	handle := HandleFor(seed)

	body, err := json.Marshal(map[string]string{"seed": string(handle)})
	if err != nil {
		return "", fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/ondemand/request", bytes.NewReader(body))
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
		"backend": "pull",
	}).Info("randomness requested")
	return handle, nil
}

// Read fetches and parses the oracle's current record for the handle.
func (o *PullOracle) Read(ctx context.Context, handle Handle) (Fulfillment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/ondemand/record/"+string(handle), nil)
	if err != nil {
		return Fulfillment{}, fmt.Errorf("build oracle read: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return Fulfillment{}, fmt.Errorf("oracle read failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return Fulfillment{}, ErrUnknownHandle
	default:
		return Fulfillment{}, fmt.Errorf("oracle read rejected: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRecordBytes))
	if err != nil {
		return Fulfillment{}, fmt.Errorf("read oracle record: %w", err)
	}
	rec, err := ParseRecord(data, DefaultHeaderLen)
	if err != nil {
		return Fulfillment{}, err
	}
	return fulfillmentFromRecord(rec)
}
