// internal/cache/fulfillments.go
package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/avolkov/pvparena/internal/vrf"
)

// fulfillmentKeyPrefix namespaces oracle payloads in Redis.
const fulfillmentKeyPrefix = "pvparena:vrf:"

// FulfillmentStore is a Redis-backed vrf.FulfillmentStore, shared across
// service replicas so a fulfillment delivered to one instance's callback
// endpoint is readable by whichever instance resolves the lobby.
type FulfillmentStore struct {
	rdb *redis.Client
}

// NewFulfillmentStore wraps the given Redis client.
func NewFulfillmentStore(rdb *redis.Client) *FulfillmentStore {
	return &FulfillmentStore{rdb: rdb}
}

// Put stores the 64-byte payload under the handle. Entries are kept until
// explicitly cleaned; payloads are small and lobbies are short-lived.
func (s *FulfillmentStore) Put(ctx context.Context, handle vrf.Handle, f vrf.Fulfillment) error {
	key := fulfillmentKeyPrefix + string(handle)
	if err := s.rdb.Set(ctx, key, f.Randomness[:], 0).Err(); err != nil {
		return fmt.Errorf("store fulfillment %s: %w", handle, err)
	}
	return nil
}

// Get fetches a stored payload; ok is false when the oracle has not
// delivered one yet.
func (s *FulfillmentStore) Get(ctx context.Context, handle vrf.Handle) (vrf.Fulfillment, bool, error) {
	key := fulfillmentKeyPrefix + string(handle)
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return vrf.Fulfillment{}, false, nil
	}
	if err != nil {
		return vrf.Fulfillment{}, false, fmt.Errorf("read fulfillment %s: %w", handle, err)
	}
	if len(data) != vrf.PayloadLen {
		return vrf.Fulfillment{}, false, fmt.Errorf("read fulfillment %s: unexpected payload length %d", handle, len(data))
	}
	var f vrf.Fulfillment
	copy(f.Randomness[:], data)
	return f, true, nil
}
