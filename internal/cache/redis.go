// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) name for settlement audit records.
var DefaultQueueName = "pvparena_settlements"

// SettlementRecord is the audit entry pushed for every terminal lobby
// transition, consumed by the off-service reconciler.
type SettlementRecord struct {
	LobbyID         uuid.UUID `json:"lobby_id"`
	Creator         uuid.UUID `json:"creator"`
	Status          string    `json:"status"`
	Stake           uint64    `json:"stake"`
	WinnerSide      uint8     `json:"winner_side"`
	RandomnessValue uint64    `json:"randomness_value"`
	Pot             uint64    `json:"pot"`
	Fee             uint64    `json:"fee"`
	PayoutPerWinner uint64    `json:"payout_per_winner"`
	TotalMoved      uint64    `json:"total_moved"`
	Timestamp       int64     `json:"timestamp"`
}

// ConnectRedis initializes the global Redis client.
func ConnectRedis(addr string, db int) error {
	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// PublishSettlement serializes the record to JSON and pushes it onto the
// settlement queue. Best-effort from the caller's perspective; settlement
// itself never depends on the queue being reachable.
func PublishSettlement(ctx context.Context, record SettlementRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal SettlementRecord: %w", err)
	}
	if err := Rdb.RPush(ctx, DefaultQueueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", DefaultQueueName, err)
	}
	return nil
}
