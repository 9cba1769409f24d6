// cmd/reconciler/reconciler.go is an asynchronous reconciliation service that
// pops settlement records from the Redis queue and persists them to a
// PostgreSQL audit table, independently of the wagering service's own
// lobby_history writes. Comparing the two tables catches lost or duplicated
// terminal transitions.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/avolkov/pvparena/internal/cache"
	"github.com/avolkov/pvparena/internal/database"
)

// ReconcilerService encapsulates the Redis and DB sides: records accumulate
// in an in-memory batch and flush either on size or on a timer.
type ReconcilerService struct {
	redisClient *redis.Client
	queueName   string
	batchSize   int
	flushDelay  time.Duration

	batchMu sync.Mutex
	batch   []cache.SettlementRecord
}

// NewReconcilerService constructs the service from environment variables or defaults.
func NewReconcilerService() *ReconcilerService {
	batchSize := getEnvInt("RECONCILER_BATCH_SIZE", 20)
	flushMs := getEnvInt("RECONCILER_FLUSH_MS", 500)

	rdb := redis.NewClient(&redis.Options{
		Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		DB:   getEnvInt("REDIS_DB", 0),
	})

	return &ReconcilerService{
		redisClient: rdb,
		queueName:   getEnv("RECONCILER_QUEUE_NAME", cache.DefaultQueueName),
		batchSize:   batchSize,
		flushDelay:  time.Duration(flushMs) * time.Millisecond,
		batch:       make([]cache.SettlementRecord, 0, batchSize),
	}
}

// Run blocks until ctx is cancelled, draining the queue and flushing batches.
func (rs *ReconcilerService) Run(ctx context.Context) {
	ticker := time.NewTicker(rs.flushDelay)
	defer ticker.Stop()

	log.Println("pvparena-reconciler service started.")
	for {
		select {
		case <-ctx.Done():
			rs.flushBatchToDB()
			log.Println("pvparena-reconciler shutting down.")
			return

		case <-ticker.C:
			rs.flushBatchToDB()

		default:
			// BLPop with a short timeout so cancellation is handled promptly.
			res, err := rs.redisClient.BLPop(ctx, 3*time.Second, rs.queueName).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					log.Printf("[ERROR] BLPop: %v\n", err)
				}
				continue
			}
			if len(res) < 2 {
				continue
			}

			// res[0] is the queue name and res[1] the payload.
			var record cache.SettlementRecord
			if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
				log.Printf("invalid settlement record: %v\n", err)
				continue
			}
			rs.appendToBatch(record)
		}
	}
}

// appendToBatch adds a record and flushes if the threshold is reached.
func (rs *ReconcilerService) appendToBatch(record cache.SettlementRecord) {
	rs.batchMu.Lock()
	defer rs.batchMu.Unlock()

	rs.batch = append(rs.batch, record)
	if len(rs.batch) >= rs.batchSize {
		rs.flushLocked()
	}
}

// flushBatchToDB flushes the current batch in a single transaction.
func (rs *ReconcilerService) flushBatchToDB() {
	rs.batchMu.Lock()
	defer rs.batchMu.Unlock()
	rs.flushLocked()
}

// flushLocked performs the flush. Callers hold batchMu.
func (rs *ReconcilerService) flushLocked() {
	if len(rs.batch) == 0 {
		return
	}
	batchCopy := make([]cache.SettlementRecord, len(rs.batch))
	copy(batchCopy, rs.batch)
	rs.batch = rs.batch[:0]

	ctx := context.Background()
	err := pgx.BeginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
		INSERT INTO settlement_audits (
			lobby_id, creator, status, stake,
			winner_side, randomness_value,
			pot, fee, payout_per_winner, total_moved,
			recorded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, to_timestamp($11))
		ON CONFLICT (lobby_id) DO NOTHING
		`
		for _, rec := range batchCopy {
			_, err := tx.Exec(ctx, q,
				rec.LobbyID,
				rec.Creator,
				rec.Status,
				int64(rec.Stake),
				int16(rec.WinnerSide),
				int64(rec.RandomnessValue),
				int64(rec.Pot),
				int64(rec.Fee),
				int64(rec.PayoutPerWinner),
				int64(rec.TotalMoved),
				rec.Timestamp,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[ERROR] flush settlement batch: %v\n", err)
	} else {
		log.Printf("Flushed %d settlement records to DB.\n", len(batchCopy))
	}
}

func main() {
	database.ConnectDB()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rs := NewReconcilerService()
	rs.Run(ctx)
	log.Println("Reconciler shutdown complete.")
}

// getEnv retrieves an environment variable's value or returns a default.
func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

// getEnvInt retrieves an integer value from an environment variable or returns a default value.
func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}
