// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Config carries everything the service reads from the environment. Load it
// once in main; nothing mutates it afterwards.
type Config struct {
	Port string

	// Economics. Fixed per deployment, never per lobby.
	MinStake   uint64
	FeeBps     uint64
	RefundLock time.Duration

	// Trust roots. Injected at deployment, read-only thereafter.
	AdminID       uuid.UUID
	FeeReceiverID uuid.UUID

	// Randomness backend: "push", "pull", "legacy", or "local".
	VRFBackend      string
	OracleURL       string
	LegacyOracleURL string

	// Background workers.
	ResolveInterval time.Duration
	RefundInterval  time.Duration
	PendingDeadline time.Duration
	OpenExpiry      time.Duration

	RedisAddr string
	RedisDB   int
}

// Defaults mirroring the original deployment constants.
const (
	DefaultMinStake   = 50_000_000 // 0.05 units
	DefaultFeeBps     = 100        // 1%
	DefaultRefundLock = 120 * time.Second
)

// Load reads the configuration from environment variables. The trust roots
// are required; everything else has a default.
func Load() (*Config, error) {
	admin, err := requireUUID("PVP_ADMIN_ID")
	if err != nil {
		return nil, err
	}
	feeReceiver, err := requireUUID("PVP_FEE_RECEIVER_ID")
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		MinStake:        getEnvUint("PVP_MIN_STAKE", DefaultMinStake),
		FeeBps:          getEnvUint("PVP_FEE_BPS", DefaultFeeBps),
		RefundLock:      getEnvDuration("PVP_REFUND_LOCK", DefaultRefundLock),
		AdminID:         admin,
		FeeReceiverID:   feeReceiver,
		VRFBackend:      getEnv("VRF_BACKEND", "push"),
		OracleURL:       getEnv("ORACLE_URL", "http://localhost:9090"),
		LegacyOracleURL: getEnv("LEGACY_ORACLE_URL", "http://localhost:9091"),
		ResolveInterval: getEnvDuration("RESOLVE_INTERVAL", 5*time.Second),
		RefundInterval:  getEnvDuration("REFUND_INTERVAL", time.Minute),
		PendingDeadline: getEnvDuration("PENDING_DEADLINE", 30*time.Minute),
		OpenExpiry:      getEnvDuration("OPEN_EXPIRY", 24*time.Hour),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:         getEnvInt("REDIS_DB", 0),
	}, nil
}

// requireUUID reads a mandatory UUID-valued variable.
func requireUUID(key string) (uuid.UUID, error) {
	val := os.Getenv(key)
	if val == "" {
		return uuid.Nil, fmt.Errorf("%s must be set", key)
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s is not a valid UUID: %w", key, err)
	}
	return id, nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// getEnvUint parses an unsigned integer variable, else a default value.
func getEnvUint(key string, def uint64) uint64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return def
	}
	return v
}

// getEnvDuration parses a duration variable ("90s", "2m"), else a default value.
func getEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
