// internal/ledger/memory.go
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/google/uuid"
)

// Memory is a mutex-guarded in-process ledger for tests and single-node
// development deployments.
type Memory struct {
	mu         sync.Mutex
	balances   map[uuid.UUID]uint64
	checkpoint [32]byte
}

// NewMemory returns an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{balances: make(map[uuid.UUID]uint64)}
}

// Credit mints funds into an account. Test and dev funding only; there is no
// corresponding operation on the production ledger.
func (m *Memory) Credit(account uuid.UUID, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[account] += amount
	m.advance(account, account, amount)
}

// Balance returns the account's balance; unknown accounts hold zero.
func (m *Memory) Balance(_ context.Context, account uuid.UUID) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[account], nil
}

// Transfer moves amount between accounts, failing with ErrInsufficientFunds
// if the source balance is too small. A zero-amount transfer is a no-op.
func (m *Memory) Transfer(_ context.Context, from, to uuid.UUID, amount uint64) error {
	if amount == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[from] < amount {
		return ErrInsufficientFunds
	}
	m.balances[from] -= amount
	m.balances[to] += amount
	m.advance(from, to, amount)
	return nil
}

// CheckpointHash returns a hash chained over every mutation so far.
func (m *Memory) CheckpointHash(_ context.Context) ([32]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkpoint, nil
}

// advance folds a mutation into the checkpoint chain. Callers hold mu.
func (m *Memory) advance(from, to uuid.UUID, amount uint64) {
	var buf [32 + 16 + 16 + 8]byte
	copy(buf[:32], m.checkpoint[:])
	copy(buf[32:48], from[:])
	copy(buf[48:64], to[:])
	binary.LittleEndian.PutUint64(buf[64:], amount)
	m.checkpoint = sha256.Sum256(buf[:])
}
