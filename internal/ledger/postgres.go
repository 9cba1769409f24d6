// internal/ledger/postgres.go
package ledger

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores balances in an accounts table and serializes transfers
// with row locks, giving the single-writer-per-account guarantee the
// wagering core assumes.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pgx pool as a Ledger.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Balance returns the account's balance; accounts without a row hold zero.
func (p *Postgres) Balance(ctx context.Context, account uuid.UUID) (uint64, error) {
	var balance int64
	err := p.pool.QueryRow(ctx,
		`SELECT balance FROM ledger_accounts WHERE id = $1`, account,
	).Scan(&balance)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query balance: %w", err)
	}
	return uint64(balance), nil
}

// Transfer debits from and credits to inside one transaction. The debit is
// conditional on sufficient balance, so a concurrent spender cannot drive an
// account negative. A zero-amount transfer is a no-op.
func (p *Postgres) Transfer(ctx context.Context, from, to uuid.UUID, amount uint64) error {
	if amount == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE ledger_accounts SET balance = balance - $2 WHERE id = $1 AND balance >= $2`,
			from, int64(amount),
		)
		if err != nil {
			return fmt.Errorf("debit: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrInsufficientFunds
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO ledger_accounts (id, balance) VALUES ($1, $2)
			 ON CONFLICT (id) DO UPDATE SET balance = ledger_accounts.balance + $2`,
			to, int64(amount),
		)
		if err != nil {
			return fmt.Errorf("credit: %w", err)
		}
		return nil
	})
}

// CheckpointHash hashes an aggregate of the accounts table. This only feeds
// the insecure local-entropy randomness fallback, which is already
// documented as predictable.
func (p *Postgres) CheckpointHash(ctx context.Context) ([32]byte, error) {
	var count, total int64
	err := p.pool.QueryRow(ctx,
		`SELECT count(*), coalesce(sum(balance), 0) FROM ledger_accounts`,
	).Scan(&count, &total)
	if err != nil {
		return [32]byte{}, fmt.Errorf("checkpoint query: %w", err)
	}
	return sha256.Sum256([]byte(fmt.Sprintf("ledger:%d:%d", count, total))), nil
}
