package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the query surface shared by *pgxpool.Pool and pgx.Tx. Repository
// methods that can run inside a multi-statement transaction take it as an
// argument, so the service layer decides the transaction boundary.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner opens transactions and doubles as the non-transactional DB.
// *pgxpool.Pool satisfies it.
type TxBeginner interface {
	DB
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TxRunner wraps a pool so services can run multi-statement work in one
// transaction without touching pgx directly.
type TxRunner struct {
	pool TxBeginner
}

// NewTxRunner creates a TxRunner over the pool.
func NewTxRunner(pool TxBeginner) *TxRunner {
	return &TxRunner{pool: pool}
}

// InTx runs fn inside a single transaction. Any error from fn rolls the
// whole transaction back and is returned unwrapped, so domain errors
// survive for errors.Is at the boundary.
func (t *TxRunner) InTx(ctx context.Context, fn func(db DB) error) error {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullifEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
