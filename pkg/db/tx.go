package db

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so repository queries can
// run inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TxRunner manages database transaction boundaries for the repository layer.
type TxRunner struct {
	database *sql.DB
}

// NewTxRunner creates a new TxRunner instance.
func NewTxRunner(database *sql.DB) *TxRunner {
	return &TxRunner{database: database}
}

// WithTx executes the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// Otherwise, the transaction is committed.
func (r *TxRunner) WithTx(ctx context.Context, fn func(tx DBTX) error) error {
	_, err := WithTxResult(ctx, r, func(tx DBTX) (struct{}, error) {
		return struct{}{}, fn(tx)
	})
	return err
}

// WithTxResult executes the given function within a database transaction
// and returns a result value.
func WithTxResult[T any](ctx context.Context, r *TxRunner, fn func(tx DBTX) (T, error)) (T, error) {
	var result T

	tx, err := r.database.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin transaction: %w", err)
	}

	result, err = fn(tx)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return result, fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return result, err
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("commit transaction: %w", err)
	}

	return result, nil
}

// DB returns the non-transactional handle.
// Use this for reads that don't require a transaction.
func (r *TxRunner) DB() DBTX {
	return r.database
}
