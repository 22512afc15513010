// Package db provides transactional-unit-of-work helpers shared by the
// store package. Every ledger-mutating operation in the core runs through
// WithTx so that commit/rollback/panic handling lives in one place.
package db

import (
	"context"
	"database/sql"
	"fmt"
)

// SerializableTxOptions is used by units of work that must observe a
// consistent snapshot across more than one row (e.g. stats aggregation).
// Single-balance mutations rely on a row-level lock instead (see
// store.lockBalance) and run at the default isolation level.
var SerializableTxOptions = &sql.TxOptions{Isolation: sql.LevelSerializable}

// WithTx wraps fn in a database transaction, handling commit, rollback, and
// panic recovery.
//
// Usage:
//
//	err := db.WithTx(ctx, conn, nil, func(tx *sql.Tx) error {
//	    // transactional code here
//	    return nil
//	})
//
// If fn returns an error, the transaction is rolled back and the error is
// returned (wrapped with any rollback error). If fn panics, the transaction
// is rolled back and the panic is re-raised. If fn completes successfully,
// the transaction is committed.
func WithTx(ctx context.Context, conn *sql.DB, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if v := recover(); v != nil {
			//nolint:errcheck // rollback on panic is best-effort
			tx.Rollback()
			panic(v)
		}
	}()

	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil && rerr != sql.ErrTxDone {
			return fmt.Errorf("%w: rolling back transaction: %v", err, rerr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
