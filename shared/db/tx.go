package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type txKey struct{}

func contextWithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func txFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}

// InTransaction reports whether ctx carries a transaction opened by RunInTransaction
func InTransaction(ctx context.Context) bool {
	_, ok := txFromContext(ctx)
	return ok
}

// ExecutorFor returns the transaction carried by ctx, or conn outside of one
func ExecutorFor(ctx context.Context, conn *sql.DB) Executor {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return conn
}

// RunInTransaction calls fn with a context carrying a new transaction, committing
// when fn succeeds and rolling back otherwise.
//
// Calls nested inside fn join the outer transaction; only the outermost call
// commits or rolls back. A panic in fn rolls back before propagating.
func RunInTransaction(ctx context.Context, conn *sql.DB, fn func(ctx context.Context) error) (err error) {
	if InTransaction(ctx) {
		return fn(ctx)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(contextWithTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("failed to rollback transaction: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
