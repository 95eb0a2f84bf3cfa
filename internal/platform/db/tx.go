package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const DBTxKey contextKey = "db_tx"

// UniqueViolation is the PostgreSQL SQLSTATE raised when a UNIQUE constraint rejects a row.
const UniqueViolation = "23505"

// TxFromContext returns the transaction stored by WithTx, or nil.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}

// Conn returns the transaction carried by ctx when there is one, otherwise pool.
func Conn(ctx context.Context, pool *pgxpool.Pool) Querier {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// WithTx runs fn inside a transaction. Repositories called with the context
// passed to fn pick the transaction up through TxFromContext. The transaction
// is committed when fn returns nil and rolled back otherwise. Nested calls
// reuse the outer transaction.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, DBTxKey, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ConstraintViolation reports whether err is a unique violation of the named
// constraint. An empty name matches any unique violation.
func ConstraintViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != UniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// TxRunner runs fn atomically. Services take one instead of a pool so tests
// can substitute RunDirect.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// PoolTx returns a TxRunner backed by WithTx on pool.
func PoolTx(pool *pgxpool.Pool) TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		return WithTx(ctx, pool, fn)
	}
}

// RunDirect calls fn without a transaction.
func RunDirect(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
