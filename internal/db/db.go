// Package db provides the thin database-access abstraction shared by every
// store in pkg/. There is no generated layer (no sqlc, no gorm): stores hold
// a DBTX and issue raw SQL directly, scanning rows by hand.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx, and *pgx.Conn, so a store can
// be handed a pool for normal operation or a transaction when a caller needs
// to compose several writes atomically.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries wraps a DBTX. It carries no generated methods; it exists so store
// constructors have a consistent shape (db.New(dbtx)) even though most
// query logic lives directly on each package's Store type.
type Queries struct {
	dbtx DBTX
}

// New wraps dbtx in a Queries.
func New(dbtx DBTX) *Queries {
	return &Queries{dbtx: dbtx}
}

// WithTx runs fn inside a transaction on pool, committing on success and
// rolling back if fn returns an error or panics.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
