package service

import (
	"context"
	"database/sql"
	"fmt"

	"eventdesk/pkg/platform/tx"
)

// StoreTx runs a function inside a storage transaction. The postgres
// implementation carries the transaction through ctx so every store write
// inside fn lands in one atomic commit; the in-memory implementation is a
// pass-through, since the memory stores serialize through their own locks.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type inMemoryStoreTx struct{}

func newInMemoryStoreTx() *inMemoryStoreTx { return &inMemoryStoreTx{} }

func (t *inMemoryStoreTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// PostgresStoreTx wraps fn in a database transaction.
type PostgresStoreTx struct {
	db *sql.DB
}

func NewPostgresStoreTx(db *sql.DB) *PostgresStoreTx {
	return &PostgresStoreTx{db: db}
}

func (t *PostgresStoreTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	dbTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx.WithTx(ctx, dbTx)); err != nil {
		_ = dbTx.Rollback()
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
