package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

type txKey struct{}

// TxFunc is the work run inside a transaction. It must use tx (and ctx) for
// every statement that belongs to the transaction.
type TxFunc func(ctx context.Context, tx *Executor) error

// WithTransaction runs fn on a dedicated connection inside a transaction.
//
// The transaction commits if fn returns nil and rolls back if fn returns an
// error or panics; a panic is re-raised after the rollback. The connection
// is returned to the pool exactly once on every path. A rollback failure is
// joined with fn's error.
//
// Calling WithTransaction with a ctx derived from another transaction's ctx
// returns ErrNestedTransaction.
func (s *Store) WithTransaction(ctx context.Context, fn TxFunc) error {
	if InTransaction(ctx) {
		return ErrNestedTransaction
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	s.logger.LogAttrs(ctx, s.level, "transaction begin")

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.LogAttrs(ctx, slog.LevelError, "transaction rollback failed", slog.String("error", rbErr.Error()))
			}
			panic(p)
		}
	}()

	x := &Executor{store: s, conn: tx, inTx: true}
	if err := fn(context.WithValue(ctx, txKey{}, x), x); err != nil {
		s.logger.LogAttrs(ctx, s.level, "transaction rollback", slog.String("cause", err.Error()))
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	s.logger.LogAttrs(ctx, s.level, "transaction commit")
	return nil
}

// InTransaction reports whether ctx was produced by WithTransaction.
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*Executor)
	return ok
}

// ExecutorFrom returns the transaction executor carried by ctx, or the pool
// executor when ctx carries none.
func (s *Store) ExecutorFrom(ctx context.Context) *Executor {
	if x, ok := ctx.Value(txKey{}).(*Executor); ok && x.store == s {
		return x
	}
	return s.Executor()
}
