package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/mysqlstore/internal/queryir"
	"github.com/roach88/mysqlstore/internal/querysql"
)

const (
	opExec  = "exec"
	opQuery = "query"
)

// ExecQuerier is the subset of *sql.DB, *sql.Conn and *sql.Tx an Executor
// runs statements on.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Result reports the outcome of a write statement.
type Result struct {
	// AffectedRows counts matched rows; see config.Config.MySQL.
	AffectedRows int64 `json:"affectedRows"`
	// InsertID is the auto-increment value generated by an insert, or 0.
	InsertID int64 `json:"insertId"`
}

// Executor runs statements on one ExecQuerier: the pool, or the transaction
// opened by WithTransaction.
type Executor struct {
	store *Store
	conn  ExecQuerier
	inTx  bool
}

// InTransaction reports whether the executor is bound to a transaction.
func (x *Executor) InTransaction() bool {
	return x.inTx
}

// prepare renders stmt and expands identifiers for the driver.
func (x *Executor) prepare(stmt queryir.Statement) (string, []any, error) {
	sqlText, bindings, err := x.store.compiler.Compile(stmt)
	if err != nil {
		return "", nil, err
	}
	return querysql.Expand(sqlText, bindings)
}

// Exec renders and runs an insert, update or delete.
func (x *Executor) Exec(ctx context.Context, stmt queryir.Statement) (Result, error) {
	sqlText, args, err := x.prepare(stmt)
	if err != nil {
		return Result{}, fmt.Errorf("exec: %w", err)
	}
	return x.exec(ctx, sqlText, args)
}

func (x *Executor) exec(ctx context.Context, sqlText string, args []any) (Result, error) {
	start := time.Now()
	res, err := x.conn.ExecContext(ctx, sqlText, args...)
	x.store.record(ctx, opExec, sqlText, args, start, err)
	if err != nil {
		return Result{}, &ExecError{Op: opExec, SQL: sqlText, Bindings: args, Err: err}
	}

	var out Result
	if out.AffectedRows, err = res.RowsAffected(); err != nil {
		return Result{}, fmt.Errorf("read affected rows: %w", err)
	}
	// An insert into a table without an auto-increment column reports 0.
	if id, err := res.LastInsertId(); err == nil {
		out.InsertID = id
	}
	return out, nil
}
