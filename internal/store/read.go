package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/mysqlstore/internal/queryir"
	"github.com/roach88/mysqlstore/internal/querysql"
)

// Query renders and runs a select, returning every row in result order.
//
// Returns an empty slice (not nil) if nothing matched.
func (x *Executor) Query(ctx context.Context, stmt queryir.Statement) ([]*queryir.Columns, error) {
	sqlText, args, err := x.prepare(stmt)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return x.query(ctx, sqlText, args)
}

// QueryOne runs a select and returns its first row, or nil if there is none.
func (x *Executor) QueryOne(ctx context.Context, stmt queryir.Statement) (*queryir.Columns, error) {
	rows, err := x.Query(ctx, stmt)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Native runs verbatim SQL that returns rows. `??` and `?` placeholders are
// expanded as for rendered statements.
func (x *Executor) Native(ctx context.Context, sqlText string, bindings ...any) ([]*queryir.Columns, error) {
	expanded, args, err := querysql.Expand(sqlText, bindings)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return x.query(ctx, expanded, args)
}

func (x *Executor) query(ctx context.Context, sqlText string, args []any) ([]*queryir.Columns, error) {
	start := time.Now()
	rows, err := x.conn.QueryContext(ctx, sqlText, args...)
	if err != nil {
		x.store.record(ctx, opQuery, sqlText, args, start, err)
		return nil, &ExecError{Op: opQuery, SQL: sqlText, Bindings: args, Err: err}
	}
	defer rows.Close()

	out, err := scanRows(rows)
	x.store.record(ctx, opQuery, sqlText, args, start, err)
	if err != nil {
		return nil, &ExecError{Op: opQuery, SQL: sqlText, Bindings: args, Err: err}
	}
	return out, nil
}
