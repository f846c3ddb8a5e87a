package engine

import (
	"context"

	"github.com/roach88/mysqlstore/internal/entity"
	"github.com/roach88/mysqlstore/internal/queryir"
	"github.com/roach88/mysqlstore/internal/store"
)

// Load returns the first entity matching q, or nil when none does.
//
// q's sort and skip apply; its limit is replaced by one.
func (e *Engine) Load(ctx context.Context, d *entity.Descriptor, q Query) (*entity.Entity, error) {
	q.Limit = queryir.Int64(1)
	out, err := e.list(ctx, e.store.ExecutorFrom(ctx), d, q)
	if err != nil {
		return nil, failed(OpLoad, d, nil, err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

// List returns every entity matching q in result order.
//
// A native query runs verbatim and ignores the filter and paging keys.
// Returns an empty slice (not nil) if nothing matched.
func (e *Engine) List(ctx context.Context, d *entity.Descriptor, q Query) ([]*entity.Entity, error) {
	out, err := e.list(ctx, e.store.ExecutorFrom(ctx), d, q)
	if err != nil {
		return nil, failed(OpList, d, nil, err)
	}
	return out, nil
}

func (e *Engine) list(ctx context.Context, x *store.Executor, d *entity.Descriptor, q Query) ([]*entity.Entity, error) {
	var rows []*queryir.Columns
	if q.Native != nil {
		var err error
		if rows, err = x.Native(ctx, q.Native.SQL, q.Native.Bindings...); err != nil {
			return nil, err
		}
	} else {
		stmt, err := selectFor(d, q, nil)
		if err != nil {
			return nil, err
		}
		if rows, err = x.Query(ctx, stmt); err != nil {
			return nil, err
		}
	}
	return e.decodeRows(d, rows)
}

// loadWhere reloads one entity by an exact-match filter.
func (e *Engine) loadWhere(ctx context.Context, x *store.Executor, d *entity.Descriptor, match *queryir.Columns) (*entity.Entity, error) {
	stmt, err := reloadBy(d, match)
	if err != nil {
		return nil, err
	}
	row, err := x.QueryOne(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return e.codec.FromRow(d, row)
}

// selectFor builds the select for q's filter, sort and paging. A nil column
// list selects every column.
func selectFor(d *entity.Descriptor, q Query, columns []string) (queryir.Select, error) {
	where, err := q.filter()
	if err != nil {
		return queryir.Select{}, err
	}
	return queryir.Select{
		From:    d.TableName(),
		Columns: columns,
		Where:   where,
		OrderBy: q.Sort,
		Limit:   q.Limit,
		Offset:  q.Skip,
	}, nil
}

func (e *Engine) decodeRows(d *entity.Descriptor, rows []*queryir.Columns) ([]*entity.Entity, error) {
	out := make([]*entity.Entity, 0, len(rows))
	for _, row := range rows {
		ent, err := e.codec.FromRow(d, row)
		if err != nil {
			return nil, err
		}
		out = append(out, ent)
	}
	return out, nil
}
