package engine

import (
	"context"

	"github.com/roach88/mysqlstore/internal/entity"
	"github.com/roach88/mysqlstore/internal/queryir"
	"github.com/roach88/mysqlstore/internal/store"
)

// Remove deletes entities matching q.
//
// With q.All it selects the ids of every match (honoring sort, limit and
// skip) and deletes them in one statement, returning nil. Otherwise it
// deletes the first match (honoring sort and skip) and returns it when
// q.Load is set. A miss is not an error.
func (e *Engine) Remove(ctx context.Context, d *entity.Descriptor, q Query) (*entity.Entity, error) {
	x := e.store.ExecutorFrom(ctx)
	if q.All {
		if err := e.removeMany(ctx, x, d, q); err != nil {
			return nil, failed(OpRemove, d, nil, err)
		}
		return nil, nil
	}

	out, err := e.removeOne(ctx, x, d, q)
	if err != nil {
		return nil, failed(OpRemove, d, nil, err)
	}
	if !q.Load {
		return nil, nil
	}
	return out, nil
}

func (e *Engine) removeMany(ctx context.Context, x *store.Executor, d *entity.Descriptor, q Query) error {
	stmt, err := selectFor(d, q, []string{entity.IDField})
	if err != nil {
		return err
	}
	rows, err := x.Query(ctx, stmt)
	if err != nil {
		return err
	}

	ids := make([]any, 0, len(rows))
	for _, row := range rows {
		id, _ := row.Get(entity.IDField)
		ids = append(ids, id)
	}

	in, err := queryir.NewIn(entity.IDField, ids)
	if err != nil {
		return err
	}
	res, err := x.Exec(ctx, queryir.Delete{From: d.TableName(), Where: in})
	if err != nil {
		return err
	}
	e.logger.DebugContext(ctx, OpRemove, "entity", d.Canon(), "all", true, "affected", res.AffectedRows)
	return nil
}

func (e *Engine) removeOne(ctx context.Context, x *store.Executor, d *entity.Descriptor, q Query) (*entity.Entity, error) {
	q.Limit = queryir.Int64(1)
	found, err := e.list(ctx, x, d, q)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	victim := found[0]

	_, err = x.Exec(ctx, queryir.Delete{From: d.TableName(), Where: byID(victim.ID())})
	if err != nil {
		return nil, err
	}
	e.logOK(ctx, OpRemove, victim)
	return victim, nil
}
