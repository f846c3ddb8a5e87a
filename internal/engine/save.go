package engine

import (
	"context"
	"fmt"

	"github.com/roach88/mysqlstore/internal/entity"
	"github.com/roach88/mysqlstore/internal/queryir"
	"github.com/roach88/mysqlstore/internal/store"
)

// Operation names used in errors and logs.
const (
	OpInsert = "save/insert"
	OpUpdate = "save/update"
	OpUpsert = "save/upsert"
	OpLoad   = "load"
	OpList   = "list"
	OpRemove = "remove"
)

// Save persists ent and returns the entity as reloaded from the database.
//
// An entity with an id is updated by id, falling back to an insert with the
// same id when no row matched. An entity without an id is created: its id
// comes from NewID, else from the id generator, else (for auto-increment
// descriptors) from the database. When q.Upsert names fields present on the
// entity, the create instead updates the row matching those fields, inserts
// only if none matches, and reloads by them, all in one transaction.
//
// ent itself is not modified.
func (e *Engine) Save(ctx context.Context, ent *entity.Entity, q Query) (*entity.Entity, error) {
	if ent.ID() != nil {
		return e.update(ctx, ent)
	}

	newEnt := e.insertable(ent)
	if len(q.Upsert) == 0 {
		out, err := e.insert(ctx, e.store.ExecutorFrom(ctx), newEnt)
		if err != nil {
			return nil, failed(OpInsert, ent.Descriptor(), newEnt.ID(), err)
		}
		e.logOK(ctx, OpInsert, out)
		return out, nil
	}

	out, err := e.upsert(ctx, q.Upsert, newEnt)
	if err != nil {
		return nil, failed(OpUpsert, ent.Descriptor(), nil, err)
	}
	e.logOK(ctx, OpUpsert, out)
	return out, nil
}

// insertable returns a copy of ent carrying the id it will be inserted with,
// placed first in field order. Auto-increment entities without NewID get no
// id.
func (e *Engine) insertable(ent *entity.Entity) *entity.Entity {
	d := ent.Descriptor()

	var id any
	switch {
	case ent.NewID != nil:
		id = ent.NewID
	case !d.AutoIncrement:
		id = e.ids.Generate()
	}

	data := queryir.NewColumns()
	if id != nil {
		data.Set(entity.IDField, id)
	}
	ent.Data().Each(func(name string, value any) error {
		if name != entity.IDField {
			data.Set(name, value)
		}
		return nil
	})
	return d.Make(data)
}

// insert writes ent and reloads it by id.
func (e *Engine) insert(ctx context.Context, x *store.Executor, ent *entity.Entity) (*entity.Entity, error) {
	d := ent.Descriptor()
	row, err := e.codec.ToRow(ent)
	if err != nil {
		return nil, err
	}

	res, err := x.Exec(ctx, insertRow(d, row))
	if err != nil {
		return nil, err
	}

	id := ent.ID()
	if id == nil && res.InsertID != 0 {
		id = res.InsertID
	}
	if id == nil {
		return nil, ErrNoID
	}
	return e.loadWhere(ctx, x, d, queryir.ColumnsOf(entity.IDField, id))
}

// update writes ent by id; when no row matched it inserts ent with the same
// id instead.
func (e *Engine) update(ctx context.Context, ent *entity.Entity) (*entity.Entity, error) {
	d := ent.Descriptor()
	id := ent.ID()
	x := e.store.ExecutorFrom(ctx)

	row, err := e.codec.ToRow(ent)
	if err != nil {
		return nil, failed(OpUpdate, d, id, err)
	}

	res, err := x.Exec(ctx, updateByID(d, row, id))
	if err != nil {
		return nil, failed(OpUpdate, d, id, err)
	}

	var out *entity.Entity
	if res.AffectedRows > 0 {
		out, err = e.loadWhere(ctx, x, d, queryir.ColumnsOf(entity.IDField, id))
	} else {
		out, err = e.insert(ctx, x, ent)
	}
	if err != nil {
		return nil, failed(OpUpdate, d, id, err)
	}
	e.logOK(ctx, OpUpdate, out)
	return out, nil
}

// upsert runs the conditional create on one transaction: update the row
// matching the key set, insert if no row matches it, reload by it.
func (e *Engine) upsert(ctx context.Context, fields []string, ent *entity.Entity) (*entity.Entity, error) {
	var out *entity.Entity
	work := func(ctx context.Context, tx *store.Executor) error {
		var err error
		out, err = e.upsertOn(ctx, tx, fields, ent)
		return err
	}

	if store.InTransaction(ctx) {
		err := work(ctx, e.store.ExecutorFrom(ctx))
		return out, err
	}
	if err := e.store.WithTransaction(ctx, work); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Engine) upsertOn(ctx context.Context, tx *store.Executor, fields []string, ent *entity.Entity) (*entity.Entity, error) {
	d := ent.Descriptor()
	row, err := e.codec.ToRow(ent)
	if err != nil {
		return nil, err
	}

	up, err := upsertFor(d, fields, row)
	if err != nil {
		return nil, err
	}
	if up == nil {
		return e.insert(ctx, tx, ent)
	}

	if up.Update != nil {
		res, err := tx.Exec(ctx, *up.Update)
		if err != nil {
			return nil, fmt.Errorf("update matching row: %w", err)
		}
		e.logger.DebugContext(ctx, "upsert matched", "entity", d.Canon(), "affected", res.AffectedRows)
	}
	if _, err := tx.Exec(ctx, up.Insert); err != nil {
		return nil, fmt.Errorf("insert if absent: %w", err)
	}

	found, err := tx.QueryOne(ctx, up.Reload)
	if err != nil {
		return nil, err
	}
	return e.codec.FromRow(d, found)
}
