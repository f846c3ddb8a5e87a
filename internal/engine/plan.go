package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/mysqlstore/internal/entity"
	"github.com/roach88/mysqlstore/internal/queryir"
)

// Verb names accepted by Plan.
const (
	VerbSave   = "save"
	VerbLoad   = "load"
	VerbList   = "list"
	VerbRemove = "remove"
)

// ErrNativePlan is returned by Plan for native queries, which run verbatim.
var ErrNativePlan = errors.New("native queries run verbatim and have no plan")

// Plan returns the statements verb would issue, without touching the
// database. Statements whose arguments come from earlier results are left
// out: the delete after a remove lookup, and the reload after an
// auto-increment insert.
//
// A save without an id draws an id from the generator, as Save would.
// Plan never uses the store, so an Engine created with a nil store can plan.
func (e *Engine) Plan(verb string, d *entity.Descriptor, ent *entity.Entity, q Query) ([]queryir.Statement, error) {
	if q.Native != nil && verb != VerbSave {
		return nil, ErrNativePlan
	}

	switch verb {
	case VerbSave:
		if ent == nil {
			return nil, fmt.Errorf("save requires an entity")
		}
		return e.planSave(d, ent, q)
	case VerbLoad:
		q.Limit = queryir.Int64(1)
		return planSelect(d, q, nil)
	case VerbList:
		return planSelect(d, q, nil)
	case VerbRemove:
		if q.All {
			return planSelect(d, q, []string{entity.IDField})
		}
		q.Limit = queryir.Int64(1)
		return planSelect(d, q, nil)
	default:
		return nil, fmt.Errorf("unknown verb %q", verb)
	}
}

func planSelect(d *entity.Descriptor, q Query, columns []string) ([]queryir.Statement, error) {
	stmt, err := selectFor(d, q, columns)
	if err != nil {
		return nil, err
	}
	return []queryir.Statement{stmt}, nil
}

func (e *Engine) planSave(d *entity.Descriptor, ent *entity.Entity, q Query) ([]queryir.Statement, error) {
	if id := ent.ID(); id != nil {
		row, err := e.codec.ToRow(ent)
		if err != nil {
			return nil, err
		}
		reload, err := reloadBy(d, queryir.ColumnsOf(entity.IDField, id))
		if err != nil {
			return nil, err
		}
		return []queryir.Statement{updateByID(d, row, id), reload}, nil
	}

	newEnt := e.insertable(ent)
	row, err := e.codec.ToRow(newEnt)
	if err != nil {
		return nil, err
	}

	if len(q.Upsert) > 0 {
		up, err := upsertFor(d, q.Upsert, row)
		if err != nil {
			return nil, err
		}
		if up != nil {
			return up.Statements(), nil
		}
	}

	stmts := []queryir.Statement{insertRow(d, row)}
	if id := newEnt.ID(); id != nil {
		reload, err := reloadBy(d, queryir.ColumnsOf(entity.IDField, id))
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, reload)
	}
	return stmts, nil
}
