package engine

import (
	"github.com/roach88/mysqlstore/internal/entity"
	"github.com/roach88/mysqlstore/internal/queryir"
)

// Statement builders for the save paths. Save runs them and Plan lists
// them, so a plan always shows what a save would issue.

func byID(id any) queryir.Object {
	return queryir.Object{Terms: []queryir.Expr{queryir.NewEquals(entity.IDField, id)}}
}

func insertRow(d *entity.Descriptor, row *queryir.Columns) queryir.Insert {
	return queryir.Insert{Into: d.TableName(), Values: row}
}

func updateByID(d *entity.Descriptor, row *queryir.Columns, id any) queryir.Update {
	return queryir.Update{Table: d.TableName(), Set: row, Where: byID(id)}
}

// reloadBy selects the first row matching an exact-match filter.
func reloadBy(d *entity.Descriptor, match *queryir.Columns) (queryir.Select, error) {
	return selectFor(d, Query{Where: match, Limit: queryir.Int64(1)}, nil)
}

// upsertStatements is the conditional create for one row. Update is nil
// when the row holds nothing but its id and the key.
type upsertStatements struct {
	Key    *queryir.Columns
	Update *queryir.Update
	Insert queryir.InsertWhereNotExists
	Reload queryir.Select
}

// upsertFor builds the upsert of row keyed on fields. It returns nil when
// row holds none of fields, in which case the save is a plain insert.
func upsertFor(d *entity.Descriptor, fields []string, row *queryir.Columns) (*upsertStatements, error) {
	key := upsertKey(fields, row)
	if key.Len() == 0 {
		return nil, nil
	}

	match, err := queryir.Where(key)
	if err != nil {
		return nil, err
	}
	reload, err := reloadBy(d, key)
	if err != nil {
		return nil, err
	}

	up := &upsertStatements{
		Key:    key,
		Insert: queryir.NewInsertWhereNotExists(d.TableName(), row, match),
		Reload: reload,
	}
	set := row.Filter(func(name string, _ any) bool {
		return name != entity.IDField
	})
	if set.Len() > 0 {
		up.Update = &queryir.Update{Table: d.TableName(), Set: set, Where: match}
	}
	return up, nil
}

// upsertKey is the subset of fields present in row, in fields order.
func upsertKey(fields []string, row *queryir.Columns) *queryir.Columns {
	key := queryir.NewColumns()
	for _, f := range fields {
		if v, ok := row.Get(f); ok {
			key.Set(f, v)
		}
	}
	return key
}

// Statements lists the statements in run order.
func (u *upsertStatements) Statements() []queryir.Statement {
	var out []queryir.Statement
	if u.Update != nil {
		out = append(out, *u.Update)
	}
	return append(out, u.Insert, u.Reload)
}
