package harness

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/roach88/mysqlstore/internal/engine"
	"github.com/roach88/mysqlstore/internal/entity"
	"github.com/roach88/mysqlstore/internal/queryir"
	"github.com/roach88/mysqlstore/internal/store"
	"github.com/roach88/mysqlstore/internal/testutil"
)

// Harness runs the steps of one scenario against an engine whose store is
// backed by sqlmock.
type Harness struct {
	engine *engine.Engine
	desc   *entity.Descriptor
	mock   sqlmock.Sqlmock
	rec    *recorder
}

// Run executes a scenario and returns the result.
//
// Each scenario gets a fresh mock database. The mock enforces statement
// order and exact SQL text; the trace is built from what the store logged,
// so it shows the statements as the store actually ran them.
//
// An error is returned only when the scenario cannot be set up. Mismatches
// are reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	d, err := scenario.Descriptor()
	if err != nil {
		return nil, fmt.Errorf("invalid entity: %w", err)
	}

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		return nil, fmt.Errorf("failed to create mock database: %w", err)
	}

	rec := &recorder{}
	st := store.New(db, store.WithLogger(slog.New(rec)))
	defer st.Close()

	var ids engine.IDGenerator = testutil.NewFixedIDGenerator("")
	if len(scenario.IDs) > 0 {
		ids = engine.NewFixedGenerator(scenario.IDs...)
	}

	h := &Harness{
		engine: engine.New(st,
			engine.WithCodec(entity.NewCodec(scenario.TypeColumn)),
			engine.WithIDGenerator(ids),
			engine.WithLogger(testutil.DiscardLogger()),
		),
		desc: d,
		mock: mock,
		rec:  rec,
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.expect(step.DB); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}

		rec.startStep(i)
		out, err := h.runStep(ctx, step)

		ev := TraceEvent{Step: i, Type: EventResult, Verb: step.Verb, Result: out}
		if err != nil {
			ev.Error = err.Error()
		}
		rec.add(ev)

		for _, msg := range checkOutcome(step.Expect, out, err) {
			result.AddError(fmt.Sprintf("step %d (%s): %s", i, step.Verb, msg))
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		result.AddError(fmt.Sprintf("database: %v", err))
	}

	result.Trace = rec.trace()
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// runStep invokes the step's verb and returns its outcome as plain data: the
// entity's fields, a list of them, or nil.
func (h *Harness) runStep(ctx context.Context, step Step) (out any, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = nil, fmt.Errorf("panic: %v", p)
		}
	}()

	qv, err := nodeValue(&step.Query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	q, err := engine.ParseQuery(qv)
	if err != nil {
		return nil, err
	}

	switch step.Verb {
	case VerbSave:
		dv, err := nodeValue(&step.Data)
		if err != nil {
			return nil, fmt.Errorf("data: %w", err)
		}
		data, ok := dv.(*queryir.Columns)
		if !ok {
			return nil, fmt.Errorf("data must be a mapping")
		}
		ent := h.desc.Make(data)
		ent.NewID = normalizeScalar(step.NewID)
		return entityData(h.engine.Save(ctx, ent, q))
	case VerbLoad:
		return entityData(h.engine.Load(ctx, h.desc, q))
	case VerbRemove:
		return entityData(h.engine.Remove(ctx, h.desc, q))
	case VerbList:
		list, err := h.engine.List(ctx, h.desc, q)
		if err != nil {
			return nil, err
		}
		rows := make([]any, len(list))
		for i, ent := range list {
			rows[i] = ent.Data()
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("unknown verb %q", step.Verb)
	}
}

func entityData(ent *entity.Entity, err error) (any, error) {
	if err != nil || ent == nil {
		return nil, err
	}
	return ent.Data(), nil
}

// expect registers a step's statements with the mock.
func (h *Harness) expect(stmts []Statement) error {
	for i, st := range stmts {
		var fail error
		if st.Error != "" {
			fail = errors.New(st.Error)
		}

		switch st.Kind {
		case KindBegin:
			e := h.mock.ExpectBegin()
			if fail != nil {
				e.WillReturnError(fail)
			}
		case KindCommit:
			e := h.mock.ExpectCommit()
			if fail != nil {
				e.WillReturnError(fail)
			}
		case KindRollback:
			e := h.mock.ExpectRollback()
			if fail != nil {
				e.WillReturnError(fail)
			}
		case KindExec:
			args, err := driverArgs(st)
			if err != nil {
				return fmt.Errorf("db[%d]: %w", i, err)
			}
			e := h.mock.ExpectExec(st.SQL)
			if args != nil {
				e.WithArgs(args...)
			}
			if fail != nil {
				e.WillReturnError(fail)
			} else {
				e.WillReturnResult(sqlmock.NewResult(st.InsertID, st.Affected))
			}
		case KindQuery:
			args, err := driverArgs(st)
			if err != nil {
				return fmt.Errorf("db[%d]: %w", i, err)
			}
			e := h.mock.ExpectQuery(st.SQL)
			if args != nil {
				e.WithArgs(args...)
			}
			if fail != nil {
				e.WillReturnError(fail)
				continue
			}
			rows, err := mockRows(st)
			if err != nil {
				return fmt.Errorf("db[%d]: %w", i, err)
			}
			e.WillReturnRows(rows)
		default:
			return fmt.Errorf("db[%d]: unknown kind %q", i, st.Kind)
		}
	}
	return nil
}

func driverArgs(st Statement) ([]driver.Value, error) {
	list, err := nodeList(&st.Args)
	if err != nil || list == nil {
		return nil, err
	}
	args := make([]driver.Value, len(list))
	for i, v := range list {
		if args[i], err = driverValue(v); err != nil {
			return nil, fmt.Errorf("args[%d]: %w", i, err)
		}
	}
	return args, nil
}

// driverValue stores structured values the way the codec writes them: as
// canonical JSON text.
func driverValue(v any) (driver.Value, error) {
	switch v.(type) {
	case *queryir.Columns, []any:
		b, err := entity.MarshalCanonical(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	default:
		return v, nil
	}
}

func mockRows(st Statement) (*sqlmock.Rows, error) {
	list, err := nodeList(&st.Rows)
	if err != nil {
		return nil, err
	}

	columns := st.Columns
	if len(columns) == 0 && len(list) > 0 {
		first, ok := list[0].(*queryir.Columns)
		if !ok {
			return nil, fmt.Errorf("rows[0]: expected a mapping")
		}
		columns = first.Names()
	}

	rows := sqlmock.NewRows(columns)
	for i, item := range list {
		row, ok := item.(*queryir.Columns)
		if !ok {
			return nil, fmt.Errorf("rows[%d]: expected a mapping", i)
		}
		values := make([]driver.Value, len(columns))
		for j, col := range columns {
			v, _ := row.Get(col)
			if values[j], err = driverValue(v); err != nil {
				return nil, fmt.Errorf("rows[%d].%s: %w", i, col, err)
			}
		}
		rows.AddRow(values...)
	}
	return rows, nil
}

// checkOutcome compares a step's outcome with its expectation.
func checkOutcome(exp *Expect, out any, err error) []string {
	if exp == nil {
		if err != nil {
			return []string{fmt.Sprintf("unexpected error: %v", err)}
		}
		return nil
	}

	if exp.Error != "" {
		switch {
		case err == nil:
			return []string{fmt.Sprintf("expected error containing %q, got success", exp.Error)}
		case !strings.Contains(err.Error(), exp.Error):
			return []string{fmt.Sprintf("expected error containing %q, got %q", exp.Error, err.Error())}
		}
		return nil
	}
	if err != nil {
		return []string{fmt.Sprintf("unexpected error: %v", err)}
	}

	var errs []string
	if exp.Nil && out != nil {
		errs = append(errs, "expected no entity")
	}
	if exp.Count != nil {
		list, _ := out.([]any)
		if len(list) != *exp.Count {
			errs = append(errs, fmt.Sprintf("expected %d entities, got %d", *exp.Count, len(list)))
		}
	}
	if exp.Result.Kind != 0 {
		want, err := nodeValue(&exp.Result)
		if err != nil {
			return append(errs, fmt.Sprintf("expect.result: %v", err))
		}
		if out == nil {
			return append(errs, "expected a result, got none")
		}
		if err := matchSubset("result", want, out); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}
