package queryir

import "fmt"

// Validate checks the structural rules a statement must satisfy before it
// can be rendered:
//  1. Every statement names a table
//  2. Every column reference is non-empty
//  3. Update and guarded insert carry at least one column
//  4. Exists wraps a non-nil select, and And/Not have non-nil children
//
// Validate is a pure function with no side effects. It returns the first
// violation as a *QueryError.
func Validate(stmt Statement) error {
	v := &validator{}
	v.statement(stmt)
	return v.err
}

// validator stops at the first error.
type validator struct {
	err error
}

func (v *validator) fail(code QueryErrorCode, column, format string, args ...any) {
	if v.err != nil {
		return
	}
	v.err = &QueryError{Code: code, Message: fmt.Sprintf(format, args...), Column: column}
}

func (v *validator) table(kind, name string) {
	if name == "" {
		v.fail(ErrCodeMissingTable, "", "%s requires a table name", kind)
	}
}

func (v *validator) columns(kind string, c *Columns) {
	for _, n := range c.Names() {
		if n == "" {
			v.fail(ErrCodeInvalidArgument, "", "%s has an empty column name", kind)
		}
	}
}

func (v *validator) orders(orders []Order) {
	for _, o := range orders {
		if o.Column == "" {
			v.fail(ErrCodeInvalidArgument, "", "order by has an empty column name")
		}
	}
}

func (v *validator) statement(stmt Statement) {
	switch s := stmt.(type) {
	case Insert:
		v.table("insert", s.Into)
		v.columns("insert", s.Values)
	case *Insert:
		v.statement(*s)
	case InsertWhereNotExists:
		v.table("insert", s.Into)
		if s.Values.Len() == 0 {
			v.fail(ErrCodeEmptySet, "", "insert where not exists requires at least one column")
		}
		v.columns("insert", s.Values)
		if s.NotWhere == nil {
			v.fail(ErrCodeInvalidArgument, "", "insert where not exists requires a condition")
			return
		}
		v.expr(s.NotWhere)
	case *InsertWhereNotExists:
		v.statement(*s)
	case Select:
		v.table("select", s.From)
		for _, c := range s.Columns {
			if c == "" {
				v.fail(ErrCodeInvalidArgument, "", "select has an empty column name")
			}
		}
		v.optionalExpr(s.Where)
		v.orders(s.OrderBy)
	case *Select:
		v.statement(*s)
	case Update:
		v.table("update", s.Table)
		if s.Set.Len() == 0 {
			v.fail(ErrCodeEmptySet, "", "update requires at least one column to set")
		}
		v.columns("update", s.Set)
		v.optionalExpr(s.Where)
		v.orders(s.OrderBy)
	case *Update:
		v.statement(*s)
	case Delete:
		v.table("delete", s.From)
		v.optionalExpr(s.Where)
	case *Delete:
		v.statement(*s)
	default:
		v.fail(ErrCodeInvalidArgument, "", "unsupported statement type %T", stmt)
	}
}

func (v *validator) optionalExpr(e Expr) {
	if e != nil {
		v.expr(e)
	}
}

func (v *validator) expr(e Expr) {
	switch x := e.(type) {
	case Equals:
		v.column(x.Column)
	case *Equals:
		v.column(x.Column)
	case Compare:
		v.column(x.Column)
		v.operator(x.Op)
	case *Compare:
		v.expr(*x)
	case IsNull:
		v.column(x.Column)
	case *IsNull:
		v.column(x.Column)
	case In:
		v.column(x.Column)
	case *In:
		v.column(x.Column)
	case And:
		v.child("and", x.Left)
		v.child("and", x.Right)
	case *And:
		v.expr(*x)
	case Not:
		v.child("not", x.Expr)
	case *Not:
		v.expr(*x)
	case Exists:
		if x.Select == nil {
			v.fail(ErrCodeInvalidArgument, "", "exists requires a select statement")
			return
		}
		v.statement(*x.Select)
	case *Exists:
		v.expr(*x)
	case Object:
		for _, t := range x.Terms {
			v.child("object", t)
		}
	case *Object:
		v.expr(*x)
	default:
		v.fail(ErrCodeInvalidArgument, "", "unsupported expression type %T", e)
	}
}

func (v *validator) child(kind string, e Expr) {
	if e == nil {
		v.fail(ErrCodeInvalidArgument, "", "%s has a nil operand", kind)
		return
	}
	v.expr(e)
}

func (v *validator) column(name string) {
	if name == "" {
		v.fail(ErrCodeInvalidArgument, "", "expression has an empty column name")
	}
}

func (v *validator) operator(op Operator) {
	switch op {
	case OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual, OpLike:
	default:
		v.fail(ErrCodeUnsupportedOperator, "", "unsupported operator %q", string(op))
	}
}
