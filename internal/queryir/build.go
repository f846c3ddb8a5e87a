package queryir

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// OperatorSuffix marks operator keys inside a filter value (`{"age": {"gte$": 18}}`)
// and control keys in a query object (`sort$`, `limit$`).
const OperatorSuffix = "$"

// NewEquals builds `column = value`.
func NewEquals(column string, value any) Equals {
	return Equals{Column: column, Value: value}
}

// NewIsNull builds `column is null`.
func NewIsNull(column string) IsNull {
	return IsNull{Column: column}
}

// NewCompare builds `column <op> value`.
func NewCompare(column string, op Operator, value any) Compare {
	return Compare{Column: column, Op: op, Value: value}
}

// NewIn builds `column in (values...)`.
//
// values must be a slice or array; anything else (including []byte, which is
// a scalar blob) fails with ErrCodeInvalidArgument.
func NewIn(column string, values any) (In, error) {
	seq, ok := asSequence(values)
	if !ok {
		return In{}, invalidArgument(column, "in requires a sequence of values, got %T", values)
	}
	return In{Column: column, Values: seq}, nil
}

// NewAnd builds `left and right`. Either side may be an Expr or a filter map
// (*Columns or map[string]any), which is lifted with Where.
func NewAnd(left, right any) (And, error) {
	l, err := Lift(left)
	if err != nil {
		return And{}, fmt.Errorf("and left: %w", err)
	}
	r, err := Lift(right)
	if err != nil {
		return And{}, fmt.Errorf("and right: %w", err)
	}
	return And{Left: l, Right: r}, nil
}

// NewNot negates e.
func NewNot(e Expr) Not {
	return Not{Expr: e}
}

// NewExists wraps a select in `exists (...)`. Any other statement fails with
// ErrCodeInvalidArgument.
func NewExists(stmt Statement) (Exists, error) {
	switch s := stmt.(type) {
	case Select:
		return Exists{Select: &s}, nil
	case *Select:
		if s != nil {
			return Exists{Select: s}, nil
		}
	}
	return Exists{}, invalidArgument("", "exists requires a select statement, got %T", stmt)
}

// NewInsertWhereNotExists builds the guarded insert used by upsert: the row
// is inserted only when no row of the same table matches notWhere.
func NewInsertWhereNotExists(table string, values *Columns, notWhere Expr) InsertWhereNotExists {
	return InsertWhereNotExists{Into: table, Values: values, NotWhere: notWhere}
}

// Lift converts v into an expression: an Expr is returned unchanged and a
// filter map goes through Where.
func Lift(v any) (Expr, error) {
	switch x := v.(type) {
	case Expr:
		return x, nil
	case *Columns:
		return Where(x)
	case map[string]any:
		return Where(FromMap(x))
	default:
		return nil, invalidArgument("", "cannot use %T as an expression", v)
	}
}

// Where lifts a filter map into an Object expression.
//
// Each column becomes one term, in key order:
//   - nil value: IsNull
//   - an Expr value: used as is
//   - an operator object ({"gte$": 1, "lt$": 9}): one term per operator
//   - a slice or array: In
//   - anything else: Equals
//
// A nil or empty filter yields an Object with no terms (matches every row).
func Where(filter *Columns) (Object, error) {
	terms := []Expr{}
	err := filter.Each(func(column string, value any) error {
		lifted, err := liftTerm(column, value)
		if err != nil {
			return err
		}
		terms = append(terms, lifted...)
		return nil
	})
	if err != nil {
		return Object{}, err
	}
	return Object{Terms: terms}, nil
}

func liftTerm(column string, value any) ([]Expr, error) {
	if value == nil {
		return []Expr{NewIsNull(column)}, nil
	}
	if e, ok := value.(Expr); ok {
		return []Expr{e}, nil
	}
	if ops, ok := asOperatorObject(value); ok {
		return operatorTerms(column, ops)
	}
	switch value.(type) {
	case *Columns, map[string]any:
		return nil, invalidArgument(column, "cannot compare a column to an object")
	}
	if seq, ok := asSequence(value); ok {
		return []Expr{In{Column: column, Values: seq}}, nil
	}
	return []Expr{NewEquals(column, value)}, nil
}

var comparisonOps = map[string]Operator{
	"ne$":   OpNotEqual,
	"gt$":   OpGreater,
	"gte$":  OpGreaterEqual,
	"lt$":   OpLess,
	"lte$":  OpLessEqual,
	"like$": OpLike,
}

func operatorTerms(column string, ops *Columns) ([]Expr, error) {
	terms := make([]Expr, 0, ops.Len())
	err := ops.Each(func(key string, value any) error {
		switch key {
		case "eq$":
			if value == nil {
				terms = append(terms, NewIsNull(column))
			} else {
				terms = append(terms, NewEquals(column, value))
			}
			return nil
		case "in$", "nin$":
			seq, ok := asSequence(value)
			if !ok {
				return invalidArgument(column, "operator %s accepts only an array as value", key)
			}
			var e Expr = In{Column: column, Values: seq}
			if key == "nin$" {
				e = NewNot(e)
			}
			terms = append(terms, e)
			return nil
		}

		op, ok := comparisonOps[key]
		if !ok {
			return &QueryError{
				Code:    ErrCodeUnsupportedOperator,
				Message: fmt.Sprintf("unsupported operator %s", key),
				Column:  column,
			}
		}
		if value == nil {
			if op != OpNotEqual {
				return invalidArgument(column, "operator %s does not accept null", key)
			}
			terms = append(terms, NewNot(NewIsNull(column)))
			return nil
		}
		terms = append(terms, NewCompare(column, op, value))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return terms, nil
}

// asOperatorObject recognizes a non-empty map whose keys all carry the
// operator suffix.
func asOperatorObject(v any) (*Columns, bool) {
	var c *Columns
	switch x := v.(type) {
	case *Columns:
		c = x
	case map[string]any:
		c = FromMap(x)
	default:
		return nil, false
	}
	if c.Len() == 0 {
		return nil, false
	}
	for _, n := range c.Names() {
		if !strings.HasSuffix(n, OperatorSuffix) {
			return nil, false
		}
	}
	return c, true
}

// asSequence returns the elements of a slice or array. Strings and []byte
// are scalars.
func asSequence(v any) ([]any, bool) {
	switch x := v.(type) {
	case nil, []byte, string:
		return nil, false
	case []any:
		return x, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// ParseDirection converts an order value into a Direction.
//
// Strings must be "asc" or "desc" (any case). Numbers sort ascending when
// non-negative and descending otherwise.
func ParseDirection(v any) (Direction, error) {
	switch x := v.(type) {
	case string:
		switch strings.ToLower(x) {
		case "asc":
			return Asc, nil
		case "desc":
			return Desc, nil
		}
		return Asc, &QueryError{Code: ErrCodeUnknownOrder, Message: fmt.Sprintf("Unknown order: %s", x)}
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Asc, &QueryError{Code: ErrCodeUnknownOrder, Message: fmt.Sprintf("Unknown order: %s", x)}
		}
		return signDirection(f), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return signDirection(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Asc, nil
	case reflect.Float32, reflect.Float64:
		return signDirection(rv.Float()), nil
	}
	return Asc, &QueryError{Code: ErrCodeUnknownOrder, Message: "order must be a number or a string"}
}

func signDirection(f float64) Direction {
	if f < 0 {
		return Desc
	}
	return Asc
}

// NewOrderBy validates a sort object (column → direction) into order entries,
// keeping its key order.
func NewOrderBy(sorting *Columns) ([]Order, error) {
	orders := make([]Order, 0, sorting.Len())
	err := sorting.Each(func(column string, value any) error {
		dir, err := ParseDirection(value)
		if err != nil {
			if qe, ok := err.(*QueryError); ok {
				qe.Column = column
			}
			return err
		}
		orders = append(orders, Order{Column: column, Direction: dir})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}
