package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/roach88/mysqlstore/internal/entity"
	"github.com/roach88/mysqlstore/internal/queryir"
)

// Control keys recognized in a query object. Any key ending in "$" is a
// control key and never becomes part of the where clause.
const (
	KeySort   = "sort$"
	KeyLimit  = "limit$"
	KeySkip   = "skip$"
	KeyLoad   = "load$"
	KeyAll    = "all$"
	KeyUpsert = "upsert$"
	KeyNative = "native$"
)

// Query is a parsed query object: the filter fields plus the control keys.
type Query struct {
	// Where holds the filter fields in document order.
	Where *queryir.Columns

	Sort  []queryir.Order
	Limit *int64
	Skip  *int64

	// Load asks Remove to return the entity it deleted.
	Load bool

	// All makes Remove delete every matching row instead of one.
	All bool

	// Upsert lists the unique fields a create matches existing rows on.
	Upsert []string

	// Native, when set, replaces the rendered select in List and Load.
	Native *Native
}

// Native is verbatim SQL with its bindings.
type Native struct {
	SQL      string
	Bindings []any
}

// ParseQuery interprets a query value.
//
// A *queryir.Columns or map[string]any is a query object. A bare id (string
// or number) or a list of ids is shorthand for {"id": q}. nil matches every
// row.
func ParseQuery(q any) (Query, error) {
	switch v := q.(type) {
	case nil:
		return Query{Where: queryir.NewColumns()}, nil
	case Query:
		return v, nil
	case *queryir.Columns:
		return parseObject(v)
	case map[string]any:
		return parseObject(queryir.FromMap(v))
	case string, int, int32, int64, uint, uint32, uint64, float64, json.Number, []any, []string:
		return Query{Where: queryir.ColumnsOf(entity.IDField, v)}, nil
	default:
		return Query{}, &queryir.QueryError{
			Code:    queryir.ErrCodeInvalidArgument,
			Message: fmt.Sprintf("query must be an object, an id or a list of ids, got %T", q),
		}
	}
}

// MustParseQuery is ParseQuery for literals in tests and examples.
func MustParseQuery(q any) Query {
	parsed, err := ParseQuery(q)
	if err != nil {
		panic(err)
	}
	return parsed
}

func parseObject(obj *queryir.Columns) (Query, error) {
	q := Query{
		Where: obj.Filter(func(name string, _ any) bool {
			return !strings.HasSuffix(name, queryir.OperatorSuffix)
		}),
	}

	var err error
	if v, ok := obj.Get(KeySort); ok && v != nil {
		if q.Sort, err = parseSort(v); err != nil {
			return Query{}, err
		}
	}
	if q.Limit, err = parseCount(obj, KeyLimit); err != nil {
		return Query{}, err
	}
	if q.Skip, err = parseCount(obj, KeySkip); err != nil {
		return Query{}, err
	}
	if q.Load, err = parseFlag(obj, KeyLoad); err != nil {
		return Query{}, err
	}
	if q.All, err = parseFlag(obj, KeyAll); err != nil {
		return Query{}, err
	}
	if q.Upsert, err = parseUpsert(obj); err != nil {
		return Query{}, err
	}
	if q.Native, err = parseNative(obj); err != nil {
		return Query{}, err
	}
	return q, nil
}

func controlError(key, format string, args ...any) error {
	return &queryir.QueryError{
		Code:    queryir.ErrCodeInvalidArgument,
		Message: fmt.Sprintf(format, args...),
		Column:  key,
	}
}

func parseSort(v any) ([]queryir.Order, error) {
	var sorting *queryir.Columns
	switch s := v.(type) {
	case *queryir.Columns:
		sorting = s
	case map[string]any:
		sorting = queryir.FromMap(s)
	default:
		return nil, controlError(KeySort, "sort must be an object of column to direction, got %T", v)
	}
	return queryir.NewOrderBy(sorting)
}

// parseCount reads limit$ or skip$. A negative count is ignored.
func parseCount(obj *queryir.Columns, key string) (*int64, error) {
	v, ok := obj.Get(key)
	if !ok || v == nil {
		return nil, nil
	}
	n, ok := toInt64(v)
	if !ok {
		return nil, controlError(key, "%s must be an integer, got %v", key, v)
	}
	if n < 0 {
		return nil, nil
	}
	return queryir.Int64(n), nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), n <= math.MaxInt64
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

func parseFlag(obj *queryir.Columns, key string) (bool, error) {
	v, ok := obj.Get(key)
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, controlError(key, "%s must be a boolean, got %v", key, v)
	}
	return b, nil
}

// parseUpsert reads upsert$. Names containing "$" are dropped; a value that
// is not a list, or a list that is empty after dropping, means no upsert.
func parseUpsert(obj *queryir.Columns) ([]string, error) {
	v, ok := obj.Get(KeyUpsert)
	if !ok {
		return nil, nil
	}

	var names []string
	switch list := v.(type) {
	case []string:
		names = list
	case []any:
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, controlError(KeyUpsert, "upsert fields must be strings, got %T", item)
			}
			names = append(names, s)
		}
	default:
		return nil, nil
	}

	var fields []string
	for _, n := range names {
		if !strings.Contains(n, queryir.OperatorSuffix) {
			fields = append(fields, n)
		}
	}
	return fields, nil
}

// parseNative reads native$: either the SQL text or [sql, binding...].
func parseNative(obj *queryir.Columns) (*Native, error) {
	v, ok := obj.Get(KeyNative)
	if !ok || v == nil {
		return nil, nil
	}

	switch n := v.(type) {
	case string:
		return &Native{SQL: n, Bindings: []any{}}, nil
	case []any:
		if len(n) == 0 {
			return nil, controlError(KeyNative, "native$ list must start with the SQL text")
		}
		sql, ok := n[0].(string)
		if !ok {
			return nil, controlError(KeyNative, "native$ SQL must be a string, got %T", n[0])
		}
		bindings := make([]any, len(n)-1)
		copy(bindings, n[1:])
		return &Native{SQL: sql, Bindings: bindings}, nil
	default:
		return nil, controlError(KeyNative, "native$ must be a string or a list, got %T", v)
	}
}

// filter lifts the where fields to an expression tree.
func (q Query) filter() (queryir.Expr, error) {
	return queryir.Where(q.Where)
}
