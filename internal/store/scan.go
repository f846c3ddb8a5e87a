package store

import (
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/mysqlstore/internal/queryir"
)

// scanRows reads every row into an ordered column map. Column order follows
// the result set. Returns an empty slice (not nil) when there are no rows.
func scanRows(rows *sql.Rows) ([]*queryir.Columns, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("read column types: %w", err)
	}
	typeNames := make([]string, len(types))
	for i, ct := range types {
		typeNames[i] = strings.ToUpper(ct.DatabaseTypeName())
	}

	out := []*queryir.Columns{}
	for rows.Next() {
		values := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := queryir.NewColumns()
		for i, name := range names {
			v, err := convertValue(typeNames[i], values[i])
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", name, err)
			}
			row.Set(name, v)
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// convertValue turns driver text into the Go type its column declares.
//
// The text protocol delivers every non-temporal value as []byte. Integer
// columns become int64 (uint64 past the int64 range), FLOAT and DOUBLE
// become float64, binary columns keep their bytes and everything else,
// DECIMAL included, becomes a string.
func convertValue(typeName string, v any) (any, error) {
	b, ok := v.([]byte)
	if !ok {
		return v, nil
	}

	base := strings.TrimPrefix(typeName, "UNSIGNED ")
	switch base {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT", "YEAR":
		if n, err := strconv.ParseInt(string(b), 10, 64); err == nil {
			return n, nil
		}
		u, err := strconv.ParseUint(string(b), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s %q: %w", typeName, b, err)
		}
		if u <= math.MaxInt64 {
			return int64(u), nil
		}
		return u, nil
	case "FLOAT", "DOUBLE", "REAL":
		f, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s %q: %w", typeName, b, err)
		}
		return f, nil
	case "BINARY", "VARBINARY", "TINYBLOB", "BLOB", "MEDIUMBLOB", "LONGBLOB", "BIT", "GEOMETRY":
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil
	default:
		return string(b), nil
	}
}
