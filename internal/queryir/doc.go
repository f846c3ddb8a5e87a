// Package queryir defines the expression and statement trees that the
// MySQL adapter renders into parameterized SQL.
//
// ARCHITECTURE:
//
//	[filter map / query object] → [queryir trees] → [querysql.Render] → [driver]
//
// Callers never build SQL strings. They build immutable nodes bottom-up and
// hand the finished Statement to the renderer, which produces SQL text with
// `?` (value) and `??` (identifier) placeholders plus the matching binding
// list.
//
// SEALED INTERFACES:
//
// Expr and Statement are sealed with marker methods, so a renderer can switch
// exhaustively over every variant:
//
//	switch e := expr.(type) {
//	case Equals:
//	    // column = value
//	case In:
//	    // column in (...)
//	...
//	}
//
// Both value and pointer forms of every node are accepted by the renderer
// and by Validate.
//
// FILTER MAPS:
//
// Filter maps are lifted into Object expressions by Where. Column order is
// preserved through Columns, so rendered text and binding order are
// deterministic across runs. Two sentinels matter:
//   - an empty filter renders as `1` (every row)
//   - an empty in-list renders as `0` (no row)
//
// Malformed input (In over a non-sequence, Exists over a non-select, an
// unknown sort direction, an unknown operator) is reported as *QueryError
// before any SQL is produced.
package queryir
