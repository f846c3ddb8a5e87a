package querysql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mysqlstore/internal/queryir"
)

func TestCompile_InsertScenario(t *testing.T) {
	compiler := NewCompiler()

	sql, bindings, err := compiler.Compile(queryir.Insert{
		Into:   "users",
		Values: queryir.ColumnsOf("id", "u1", "email", "a@x.com"),
	})
	require.NoError(t, err)

	assert.Equal(t, "insert into ?? (??, ??) values (?, ?)", sql)
	assert.Equal(t, []any{"users", "id", "email", "u1", "a@x.com"}, bindings)
}

func TestCompile_SelectInScenario(t *testing.T) {
	where, err := queryir.Where(queryir.ColumnsOf("id", []any{"u1", "u2"}))
	require.NoError(t, err)

	sql, bindings, err := NewCompiler().Compile(queryir.Select{
		From:  "users",
		Where: where,
		Limit: queryir.Int64(10),
	})
	require.NoError(t, err)

	assert.Contains(t, sql, "?? in (?, ?)")
	assert.True(t, strings.HasSuffix(sql, " limit ?"))
	assert.Equal(t, []any{"users", "id", "u1", "u2", int64(10)}, bindings)
}

func TestCompile_EmptyInsert(t *testing.T) {
	sql, bindings, err := NewCompiler().Compile(queryir.Insert{Into: "counters", Values: queryir.NewColumns()})
	require.NoError(t, err)
	assert.Equal(t, "insert into ?? () values ()", sql)
	assert.Equal(t, []any{"counters"}, bindings)
}

func TestCompile_SelectWithoutWhere(t *testing.T) {
	sql, bindings, err := NewCompiler().Compile(queryir.Select{From: "users"})
	require.NoError(t, err)
	assert.Equal(t, "select * from ??", sql)
	assert.Equal(t, []any{"users"}, bindings)
}

func TestCompile_UpdateWithOrderAndLimit(t *testing.T) {
	sql, bindings, err := NewCompiler().Compile(queryir.Update{
		Table:   "jobs",
		Set:     queryir.ColumnsOf("state", "taken"),
		Where:   queryir.NewEquals("state", "ready"),
		OrderBy: []queryir.Order{{Column: "priority", Direction: queryir.Desc}},
		Limit:   queryir.Int64(1),
	})
	require.NoError(t, err)

	assert.Equal(t, "update ?? set ?? = ? where ?? = ? order by ?? desc limit ?", sql)
	assert.Equal(t, []any{"jobs", "state", "taken", "state", "ready", "priority", int64(1)}, bindings)
}

func TestCompile_DeleteWithLimit(t *testing.T) {
	sql, bindings, err := NewCompiler().Compile(&queryir.Delete{
		From:  "users",
		Where: queryir.NewEquals("id", "u1"),
		Limit: queryir.Int64(1),
	})
	require.NoError(t, err)
	assert.Equal(t, "delete from ?? where ?? = ? limit ?", sql)
	assert.Equal(t, []any{"users", "id", "u1", int64(1)}, bindings)
}

func TestCompile_WhereExpressions(t *testing.T) {
	testCases := []struct {
		name     string
		expr     queryir.Expr
		sql      string
		bindings []any
	}{
		{
			name:     "equals",
			expr:     queryir.NewEquals("id", "u1"),
			sql:      "?? = ?",
			bindings: []any{"id", "u1"},
		},
		{
			name:     "is null",
			expr:     queryir.NewIsNull("deleted_at"),
			sql:      "?? is null",
			bindings: []any{"deleted_at"},
		},
		{
			name:     "empty in is contradiction",
			expr:     queryir.In{Column: "id", Values: []any{}},
			sql:      "0",
			bindings: []any{},
		},
		{
			name:     "empty object is tautology",
			expr:     queryir.Object{},
			sql:      "1",
			bindings: []any{},
		},
		{
			name:     "not wraps in parens",
			expr:     queryir.NewNot(queryir.And{Left: queryir.NewIsNull("a"), Right: queryir.NewEquals("b", 2)}),
			sql:      "not (?? is null and ?? = ?)",
			bindings: []any{"a", "b", 2},
		},
		{
			name:     "not exists",
			expr:     queryir.NewNot(queryir.Exists{Select: &queryir.Select{From: "t", Where: queryir.NewEquals("x", 1)}}),
			sql:      "not exists (select * from ?? where ?? = ?)",
			bindings: []any{"t", "x", 1},
		},
		{
			name:     "pointer variants",
			expr:     &queryir.And{Left: &queryir.Equals{Column: "a", Value: 1}, Right: &queryir.In{Column: "b", Values: []any{2}}},
			sql:      "?? = ? and ?? in (?)",
			bindings: []any{"a", 1, "b", 2},
		},
		{
			name:     "compare",
			expr:     queryir.NewCompare("score", queryir.OpNotEqual, 0),
			sql:      "?? <> ?",
			bindings: []any{"score", 0},
		},
	}

	compiler := NewCompiler()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sql, bindings, err := compiler.Compile(queryir.Delete{From: "t", Where: tc.expr})
			require.NoError(t, err)
			assert.Equal(t, "delete from ?? where "+tc.sql, sql)
			assert.Equal(t, append([]any{"t"}, tc.bindings...), bindings)
		})
	}
}

// Every `?` and `??` placeholder consumes exactly one binding.
func TestCompile_PlaceholderCountMatchesBindings(t *testing.T) {
	where, err := queryir.Where(queryir.ColumnsOf(
		"a", 1,
		"b", nil,
		"c", []any{1, 2, 3},
		"d", queryir.ColumnsOf("gt$", 4, "ne$", nil),
	))
	require.NoError(t, err)

	stmts := []queryir.Statement{
		queryir.Select{From: "t", Where: where, OrderBy: []queryir.Order{{Column: "a"}}, Limit: queryir.Int64(1), Offset: queryir.Int64(2)},
		queryir.Update{Table: "t", Set: queryir.ColumnsOf("x", 1, "y", 2), Where: where},
		queryir.Delete{From: "t", Where: where},
		queryir.NewInsertWhereNotExists("t", queryir.ColumnsOf("x", 1), where),
	}

	for _, s := range stmts {
		sql, bindings, err := NewCompiler().Compile(s)
		require.NoError(t, err)

		idents := strings.Count(sql, "??")
		values := strings.Count(sql, "?") - 2*idents
		assert.Equal(t, len(bindings), idents+values, sql)
	}
}

func TestCompile_Errors(t *testing.T) {
	compiler := NewCompiler()

	_, _, err := compiler.Compile(nil)
	assert.Error(t, err)

	_, _, err = compiler.Compile(queryir.Update{Table: "users", Set: queryir.NewColumns()})
	require.Error(t, err)
	assert.True(t, queryir.IsMalformed(err))

	_, _, err = compiler.Compile(queryir.Select{From: ""})
	assert.True(t, queryir.IsMalformed(err))

	_, _, err = compiler.Compile(queryir.Delete{From: "users", Where: queryir.Exists{}})
	assert.True(t, queryir.IsMalformed(err))
}

func TestRender(t *testing.T) {
	q, err := Render(queryir.Delete{From: "users", Where: queryir.Object{}})
	require.NoError(t, err)
	assert.Equal(t, "delete from ?? where 1", q.SQL)
	assert.Equal(t, []any{"users"}, q.Bindings)

	_, err = Render(queryir.Delete{})
	assert.Error(t, err)
}
