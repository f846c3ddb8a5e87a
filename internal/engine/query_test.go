package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mysqlstore/internal/queryir"
)

func TestParseQuery_BareIDs(t *testing.T) {
	for _, q := range []any{"u1", int64(7), 7, []any{"u1", "u2"}, []string{"u1"}} {
		parsed, err := ParseQuery(q)
		require.NoError(t, err)
		assert.Equal(t, []string{"id"}, parsed.Where.Names())
		id, _ := parsed.Where.Get("id")
		assert.Equal(t, q, id)
	}
}

func TestParseQuery_Nil(t *testing.T) {
	q, err := ParseQuery(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, q.Where.Len())
	assert.Nil(t, q.Limit)
}

func TestParseQuery_ControlKeys(t *testing.T) {
	obj, err := queryir.ParseColumns([]byte(`{
		"email": "a@x.com",
		"score": {"gt$": 1},
		"sort$": {"score": "DESC", "email": 1},
		"limit$": 10,
		"skip$": 5,
		"load$": true,
		"all$": false,
		"upsert$": ["email", "id$", "name"],
		"custom$": "ignored"
	}`))
	require.NoError(t, err)

	q, err := ParseQuery(obj)
	require.NoError(t, err)

	assert.Equal(t, []string{"email", "score"}, q.Where.Names())
	assert.Equal(t, []queryir.Order{
		{Column: "score", Direction: queryir.Desc},
		{Column: "email", Direction: queryir.Asc},
	}, q.Sort)
	assert.Equal(t, int64(10), *q.Limit)
	assert.Equal(t, int64(5), *q.Skip)
	assert.True(t, q.Load)
	assert.False(t, q.All)
	assert.Equal(t, []string{"email", "name"}, q.Upsert)
	assert.Nil(t, q.Native)
}

func TestParseQuery_NegativeCountsAreIgnored(t *testing.T) {
	q, err := ParseQuery(map[string]any{"limit$": -1, "skip$": -5.0})
	require.NoError(t, err)
	assert.Nil(t, q.Limit)
	assert.Nil(t, q.Skip)
}

func TestParseQuery_UpsertEdgeCases(t *testing.T) {
	q, err := ParseQuery(map[string]any{"upsert$": "email"})
	require.NoError(t, err)
	assert.Nil(t, q.Upsert, "a non-list is not an upsert")

	q, err = ParseQuery(map[string]any{"upsert$": []any{"x$"}})
	require.NoError(t, err)
	assert.Empty(t, q.Upsert)
}

func TestParseQuery_Native(t *testing.T) {
	q, err := ParseQuery(map[string]any{"native$": "select 1"})
	require.NoError(t, err)
	assert.Equal(t, &Native{SQL: "select 1", Bindings: []any{}}, q.Native)

	q, err = ParseQuery(map[string]any{"native$": []any{"select * from ?? where id = ?", "users", "u1"}})
	require.NoError(t, err)
	assert.Equal(t, "select * from ?? where id = ?", q.Native.SQL)
	assert.Equal(t, []any{"users", "u1"}, q.Native.Bindings)
}

func TestParseQuery_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		query  any
		column string
	}{
		{"limit type", map[string]any{"limit$": "ten"}, "limit$"},
		{"fractional skip", map[string]any{"skip$": 1.5}, "skip$"},
		{"load type", map[string]any{"load$": "yes"}, "load$"},
		{"all type", map[string]any{"all$": 1}, "all$"},
		{"sort type", map[string]any{"sort$": "score"}, "sort$"},
		{"sort direction", map[string]any{"sort$": map[string]any{"score": "sideways"}}, "score"},
		{"upsert element", map[string]any{"upsert$": []any{"email", 3}}, "upsert$"},
		{"empty native", map[string]any{"native$": []any{}}, "native$"},
		{"native sql type", map[string]any{"native$": []any{42}}, "native$"},
		{"native type", map[string]any{"native$": true}, "native$"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseQuery(tc.query)
			require.Error(t, err)
			assert.True(t, queryir.IsMalformed(err))

			var qe *queryir.QueryError
			require.ErrorAs(t, err, &qe)
			assert.Equal(t, tc.column, qe.Column)
		})
	}

	_, err := ParseQuery(struct{}{})
	assert.True(t, queryir.IsMalformed(err))
}

func TestParseQuery_UnknownOrder(t *testing.T) {
	_, err := ParseQuery(map[string]any{"sort$": map[string]any{"score": "up"}})
	var qe *queryir.QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, queryir.ErrCodeUnknownOrder, qe.Code)
	assert.Contains(t, err.Error(), "Unknown order: up")
}

func TestMustParseQuery_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustParseQuery(map[string]any{"limit$": "x"})
	})
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.Equal(t, byte('7'), a[14], "version nibble")
}
