package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, "`users`", QuoteIdentifier("users"))
	assert.Equal(t, "`we``ird`", QuoteIdentifier("we`ird"))
	assert.Equal(t, "`app`.`users`", QuoteQualified("app.users"))
}

func TestExpand_InsertScenario(t *testing.T) {
	sql, args, err := Expand(
		"insert into ?? (??, ??) values (?, ?)",
		[]any{"users", "id", "email", "u1", "a@x.com"},
	)
	require.NoError(t, err)

	assert.Equal(t, "insert into `users` (`id`, `email`) values (?, ?)", sql)
	assert.Equal(t, []any{"u1", "a@x.com"}, args)
}

func TestExpand_SkipsQuotedText(t *testing.T) {
	sql, args, err := Expand(
		"select '??', \"it\\\"s ?\", `a?` from ?? where x = ?",
		[]any{"t", 5},
	)
	require.NoError(t, err)

	assert.Equal(t, "select '??', \"it\\\"s ?\", `a?` from `t` where x = ?", sql)
	assert.Equal(t, []any{5}, args)
}

func TestExpand_BindingMismatch(t *testing.T) {
	_, _, err := Expand("select * from ?? where a = ?", []any{"t"})
	assert.Error(t, err, "too few bindings")

	_, _, err = Expand("select 1", []any{"extra"})
	assert.Error(t, err, "too many bindings")

	_, _, err = Expand("select * from ??", []any{42})
	assert.Error(t, err, "identifier must be a string")
}

func TestExpand_NoPlaceholders(t *testing.T) {
	sql, args, err := Expand("select 1", nil)
	require.NoError(t, err)
	assert.Equal(t, "select 1", sql)
	assert.Empty(t, args)
}
