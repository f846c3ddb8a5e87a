package queryir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumns_InsertionOrder(t *testing.T) {
	c := NewColumns()
	c.Set("zeta", 1)
	c.Set("alpha", 2)
	c.Set("mid", 3)
	c.Set("zeta", 4) // overwrite keeps position

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, c.Names())
	v, ok := c.Get("zeta")
	require.True(t, ok)
	assert.Equal(t, 4, v)
}

func TestColumns_Delete(t *testing.T) {
	c := ColumnsOf("a", 1, "b", 2, "c", 3)
	c.Delete("b")
	c.Delete("missing")

	assert.Equal(t, []string{"a", "c"}, c.Names())
	assert.False(t, c.Has("b"))
	assert.Equal(t, 2, c.Len())
}

func TestColumns_NilSafe(t *testing.T) {
	var c *Columns

	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Names())
	assert.False(t, c.Has("x"))
	assert.NotNil(t, c.Clone())
	assert.NoError(t, c.Each(func(string, any) error { return nil }))
}

func TestColumns_NilValueIsPresent(t *testing.T) {
	c := ColumnsOf("deleted_at", nil)
	assert.True(t, c.Has("deleted_at"))
}

func TestFromMap_SortsKeys(t *testing.T) {
	c := FromMap(map[string]any{"b": 2, "a": 1, "c": 3})
	assert.Equal(t, []string{"a", "b", "c"}, c.Names())
}

func TestColumns_Filter(t *testing.T) {
	c := ColumnsOf("id", "u1", "sort$", 1, "email", "a@x.com")
	clean := c.Filter(func(name string, _ any) bool { return name != "sort$" })

	assert.Equal(t, []string{"id", "email"}, clean.Names())
	assert.Equal(t, 3, c.Len(), "filter must not mutate the source")
}

func TestColumns_UnmarshalPreservesOrder(t *testing.T) {
	c, err := ParseColumns([]byte(`{"z": 1, "a": {"y": 2, "b": 3}, "m": [1, 2.5, "x", null, true]}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"z", "a", "m"}, c.Names())

	z, _ := c.Get("z")
	assert.Equal(t, int64(1), z)

	a, _ := c.Get("a")
	nested, ok := a.(*Columns)
	require.True(t, ok, "nested objects decode to *Columns")
	assert.Equal(t, []string{"y", "b"}, nested.Names())

	m, _ := c.Get("m")
	assert.Equal(t, []any{int64(1), 2.5, "x", nil, true}, m)
}

func TestColumns_UnmarshalRejectsNonObject(t *testing.T) {
	_, err := ParseColumns([]byte(`[1, 2]`))
	assert.Error(t, err)

	var c Columns
	assert.Error(t, json.Unmarshal([]byte(`"x"`), &c))
}

func TestColumns_MarshalKeepsOrder(t *testing.T) {
	c := ColumnsOf("b", 1, "a", "two", "n", nil)
	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":"two","n":null}`, string(data))
}

func TestParseJSONValue(t *testing.T) {
	v, err := ParseJSONValue([]byte(`"u1"`))
	require.NoError(t, err)
	assert.Equal(t, "u1", v)

	v, err = ParseJSONValue([]byte(`["u1", 7]`))
	require.NoError(t, err)
	assert.Equal(t, []any{"u1", int64(7)}, v)

	v, err = ParseJSONValue([]byte("{\"a\":1}\n  "))
	require.NoError(t, err)
	assert.Equal(t, ColumnsOf("a", int64(1)), v)
}

func TestParseJSON_RejectsTrailingData(t *testing.T) {
	for _, src := range []string{`{"a":1} junk`, `{"a":1}}`, `{"a":1} {"b":2}`, `"u1" 7`} {
		_, err := ParseJSONValue([]byte(src))
		assert.Error(t, err, src)
	}

	_, err := ParseColumns([]byte(`{"a":1} junk`))
	assert.Error(t, err)
}

func TestColumnsOf_PanicsOnOddArgs(t *testing.T) {
	assert.Panics(t, func() { ColumnsOf("a") })
	assert.Panics(t, func() { ColumnsOf(1, 2) })
}
