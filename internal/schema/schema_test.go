package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usersSchema = `
entity: users: {
	base:           "sys"
	auto_increment: false
	fields: {
		email:   string
		score:   int
		tags: [...string]
		profile: {...}
		joined:  string
	}
}

entity: counters: {
	auto_increment: true
}
`

func TestCompileString(t *testing.T) {
	reg, err := CompileString(usersSchema, "users.cue")
	require.NoError(t, err)

	assert.Equal(t, []string{"counters", "sys/users"}, reg.Names())
	assert.Equal(t, 2, reg.Len())

	users, ok := reg.Lookup("sys/users")
	require.True(t, ok)
	assert.Equal(t, "users", users.Name)
	assert.Equal(t, "sys", users.Base)
	assert.Equal(t, "sys_users", users.TableName())
	assert.False(t, users.AutoIncrement)
	assert.Equal(t, []string{"email", "score", "tags", "profile", "joined"}, users.Fields)

	counters, ok := reg.Lookup("counters")
	require.True(t, ok)
	assert.True(t, counters.AutoIncrement)
	assert.Empty(t, counters.Fields)
}

func TestCompileString_NoEntities(t *testing.T) {
	reg, err := CompileString(`other: 1`, "empty.cue")
	require.NoError(t, err)
	assert.Equal(t, 0, reg.Len())
}

func TestCompileString_Zone(t *testing.T) {
	reg, err := CompileString(`entity: logs: {zone: "eu", base: "app"}`, "zone.cue")
	require.NoError(t, err)

	d, ok := reg.Lookup("eu/app/logs")
	require.True(t, ok)
	assert.Equal(t, "app_logs", d.TableName())
}

func TestCompileString_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		src   string
		field string
	}{
		{"base not a string", `entity: users: {base: 3}`, "base"},
		{"zone not a string", `entity: users: {zone: true}`, "zone"},
		{"auto_increment not a bool", `entity: users: {auto_increment: "yes"}`, "auto_increment"},
		{"fields not a struct", `entity: users: {fields: 3}`, "fields"},
		{"empty fields", `entity: users: {fields: {}}`, "fields"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CompileString(tc.src, "bad.cue")
			require.Error(t, err)

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.field, ce.Field)
		})
	}
}

func TestCompileString_Conflict(t *testing.T) {
	_, err := CompileString("entity: users: {base: \"a\"}\nentity: users: {base: \"b\"}\n", "conflict.cue")
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "cue", ce.Field)
	assert.Contains(t, err.Error(), "conflicting values")
}

func TestCompileError_Format(t *testing.T) {
	err := &CompileError{Field: "base", Message: "must be a string"}
	assert.Equal(t, "base: must be a string", err.Error())
}

func TestRegistry_Resolve(t *testing.T) {
	reg, err := CompileString(usersSchema, "users.cue")
	require.NoError(t, err)

	d, err := reg.Resolve("sys/users")
	require.NoError(t, err)
	assert.Len(t, d.Fields, 5)

	reg.AutoIncrement = true
	d, err = reg.Resolve("app/orders")
	require.NoError(t, err)
	assert.Equal(t, "app_orders", d.TableName())
	assert.True(t, d.AutoIncrement)
	assert.Empty(t, d.Fields)

	_, err = reg.Resolve("a/b/c/d")
	assert.Error(t, err)
}

func TestRegistry_AddDuplicate(t *testing.T) {
	reg, err := CompileString(usersSchema, "users.cue")
	require.NoError(t, err)

	d, _ := reg.Lookup("counters")
	assert.Error(t, reg.Add(d))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.cue"), []byte(usersSchema), 0o644))

	reg, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"counters", "sys/users"}, reg.Names())
}

func TestLoadDir_Errors(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	empty := t.TempDir()
	_, err = LoadDir(empty)
	assert.ErrorContains(t, err, "no CUE files")

	file := filepath.Join(empty, "x.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = LoadDir(file)
	assert.ErrorContains(t, err, "not a directory")
}
