package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_Text(t *testing.T) {
	stdout, _, err := runCLI(t, &RootOptions{}, "schema", writeSchema(t))
	require.NoError(t, err)
	assert.Equal(t,
		"counters -> counters (auto_increment)\n"+
			"sys/users -> sys_users: email, score\n"+
			"✓ 2 entit(ies) valid\n",
		stdout)
}

func TestSchema_JSONFromFlag(t *testing.T) {
	stdout, _, err := runCLI(t, &RootOptions{}, "--format", "json", "--schema", writeSchema(t), "schema")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   []EntityInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []EntityInfo{
		{Entity: "counters", Table: "counters", AutoIncrement: true},
		{Entity: "sys/users", Table: "sys_users", Fields: []string{"email", "score"}},
	}, resp.Data)
}

func TestSchema_InvalidDeclaration(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.cue"), []byte("entity: users: {base: 42}\n"), 0644))

	stdout, _, err := runCLI(t, &RootOptions{}, "--format", "json", "schema", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.True(t, IsReported(err))

	var resp struct {
		Error struct {
			Code    string             `json:"code"`
			Details SchemaErrorDetails `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, ErrCodeSchema, resp.Error.Code)
	assert.Equal(t, "base", resp.Error.Details.Field)
}

func TestSchema_MissingDirectory(t *testing.T) {
	_, _, err := runCLI(t, &RootOptions{}, "schema")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = runCLI(t, &RootOptions{}, "schema", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
