package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loadScenario = `
name: load_by_id
description: "Load reads one row by id"
entity: users
steps:
  - verb: load
    query: u1
    db:
      - kind: query
        sql: "select * from ` + "`users`" + ` where ` + "`id`" + ` = ? limit ?"
        args: [u1, 1]
        rows:
          - {id: u1, score: 3}
    expect:
      result: {id: u1, score: 3}
`

const wrongScenario = `
name: wrong_result
description: "The expectation does not match the row"
entity: users
steps:
  - verb: load
    query: u1
    db:
      - kind: query
        sql: "select * from ` + "`users`" + ` where ` + "`id`" + ` = ? limit ?"
        args: [u1, 1]
        rows:
          - {id: u1, score: 3}
    expect:
      result: {score: 4}
`

func writeScenarios(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0644))
	}
	return dir
}

func TestTestCommand_PassAndGolden(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"load.yaml": loadScenario})

	stdout, _, err := runCLI(t, &RootOptions{}, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ load_by_id (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "load.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"load_by_id"`)

	stdout, _, err = runCLI(t, &RootOptions{}, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ load_by_id")
	assert.Contains(t, stdout, "Test Summary: 1 passed, 0 failed, 1 total")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "load.golden"), []byte("{}"), 0644))
	stdout, _, err = runCLI(t, &RootOptions{}, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "trace does not match golden file")
}

func TestTestCommand_FailureJSON(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"load.yaml":  loadScenario,
		"wrong.yaml": wrongScenario,
	})

	stdout, _, err := runCLI(t, &RootOptions{}, "--format", "json", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)
	assert.Equal(t, "wrong_result", resp.Data.Scenarios[1].Name)
	assert.Contains(t, resp.Data.Scenarios[1].Errors[0], "result.score: expected 4, got 3")
}

func TestTestCommand_Filter(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"load.yaml":  loadScenario,
		"wrong.yaml": wrongScenario,
	})

	stdout, _, err := runCLI(t, &RootOptions{}, "test", dir, "--filter", "lo*")
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 passed, 0 failed, 1 total")

	stdout, _, err = runCLI(t, &RootOptions{}, "test", dir, "--filter", "nothing*")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No scenarios found.")
}

func TestTestCommand_BadPaths(t *testing.T) {
	_, _, err := runCLI(t, &RootOptions{}, "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	dir := writeScenarios(t, map[string]string{"load.yaml": loadScenario})
	_, _, err = runCLI(t, &RootOptions{}, "test", dir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
