package cli

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSave_Create(t *testing.T) {
	opts, mock := mockOptions(t, "u1")
	mock.ExpectExec("insert into `sys_users` (`id`, `email`) values (?, ?)").
		WithArgs("u1", "a@x").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("select * from `sys_users` where `id` = ? limit ?").
		WithArgs("u1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow("u1", "a@x"))

	stdout, _, err := runCLI(t, opts, "--url", testURL, "save", "sys/users", "--data", `{"email":"a@x"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"u1","email":"a@x"}`+"\n", stdout)
}

func TestSave_WithID(t *testing.T) {
	opts, mock := mockOptions(t)
	mock.ExpectExec("insert into `users` (`id`, `email`) values (?, ?)").
		WithArgs("chosen", "a@x").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("select * from `users` where `id` = ? limit ?").
		WithArgs("chosen", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow("chosen", "a@x"))

	stdout, _, err := runCLI(t, opts, "--url", testURL, "save", "users", "--data", `{"email":"a@x"}`, "--id", "chosen")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"chosen","email":"a@x"}`+"\n", stdout)
}

func TestSave_UpsertJSON(t *testing.T) {
	opts, mock := mockOptions(t, "u1")
	mock.ExpectBegin()
	mock.ExpectExec("update `users` set `email` = ?, `score` = ? where `email` = ?").
		WithArgs("a@x", 5, "a@x").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into `users` (`id`, `email`, `score`) select ?, ?, ? from dual " +
		"where not exists (select * from `users` where `email` = ?)").
		WithArgs("u1", "a@x", 5, "a@x").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select * from `users` where `email` = ? limit ?").
		WithArgs("a@x", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "score"}).AddRow("u0", "a@x", int64(5)))
	mock.ExpectCommit()

	stdout, _, err := runCLI(t, opts, "--url", testURL, "--format", "json",
		"save", "users", "--data", `{"email":"a@x","score":5}`, "--upsert", "email")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "u0", resp.Data["id"])
	assert.Equal(t, float64(5), resp.Data["score"])
}

func TestSave_DuplicateEntry(t *testing.T) {
	opts, mock := mockOptions(t)
	mock.ExpectExec("insert into `users` (`id`, `email`) values (?, ?)").
		WithArgs("u1", "a@x").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@x' for key 'email'"})

	stdout, _, err := runCLI(t, opts, "--url", testURL, "save", "users", "--data", `{"email":"a@x"}`, "--id", "u1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "Error ["+ErrCodeDuplicate+"]")
}

func TestSave_InvalidData(t *testing.T) {
	opts, _ := mockOptions(t)

	for _, data := range []string{`[1, 2]`, `{"email":"a@x"} junk`} {
		stdout, _, err := runCLI(t, opts, "--url", testURL, "save", "users", "--data", data)
		require.Error(t, err, data)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, stdout, "Error ["+ErrCodeInput+"]")
	}
}

func TestSave_RequiresData(t *testing.T) {
	opts, _ := mockOptions(t)

	_, _, err := runCLI(t, opts, "--url", testURL, "save", "users")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"data" not set`)
}

func TestLoad_ByID(t *testing.T) {
	opts, mock := mockOptions(t)
	mock.ExpectQuery("select * from `users` where `id` = ? limit ?").
		WithArgs("u1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "score"}).AddRow("u1", int64(3)))

	stdout, _, err := runCLI(t, opts, "--url", testURL, "load", "users", "--query", `"u1"`)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"u1","score":3}`+"\n", stdout)
}

func TestLoad_Miss(t *testing.T) {
	opts, mock := mockOptions(t)
	mock.ExpectQuery("select * from `users` where `email` = ? limit ?").
		WithArgs("nobody@x", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	stdout, _, err := runCLI(t, opts, "--url", testURL, "load", "users", "--query", `{"email":"nobody@x"}`)
	require.NoError(t, err)
	assert.Equal(t, "(none)\n", stdout)
}

func TestList_WithControls(t *testing.T) {
	opts, mock := mockOptions(t)
	mock.ExpectQuery("select * from `users` where `score` > ? order by `score` desc limit ?").
		WithArgs(int64(2), int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "score"}).
			AddRow("u2", int64(9)).
			AddRow("u1", int64(3)))

	stdout, _, err := runCLI(t, opts, "--url", testURL, "list", "users",
		"--query", `{"score":{"gt$":2},"sort$":{"score":"desc"},"limit$":10}`)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"u2","score":9}`+"\n"+`{"id":"u1","score":3}`+"\n", stdout)
}

func TestList_MalformedQuery(t *testing.T) {
	opts, _ := mockOptions(t)

	stdout, _, err := runCLI(t, opts, "--url", testURL, "--format", "json", "list", "users",
		"--query", `{"score":{"between$":[1,2]}}`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, ErrCodeQuery, resp.Error.Code)
}

func TestList_DatabaseError(t *testing.T) {
	opts, mock := mockOptions(t)
	mock.ExpectQuery("select * from `users` where 1").
		WillReturnError(errors.New("connection reset"))

	stdout, _, err := runCLI(t, opts, "--url", testURL, "list", "users")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "Error ["+ErrCodeDatabase+"]")
	assert.Contains(t, stdout, "connection reset")
}

func TestRemove_Load(t *testing.T) {
	opts, mock := mockOptions(t)
	mock.ExpectQuery("select * from `users` where `id` = ? limit ?").
		WithArgs("u1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow("u1", "a@x"))
	mock.ExpectExec("delete from `users` where `id` = ?").
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	stdout, _, err := runCLI(t, opts, "--url", testURL, "remove", "users", "--query", `"u1"`, "--load")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"u1","email":"a@x"}`+"\n", stdout)
}

func TestRemove_All(t *testing.T) {
	opts, mock := mockOptions(t)
	mock.ExpectQuery("select `id` from `users` where `score` = ?").
		WithArgs(0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u1").AddRow("u2"))
	mock.ExpectExec("delete from `users` where `id` in (?, ?)").
		WithArgs("u1", "u2").
		WillReturnResult(sqlmock.NewResult(0, 2))

	stdout, _, err := runCLI(t, opts, "--url", testURL, "remove", "users", "--query", `{"score":0}`, "--all")
	require.NoError(t, err)
	assert.Empty(t, stdout)
}
