package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mysqlstore/internal/queryir"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Step: 0, Type: EventBegin},
		{Step: 0, Type: EventStatement, SQL: "update a", Bindings: []any{"x"}},
		{Step: 0, Type: EventStatement, SQL: "insert a"},
		{Step: 0, Type: EventStatement, SQL: "select a"},
		{Step: 0, Type: EventCommit},
		{Step: 1, Type: EventStatement, SQL: "select a"},
	}
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	result := &Result{Trace: sampleTrace()}
	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceContains, SQL: "insert a"},
		{Type: AssertTraceOrder, SQLs: []string{"update a", "select a"}},
		{Type: AssertTraceCount, SQL: "select a", Count: 2},
		{Type: AssertTraceCount, Event: EventCommit, Count: 1},
		{Type: AssertTraceCount, Event: EventRollback, Count: 0},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	result := &Result{Trace: sampleTrace()}
	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceContains, SQL: "delete a"},
		{Type: AssertTraceOrder, SQLs: []string{"insert a", "update a"}},
		{Type: AssertTraceCount, SQL: "select a", Count: 1},
		{Type: "bogus"},
	})
	require.Len(t, errs, 4)
	assert.Contains(t, errs[0], "not found in trace")
	assert.Contains(t, errs[1], "missing or out of order: update a")
	assert.Contains(t, errs[2], "2 occurrences")
	assert.Contains(t, errs[3], `unknown assertion type "bogus"`)
}

func TestAssertionError_ListsStatements(t *testing.T) {
	err := &AssertionError{Type: AssertTraceContains, Expected: "x", Actual: "y", Trace: sampleTrace()}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: trace_contains")
	assert.Contains(t, msg, "update a [x]")
}

func TestMatchSubset(t *testing.T) {
	actual := queryir.ColumnsOf("id", "u1", "score", int64(5), "profile", map[string]any{"city": "Oslo"})

	assert.NoError(t, matchSubset("r", queryir.ColumnsOf("score", 5), actual))
	assert.NoError(t, matchSubset("r", queryir.ColumnsOf("profile", queryir.ColumnsOf("city", "Oslo")), actual))
	assert.NoError(t, matchSubset("r", []any{queryir.ColumnsOf("id", "u1")}, []any{actual}))

	assert.EqualError(t, matchSubset("r", queryir.ColumnsOf("missing", 1), actual), "r.missing: missing")
	assert.EqualError(t, matchSubset("r", queryir.ColumnsOf("id", "u2"), actual), `r.id: expected "u2", got "u1"`)
	assert.EqualError(t, matchSubset("r", []any{}, []any{actual}), "r: expected 0 elements, got 1")
	assert.Error(t, matchSubset("r", queryir.ColumnsOf("id", "u1"), "text"))
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
