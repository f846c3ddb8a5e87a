package harness

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/roach88/mysqlstore/internal/entity"
	"github.com/roach88/mysqlstore/internal/queryir"
)

// Assertion validates the trace after a scenario ran.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": a statement with SQL ran
	// - "trace_order": statements with SQLs ran in this order
	// - "trace_count": events matching SQL or Event occurred exactly Count times
	Type string `yaml:"type"`

	// SQL is the statement text (trace_contains, trace_count).
	SQL string `yaml:"sql,omitempty"`

	// SQLs is the expected statement order (trace_order).
	SQLs []string `yaml:"sqls,omitempty"`

	// Event counts events of one type instead of statements (trace_count).
	Event string `yaml:"event,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
)

// AssertionError is returned when an assertion fails.
// It includes the statements that ran to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nStatements:\n")
	for i, event := range e.Trace {
		if event.Type == EventStatement {
			fmt.Fprintf(&buf, "  [%d] %s %v\n", i+1, event.SQL, event.Bindings)
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion against the result's trace and
// returns one message per failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		if a.SQL == "" {
			return fmt.Errorf("assertions[%d]: sql is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.SQLs) == 0 {
			return fmt.Errorf("assertions[%d]: sqls list is required for trace_order", index)
		}
	case AssertTraceCount:
		if (a.SQL == "") == (a.Event == "") {
			return fmt.Errorf("assertions[%d]: exactly one of sql or event is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, event := range trace {
		if event.Type == EventStatement && event.SQL == a.SQL {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: a.SQL,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks the statements appear in order; other statements
// may run in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, event := range trace {
		if next < len(a.SQLs) && event.Type == EventStatement && event.SQL == a.SQLs[next] {
			next++
		}
	}
	if next == len(a.SQLs) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("statements in order: %v", a.SQLs),
		Actual:   fmt.Sprintf("missing or out of order: %s", a.SQLs[next]),
		Trace:    trace,
	}
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		switch {
		case a.Event != "" && event.Type == a.Event:
			count++
		case a.SQL != "" && event.Type == EventStatement && event.SQL == a.SQL:
			count++
		}
	}
	if count == a.Count {
		return nil
	}

	what := a.SQL
	if a.Event != "" {
		what = a.Event + " events"
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%d occurrences of %s", a.Count, what),
		Actual:   fmt.Sprintf("%d occurrences", count),
		Trace:    trace,
	}
}

// matchSubset compares an expected value against an actual one. Expected
// mappings match when every key they name matches; lists match element by
// element; scalars compare by their canonical JSON text, so int and int64
// are equal.
func matchSubset(path string, expected, actual any) error {
	switch exp := expected.(type) {
	case *queryir.Columns:
		if m, ok := actual.(map[string]any); ok {
			actual = queryir.FromMap(m)
		}
		act, ok := actual.(*queryir.Columns)
		if !ok {
			return fmt.Errorf("%s: expected an object, got %T", path, actual)
		}
		return exp.Each(func(name string, want any) error {
			got, ok := act.Get(name)
			if !ok {
				return fmt.Errorf("%s.%s: missing", path, name)
			}
			return matchSubset(path+"."+name, want, got)
		})
	case []any:
		act, ok := actual.([]any)
		if !ok {
			return fmt.Errorf("%s: expected a list, got %T", path, actual)
		}
		if len(act) != len(exp) {
			return fmt.Errorf("%s: expected %d elements, got %d", path, len(exp), len(act))
		}
		for i := range exp {
			if err := matchSubset(fmt.Sprintf("%s[%d]", path, i), exp[i], act[i]); err != nil {
				return err
			}
		}
		return nil
	default:
		want, err := entity.MarshalNormalized(expected)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		got, err := entity.MarshalNormalized(actual)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if !bytes.Equal(want, got) {
			return fmt.Errorf("%s: expected %s, got %s", path, want, got)
		}
		return nil
	}
}
