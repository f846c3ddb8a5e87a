package harness

// Trace event types.
const (
	EventStatement = "statement"
	EventBegin     = "begin"
	EventCommit    = "commit"
	EventRollback  = "rollback"
	EventResult    = "result"
)

// TraceEvent is one entry of a scenario trace: a statement the store ran, a
// transaction boundary, or the outcome of a step.
type TraceEvent struct {
	Step     int    `json:"step"`
	Type     string `json:"type"`
	Verb     string `json:"verb,omitempty"`
	SQL      string `json:"sql,omitempty"`
	Bindings []any  `json:"bindings,omitempty"`
	Result   any    `json:"result,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step and assertion matched.
	Pass bool `json:"pass"`

	// Trace holds statements and step outcomes in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds mismatch descriptions. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a mismatch and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Statements returns the SQL of every statement event, in order.
func (r *Result) Statements() []string {
	var out []string
	for _, ev := range r.Trace {
		if ev.Type == EventStatement {
			out = append(out, ev.SQL)
		}
	}
	return out
}
