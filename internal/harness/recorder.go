package harness

import (
	"context"
	"log/slog"
	"sync"
)

// recorder is an slog.Handler that turns the store's statement and
// transaction records into trace events. Everything else is dropped.
type recorder struct {
	mu     sync.Mutex
	step   int
	events []TraceEvent
}

func (r *recorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *recorder) Handle(_ context.Context, rec slog.Record) error {
	ev := TraceEvent{}
	switch rec.Message {
	case "statement", "statement failed":
		ev.Type = EventStatement
		rec.Attrs(func(a slog.Attr) bool {
			switch a.Key {
			case "sql":
				ev.SQL = a.Value.String()
			case "bindings":
				ev.Bindings, _ = a.Value.Any().([]any)
			case "error":
				ev.Error = a.Value.String()
			}
			return true
		})
	case "transaction begin":
		ev.Type = EventBegin
	case "transaction commit":
		ev.Type = EventCommit
	case "transaction rollback":
		ev.Type = EventRollback
	default:
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	ev.Step = r.step
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) WithAttrs([]slog.Attr) slog.Handler { return r }
func (r *recorder) WithGroup(string) slog.Handler      { return r }

// startStep attributes subsequent records to step i.
func (r *recorder) startStep(i int) {
	r.mu.Lock()
	r.step = i
	r.mu.Unlock()
}

func (r *recorder) add(ev TraceEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) trace() []TraceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TraceEvent(nil), r.events...)
}
