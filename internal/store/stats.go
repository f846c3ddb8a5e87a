package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// QueryStats holds statement counters for a Store.
type QueryStats struct {
	TotalQueries  atomic.Int64
	TotalExecs    atomic.Int64
	TotalDuration atomic.Int64 // nanoseconds
	Tagged        atomic.Int64
	Errors        atomic.Int64
}

// Snapshot returns the current counters.
func (s *QueryStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		Tagged:        s.Tagged.Load(),
		Errors:        s.Errors.Load(),
	}
}

// StatsSnapshot is a point-in-time copy of QueryStats.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	// Tagged counts statements that matched a benchmark rule.
	Tagged int64
	Errors int64
}

// AvgDuration returns the mean statement duration.
func (s StatsSnapshot) AvgDuration() time.Duration {
	total := s.TotalQueries + s.TotalExecs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d execs=%d duration=%s avg=%s tagged=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.AvgDuration(),
		s.Tagged, s.Errors,
	)
}

// benchmarkTag returns the tag of the largest rule whose threshold elapsed
// reached, or "" when none did. rules are sorted ascending by Time.
func (s *Store) benchmarkTag(elapsed time.Duration) string {
	tag := ""
	for _, r := range s.rules {
		if elapsed < r.Time {
			break
		}
		tag = r.Tag
	}
	return tag
}

// record updates counters and writes the statement to the query log.
func (s *Store) record(ctx context.Context, op, sql string, bindings []any, start time.Time, err error) {
	elapsed := time.Since(start)
	if op == opQuery {
		s.stats.TotalQueries.Add(1)
	} else {
		s.stats.TotalExecs.Add(1)
	}
	s.stats.TotalDuration.Add(int64(elapsed))

	attrs := []slog.Attr{
		slog.String("op", op),
		slog.String("sql", sql),
		slog.Any("bindings", bindings),
		slog.Duration("duration", elapsed),
	}
	if tag := s.benchmarkTag(elapsed); tag != "" {
		s.stats.Tagged.Add(1)
		attrs = append(attrs, slog.String("benchmark", tag))
	}

	if err != nil {
		s.stats.Errors.Add(1)
		attrs = append(attrs, slog.String("error", err.Error()))
		s.logger.LogAttrs(ctx, slog.LevelError, "statement failed", attrs...)
		return
	}
	s.logger.LogAttrs(ctx, s.level, "statement", attrs...)
}
