package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-sql-driver/mysql"

	"github.com/roach88/mysqlstore/internal/config"
	"github.com/roach88/mysqlstore/internal/querysql"
)

// Store owns the connection pool and runs rendered statements against it.
//
// The pool (*sql.DB) is the only shared mutable state and is safe for
// concurrent use. Statements run either directly on the pool (Executor) or
// on one connection inside WithTransaction.
type Store struct {
	db       *sql.DB
	compiler *querysql.Compiler
	logger   *slog.Logger
	level    slog.Level
	rules    []config.BenchmarkRule
	stats    *QueryStats
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger statements are written to.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithQueryLogLevel sets the level successful statements are logged at.
// Failed statements are always logged at error level.
func WithQueryLogLevel(level slog.Level) Option {
	return func(s *Store) {
		s.level = level
	}
}

// WithBenchmark sets the rules used to tag statements by elapsed time.
func WithBenchmark(rules []config.BenchmarkRule) Option {
	return func(s *Store) {
		sorted := make([]config.BenchmarkRule, len(rules))
		copy(sorted, rules)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Time < sorted[j].Time
		})
		s.rules = sorted
	}
}

// New wraps an already opened pool.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:       db,
		compiler: querysql.NewCompiler(),
		logger:   slog.Default(),
		level:    slog.LevelDebug,
		stats:    &QueryStats{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to MySQL using cfg and verifies the connection.
//
// The pool is capped at cfg.PoolSize open connections. cfg's log level and
// benchmark rules are applied before opts, so opts win.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*Store, error) {
	connector, err := mysql.NewConnector(cfg.MySQL())
	if err != nil {
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	db := sql.OpenDB(connector)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.PoolSize)
	db.SetMaxIdleConns(cfg.PoolSize)

	base := []Option{
		WithQueryLogLevel(cfg.LogLevel()),
		WithBenchmark(cfg.Benchmark),
	}
	return New(db, append(base, opts...)...), nil
}

// Close closes the pool.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Stats returns a snapshot of statement counters.
func (s *Store) Stats() StatsSnapshot {
	return s.stats.Snapshot()
}

// Executor returns an executor bound to the pool. Each statement may run on
// a different pooled connection.
func (s *Store) Executor() *Executor {
	return &Executor{store: s, conn: s.db}
}
