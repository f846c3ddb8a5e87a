package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/mysqlstore/internal/entity"
	"github.com/roach88/mysqlstore/internal/store"
)

// Engine implements the entity verbs on top of a Store.
//
// Every verb takes its executor from ctx: inside Engine.Transaction (or
// store.WithTransaction) statements run on that transaction, otherwise on
// the pool. An upsert opens its own transaction unless ctx already carries
// one.
//
// Thread-safety: an Engine holds no mutable state of its own and is safe
// for concurrent use; concurrency is bounded by the store's pool.
type Engine struct {
	store  *store.Store
	codec  entity.Codec
	ids    IDGenerator
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCodec sets the entity codec. The default is inference mode.
func WithCodec(c entity.Codec) Option {
	return func(e *Engine) {
		e.codec = c
	}
}

// WithIDGenerator sets the generator for ids of new entities.
//
// Default: UUIDv7Generator. Use NewFixedGenerator in tests.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithLogger sets the logger operation outcomes are written to.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine over s.
func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		codec:  entity.NewCodec(""),
		ids:    UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the underlying store.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Codec returns the entity codec in use.
func (e *Engine) Codec() entity.Codec {
	return e.codec
}

// Transaction runs fn inside one database transaction. Verbs called with
// the ctx passed to fn join that transaction.
func (e *Engine) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return e.store.WithTransaction(ctx, func(ctx context.Context, _ *store.Executor) error {
		return fn(ctx)
	})
}

func (e *Engine) logOK(ctx context.Context, op string, out any) {
	e.logger.LogAttrs(ctx, slog.LevelDebug, op, slog.String("status", "ok"), slog.Any("entity", out))
}

func failed(op string, d *entity.Descriptor, id any, err error) error {
	return &OperationError{Op: op, Entity: d.Canon(), ID: id, Err: err}
}
