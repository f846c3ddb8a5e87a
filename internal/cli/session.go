package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/mysqlstore/internal/config"
	"github.com/roach88/mysqlstore/internal/engine"
	"github.com/roach88/mysqlstore/internal/entity"
	"github.com/roach88/mysqlstore/internal/schema"
	"github.com/roach88/mysqlstore/internal/store"
)

// session is the state a database command runs with.
type session struct {
	cfg      config.Config
	store    *store.Store
	engine   *engine.Engine
	registry *schema.Registry
	logger   *slog.Logger
}

// Close logs the statement counters (visible with -v) and closes the pool.
func (s *session) Close() error {
	s.logger.Info("query stats", "stats", s.store.Stats().String())
	return s.store.Close()
}

// logger writes to w as text: statements at debug level with -v, only
// warnings and errors otherwise.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig resolves the database config. --url overrides the URL of
// --config.
func (o *RootOptions) loadConfig() (config.Config, error) {
	switch {
	case o.ConfigPath != "":
		cfg, err := config.Load(o.ConfigPath)
		if err != nil {
			return config.Config{}, err
		}
		if o.URL != "" {
			cfg.URL = o.URL
			return cfg.Resolve()
		}
		return cfg, nil
	case o.URL != "":
		return config.Config{URL: o.URL}.Resolve()
	}

	if url := os.Getenv(EnvURL); url != "" {
		return config.Config{URL: url}.Resolve()
	}
	return config.Config{}, fmt.Errorf("no database configured: use --config, --url or %s", EnvURL)
}

// loadRegistry compiles --schema, or returns an empty registry when no
// schema directory was given. Undeclared entities use cfg.AutoIncrement.
func (o *RootOptions) loadRegistry(cfg config.Config) (*schema.Registry, error) {
	reg := schema.NewRegistry()
	if o.SchemaDir != "" {
		var err error
		if reg, err = schema.LoadDir(o.SchemaDir); err != nil {
			return nil, err
		}
	}
	reg.AutoIncrement = cfg.AutoIncrement
	return reg, nil
}

func (o *RootOptions) engineOptions(cfg config.Config, logger *slog.Logger) []engine.Option {
	opts := []engine.Option{
		engine.WithCodec(entity.NewCodec(cfg.TypeColumn)),
		engine.WithLogger(logger),
	}
	if o.IDs != nil {
		opts = append(opts, engine.WithIDGenerator(o.IDs))
	}
	return opts
}

// openSession loads config and schema and connects. Config and schema
// errors exit with code 2, connection errors with code 1.
func (o *RootOptions) openSession(ctx context.Context, stderr io.Writer) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, commandError(ErrCodeConfig, "invalid configuration", err)
	}

	reg, err := o.loadRegistry(cfg)
	if err != nil {
		return nil, commandError(ErrCodeSchema, "failed to load schema", err)
	}

	logger := o.logger(stderr)
	open := o.OpenStore
	if open == nil {
		open = store.Open
	}
	st, err := open(ctx, cfg, store.WithLogger(logger))
	if err != nil {
		return nil, databaseError(fmt.Sprintf("cannot open %s", cfg.Redacted()), err)
	}

	return &session{
		cfg:      cfg,
		store:    st,
		engine:   engine.New(st, o.engineOptions(cfg, logger)...),
		registry: reg,
		logger:   logger,
	}, nil
}
