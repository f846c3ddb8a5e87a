package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/mysqlstore/internal/engine"
	"github.com/roach88/mysqlstore/internal/entity"
	"github.com/roach88/mysqlstore/internal/queryir"
)

// VerbOptions holds flags for save, load, list and remove.
type VerbOptions struct {
	*RootOptions
	Data   string   // entity JSON (save)
	Query  string   // query JSON
	Upsert []string // upsert fields (save)
	ID     string   // id for a new entity (save)
	All    bool     // remove every match
	Load   bool     // return the removed entity
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerbOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "save <entity>",
		Short: "Create, update or upsert an entity",
		Long: `Save an entity and print it as reloaded from the database.

Data with an "id" updates that row. Data without one creates a row with a
generated id, or with --id. With --upsert, the row matching those fields is
updated and a new row is inserted only if none matched.

Examples:
  mysqlstore save sys/users --data '{"email":"a@x","score":3}'
  mysqlstore save sys/users --data '{"email":"a@x","score":4}' --upsert email`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Data, "data", "", "entity fields as a JSON object (required)")
	cmd.Flags().StringSliceVar(&opts.Upsert, "upsert", nil, "fields that identify an existing row")
	cmd.Flags().StringVar(&opts.ID, "id", "", "id for a newly created entity")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerbOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <entity>",
		Short: "Load the first entity matching a query",
		Long: `Load the first matching entity, or print (none).

The query is a JSON object of field values and control keys (sort$, skip$,
native$), a bare id, or a list of ids.

Examples:
  mysqlstore load sys/users --query '"u1"'
  mysqlstore load sys/users --query '{"email":"a@x"}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(cmd.Context(), opts, engine.VerbLoad, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Query, "query", "{}", "query as JSON")
	return cmd
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerbOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list <entity>",
		Short: "List entities matching a query",
		Long: `List every matching entity, one JSON object per line.

Examples:
  mysqlstore list sys/users
  mysqlstore list sys/users --query '{"score":{"gt$":2},"sort$":{"score":"desc"},"limit$":10}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(cmd.Context(), opts, engine.VerbList, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Query, "query", "{}", "query as JSON")
	return cmd
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerbOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "remove <entity>",
		Short: "Remove entities matching a query",
		Long: `Remove the first matching entity, or every match with --all.

With --load the removed entity is printed.

Examples:
  mysqlstore remove sys/users --query '"u1"' --load
  mysqlstore remove sys/users --query '{"score":0}' --all`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(cmd.Context(), opts, engine.VerbRemove, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Query, "query", "", "query as JSON (required)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "remove every matching entity")
	cmd.Flags().BoolVar(&opts.Load, "load", false, "print the removed entity")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}

// parseQuery parses --query and folds in --all, --load and --upsert.
func (o *VerbOptions) parseQuery() (engine.Query, error) {
	var q engine.Query
	if o.Query != "" {
		v, err := queryir.ParseJSONValue([]byte(o.Query))
		if err != nil {
			return engine.Query{}, fmt.Errorf("invalid --query JSON: %w", err)
		}
		if q, err = engine.ParseQuery(v); err != nil {
			return engine.Query{}, err
		}
	}
	q.All = q.All || o.All
	q.Load = q.Load || o.Load
	if len(o.Upsert) > 0 {
		q.Upsert = o.Upsert
	}
	return q, nil
}

// parseData parses --data as a JSON object.
func (o *VerbOptions) parseData() (*queryir.Columns, error) {
	data, err := queryir.ParseColumns([]byte(o.Data))
	if err != nil {
		return nil, fmt.Errorf("invalid --data JSON: %w", err)
	}
	return data, nil
}

// newEntity builds the entity to save, carrying --id as its NewID.
func (o *VerbOptions) newEntity(d *entity.Descriptor, data *queryir.Columns) *entity.Entity {
	ent := d.Make(data)
	if o.ID != "" {
		ent.NewID = o.ID
	}
	return ent
}

func runSave(ctx context.Context, opts *VerbOptions, canon string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	data, err := opts.parseData()
	if err != nil {
		return f.Fail(commandError(ErrCodeInput, "invalid data", err))
	}
	q, err := opts.parseQuery()
	if err != nil {
		return f.Fail(commandError(ErrCodeQuery, "invalid query", err))
	}

	s, err := opts.openSession(ctx, cmd.ErrOrStderr())
	if err != nil {
		return f.Fail(err)
	}
	defer s.Close()

	d, err := s.registry.Resolve(canon)
	if err != nil {
		return f.Fail(commandError(ErrCodeSchema, "unknown entity", err))
	}

	out, err := s.engine.Save(ctx, opts.newEntity(d, data), q)
	if err != nil {
		return f.Fail(err)
	}
	return f.Entity(out)
}

func runRead(ctx context.Context, opts *VerbOptions, verb, canon string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	q, err := opts.parseQuery()
	if err != nil {
		return f.Fail(commandError(ErrCodeQuery, "invalid query", err))
	}

	s, err := opts.openSession(ctx, cmd.ErrOrStderr())
	if err != nil {
		return f.Fail(err)
	}
	defer s.Close()

	d, err := s.registry.Resolve(canon)
	if err != nil {
		return f.Fail(commandError(ErrCodeSchema, "unknown entity", err))
	}

	switch verb {
	case engine.VerbLoad:
		out, err := s.engine.Load(ctx, d, q)
		if err != nil {
			return f.Fail(err)
		}
		return f.Entity(out)
	case engine.VerbList:
		out, err := s.engine.List(ctx, d, q)
		if err != nil {
			return f.Fail(err)
		}
		return f.Entities(out)
	default:
		out, err := s.engine.Remove(ctx, d, q)
		if err != nil {
			return f.Fail(err)
		}
		if !q.Load {
			if opts.Format == "json" {
				return f.Success(nil)
			}
			return nil
		}
		return f.Entity(out)
	}
}
