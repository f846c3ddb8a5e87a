package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/mysqlstore/internal/config"
	"github.com/roach88/mysqlstore/internal/engine"
	"github.com/roach88/mysqlstore/internal/entity"
	"github.com/roach88/mysqlstore/internal/queryir"
	"github.com/roach88/mysqlstore/internal/querysql"
)

// PlannedStatement is one statement of a dry run.
type PlannedStatement struct {
	SQL      string `json:"sql"`      // rendered, with ?? and ? placeholders
	Bindings []any  `json:"bindings"` // identifiers and values in placeholder order
	Expanded string `json:"expanded"` // identifiers quoted, as sent to the driver
	Args     []any  `json:"args"`     // driver arguments
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerbOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sql <verb> <entity>",
		Short: "Print the statements a verb would run",
		Long: `Print the SQL a save, load, list or remove would issue, without
connecting to the database.

Statements that depend on earlier results (the delete after a remove
lookup, the reload after an auto-increment insert) are not shown.

Examples:
  mysqlstore sql list sys/users --query '{"score":{"gt$":2}}'
  mysqlstore sql save sys/users --data '{"email":"a@x"}' --upsert email`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Query, "query", "", "query as JSON")
	cmd.Flags().StringVar(&opts.Data, "data", "", "entity fields as a JSON object (save)")
	cmd.Flags().StringSliceVar(&opts.Upsert, "upsert", nil, "fields that identify an existing row (save)")
	cmd.Flags().StringVar(&opts.ID, "id", "", "id for a newly created entity (save)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "remove every matching entity (remove)")

	return cmd
}

// planConfig is the configured database, or the defaults when none is
// configured: a dry run only needs the codec settings.
func (o *RootOptions) planConfig() (config.Config, error) {
	if o.ConfigPath == "" && o.URL == "" {
		return config.Default(), nil
	}
	return o.loadConfig()
}

func runSQL(opts *VerbOptions, verb, canon string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	cfg, err := opts.planConfig()
	if err != nil {
		return f.Fail(commandError(ErrCodeConfig, "invalid configuration", err))
	}
	reg, err := opts.loadRegistry(cfg)
	if err != nil {
		return f.Fail(commandError(ErrCodeSchema, "failed to load schema", err))
	}
	d, err := reg.Resolve(canon)
	if err != nil {
		return f.Fail(commandError(ErrCodeSchema, "unknown entity", err))
	}

	q, err := opts.parseQuery()
	if err != nil {
		return f.Fail(commandError(ErrCodeQuery, "invalid query", err))
	}

	var ent *entity.Entity
	if verb == engine.VerbSave {
		if opts.Data == "" {
			return f.Fail(commandError(ErrCodeInput, "invalid data", errors.New("save requires --data")))
		}
		data, err := opts.parseData()
		if err != nil {
			return f.Fail(commandError(ErrCodeInput, "invalid data", err))
		}
		ent = opts.newEntity(d, data)
	}

	eng := engine.New(nil, opts.engineOptions(cfg, opts.logger(cmd.ErrOrStderr()))...)
	stmts, err := eng.Plan(verb, d, ent, q)
	if errors.Is(err, engine.ErrNativePlan) {
		planned, err := expandNative(q.Native)
		if err != nil {
			return f.Fail(commandError(ErrCodeQuery, "invalid native query", err))
		}
		return outputPlan(f, []PlannedStatement{planned})
	}
	if err != nil {
		return f.Fail(commandError(ErrCodeQuery, fmt.Sprintf("cannot plan %s", verb), err))
	}

	planned := make([]PlannedStatement, 0, len(stmts))
	for _, stmt := range stmts {
		p, err := renderStatement(stmt)
		if err != nil {
			return f.Fail(commandError(ErrCodeQuery, "cannot render statement", err))
		}
		planned = append(planned, p)
	}
	return outputPlan(f, planned)
}

func renderStatement(stmt queryir.Statement) (PlannedStatement, error) {
	q, err := querysql.Render(stmt)
	if err != nil {
		return PlannedStatement{}, err
	}
	expanded, args, err := querysql.Expand(q.SQL, q.Bindings)
	if err != nil {
		return PlannedStatement{}, err
	}
	return PlannedStatement{SQL: q.SQL, Bindings: q.Bindings, Expanded: expanded, Args: args}, nil
}

func expandNative(n *engine.Native) (PlannedStatement, error) {
	expanded, args, err := querysql.Expand(n.SQL, n.Bindings)
	if err != nil {
		return PlannedStatement{}, err
	}
	return PlannedStatement{SQL: n.SQL, Bindings: n.Bindings, Expanded: expanded, Args: args}, nil
}

func outputPlan(f *OutputFormatter, planned []PlannedStatement) error {
	if f.Format == "json" {
		return f.Success(planned)
	}
	for _, p := range planned {
		if err := writePlanned(f.Writer, p); err != nil {
			return err
		}
	}
	return nil
}

func writePlanned(w io.Writer, p PlannedStatement) error {
	args, err := json.Marshal(p.Args)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, p.Expanded)
	fmt.Fprintf(w, "  args: %s\n", args)
	return nil
}
