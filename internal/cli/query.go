package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/nestrow/internal/store"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Root    string
	Columns []string // defaults to the root schema
	Init    []string // SQL scripts run before the query
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <sql> [args...]",
		Short: "Run a query and decode its rows",
		Long: `Run query text against the configured database and decode the rows
against the --root schema.

Query text follows the render command: ? binds the next arg, ?? is a
literal question mark, and {columns} is replaced by the column list of
the --columns schemas (the root schema when not given). Rows must be
ordered so each root record's rows are contiguous.

Exit codes:
  0 - Rows decoded
  1 - Rows do not fit the schema
  2 - Command error (schema, database, template)

Example:
  nestrow query --driver sqlite3 --dsn blog.db --schema blog.cue \
    --root Post --columns Post,Post.author,Post.comments \
    'SELECT {columns} FROM posts p
     LEFT JOIN authors a ON a.id = p.author_id
     LEFT JOIN comments c ON c.post_id = p.id
     ORDER BY p.id, c.id'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Root, "root", "", "root schema name (required)")
	cmd.Flags().StringSliceVar(&opts.Columns, "columns", nil, "schema paths whose columns replace {columns} (default: the root)")
	cmd.Flags().StringSliceVar(&opts.Init, "init", nil, "SQL script files to run before the query")

	return cmd
}

func runQuery(opts *QueryOptions, text string, args []string, cmd *cobra.Command) error {
	cfg, err := opts.settings()
	if err != nil {
		return err
	}
	formatter := opts.formatter(cmd)
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	if opts.Root == "" {
		return formatter.Fail(ExitCommandError, "failed to load schema", &LoadError{Code: ErrCodeGeneric, Message: "--root is required"})
	}
	schemas, err := LoadSchemas(cfg.Schema)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to load schemas", err)
	}
	root, err := resolveNode(schemas, opts.Root)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to load schema", err)
	}

	columns := opts.Columns
	if len(columns) == 0 {
		columns = []string{opts.Root}
	}
	tpl, err := queryTemplate(cfg, schemas, columns, text, args)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to build query", err)
	}

	storeOpts, err := cfg.StoreOptions()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	storeOpts = append(storeOpts, store.WithLogger(logger))

	// Setup signal handling so a slow query can be interrupted
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Debug("opening database", "driver", cfg.Driver)
	st, err := store.Open(ctx, cfg.Driver, cfg.DSN, storeOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to open database",
			&LoadError{Code: ErrCodeDatabase, Message: err.Error()})
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	for _, path := range opts.Init {
		script, err := os.ReadFile(path)
		if err != nil {
			return formatter.Fail(ExitCommandError, "failed to read init script",
				&LoadError{Code: ErrCodeNotFound, Message: err.Error()})
		}
		if err := st.ExecScript(ctx, string(script)); err != nil {
			return formatter.Fail(ExitCommandError, "init script failed",
				&LoadError{Code: ErrCodeDatabase, Message: err.Error()})
		}
		formatter.VerboseLog("Ran init script %s", path)
	}

	rows, err := st.Rows(ctx, tpl)
	if err != nil {
		return formatter.Fail(ExitCommandError, "query failed",
			&LoadError{Code: ErrCodeDatabase, Message: err.Error()})
	}
	formatter.VerboseLog("Query returned %d row(s)", len(rows))

	transform, err := cfg.CaseTransform()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	results, err := decodeRows(rows, root, transform, logger)
	if err != nil {
		return formatter.Fail(ExitFailure, "decode failed", err)
	}
	return writeResults(formatter, results)
}
