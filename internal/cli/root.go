package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/nestrow/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	// Config is resolved before any subcommand runs. Subcommands built on
	// their own (as in tests) fall back to loading it on first use.
	Config *config.Config
}

// NewRootCommand creates the root command for the nestrow CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "nestrow",
		Short: "nestrow - nested results from flat SQL rows",
		Long: `Decode flat SQL result rows into nested records and collections.

Schemas are declared in CUE. Aliased column labels ("p__id") tie columns
to the records they belong to, and identity fields group joined rows
into collections.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigFile, cmd.Flags())
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid configuration", err)
			}
			opts.Config = cfg
			opts.Verbose = cfg.Verbose
			opts.Format = cfg.Format
			return nil
		},
	}

	defaults := config.Defaults()

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default ./"+config.DefaultFile+" if present)")
	flags.String("driver", fmt.Sprint(defaults["driver"]), "database driver (sqlite3|pgx)")
	flags.String("dsn", fmt.Sprint(defaults["dsn"]), "data source name")
	flags.String("schema", "", "CUE schema file or directory")
	flags.String("field-case", "", "casing of schema field names (camel|pascal|snake)")
	flags.String("column-case", "", "casing of database columns (camel|pascal|snake)")
	flags.String("placeholder", fmt.Sprint(defaults["placeholder"]), "parameter placeholder style (dollar|question)")

	// Add subcommands
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewDecodeCommand(opts))
	cmd.AddCommand(NewColumnsCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// settings returns the resolved configuration.
func (o *RootOptions) settings() (*config.Config, error) {
	if o.Config != nil {
		return o.Config, nil
	}
	cfg, err := config.Load(o.ConfigFile, nil)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	cfg.Verbose = cfg.Verbose || o.Verbose
	if o.Format != "" {
		cfg.Format = o.Format
	}
	o.Config = cfg
	return cfg, nil
}

// formatter builds the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// newLogger logs to w at debug level when verbose, warnings only otherwise.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}
