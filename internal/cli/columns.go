package cli

import (
	"github.com/spf13/cobra"
)

// ColumnsResult is the JSON payload of the columns command.
type ColumnsResult struct {
	Columns string `json:"columns"`
}

// NewColumnsCommand creates the columns command.
func NewColumnsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "columns <schema-path>...",
		Short: "Print the SELECT column list for schemas",
		Long: `Print the column list that selects the scalar fields of each schema
under the labels decode expects.

A path names a schema, optionally followed by dotted field names to
reach a nested record or collection. References are not expanded;
list them as their own paths.

Example:
  nestrow columns --schema blog.cue Post Post.author Post.comments`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runColumns(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runColumns(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	cfg, err := opts.settings()
	if err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	schemas, err := LoadSchemas(cfg.Schema)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to load schemas", err)
	}
	transform, err := cfg.CaseTransform()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	columns, err := columnsFor(schemas, paths, transform)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to build columns", err)
	}

	// Column lists carry no parameters.
	text := columns.String()
	if opts.Format == "json" {
		return formatter.Success(ColumnsResult{Columns: text})
	}
	return formatter.Success(text)
}
