package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/nestrow/internal/casing"
	"github.com/roach88/nestrow/internal/mapper"
	"github.com/roach88/nestrow/internal/rowjson"
	"github.com/roach88/nestrow/internal/schema"
)

// DecodeOptions holds flags for the decode command.
type DecodeOptions struct {
	*RootOptions
	Root       string
	RowsFormat string // format of rows read from stdin
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode <rows-file>",
		Short: "Decode a row fixture into nested results",
		Long: `Decode a JSON or YAML list of flat rows against a schema and print
the nested results as canonical JSON.

Use "-" to read rows from stdin.

Exit codes:
  0 - Rows decoded
  1 - Rows do not fit the schema (null discriminator, unmappable root)
  2 - Command error (schema does not compile, rows file unreadable, etc.)

Examples:
  nestrow decode --schema blog.cue --root Post rows.json
  psql -c '...' --json | nestrow decode --root Post -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Root, "root", "", "root schema name (required)")
	cmd.Flags().StringVar(&opts.RowsFormat, "rows-format", string(rowjson.FormatJSON), "format of rows read from stdin (json|yaml)")

	return cmd
}

func runDecode(opts *DecodeOptions, rowsPath string, cmd *cobra.Command) error {
	cfg, err := opts.settings()
	if err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	root, err := LoadRoot(cfg.Schema, opts.Root)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to load schema", err)
	}

	var rows []mapper.Row
	if rowsPath == "-" {
		rows, err = rowjson.ReadRows(cmd.InOrStdin(), rowjson.Format(opts.RowsFormat))
	} else {
		rows, err = rowjson.LoadRows(rowsPath)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to read rows",
			&LoadError{Code: ErrCodeRows, Message: err.Error()})
	}
	formatter.VerboseLog("Read %d row(s)", len(rows))

	transform, err := cfg.CaseTransform()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	results, err := decodeRows(rows, root.Node, transform, newLogger(cmd.ErrOrStderr(), opts.Verbose))
	if err != nil {
		return formatter.Fail(ExitFailure, "decode failed", err)
	}

	return writeResults(formatter, results)
}

func decodeRows(rows []mapper.Row, root schema.Node, transform casing.Func, logger *slog.Logger) ([]mapper.Result, error) {
	m := mapper.New(mapper.WithCaseTransform(transform), mapper.WithLogger(logger))
	return m.Decode(rows, root)
}

// writeResults prints results as canonical JSON, indented in text mode.
func writeResults(f *OutputFormatter, results []mapper.Result) error {
	if results == nil {
		results = []mapper.Result{}
	}
	if f.Format == "json" {
		data, err := rowjson.Marshal(results)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to encode results", err)
		}
		return f.Success(json.RawMessage(data))
	}

	data, err := rowjson.MarshalIndent(results, "  ")
	if err != nil {
		return WrapExitError(ExitFailure, "failed to encode results", err)
	}
	if _, err := fmt.Fprintln(f.Writer, string(data)); err != nil {
		return err
	}
	return nil
}
