package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nestrow/internal/compiler"
	"github.com/roach88/nestrow/internal/schema"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Root   string // only validate this schema
	Strict bool   // warnings fail the command
}

// SchemaReport is the validation outcome for one schema.
type SchemaReport struct {
	Name     string   `json:"name"`
	Valid    bool     `json:"valid"`
	Warnings []string `json:"warnings,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool           `json:"valid"`
	Schemas []SchemaReport `json:"schemas"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [schema-path]",
		Short: "Check schemas for problems that show up at decode time",
		Long: `Compile CUE schemas and check each one for problems that only
surface when rows are decoded: roots that are not mappable, two fields
resolving to the same column, and collections without a discriminator.

The schema path defaults to the configured schema.

Exit codes:
  0 - Schemas compiled (warnings are reported but do not fail unless --strict)
  1 - Warnings found with --strict
  2 - Schemas did not compile`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Root, "root", "", "validate only this schema")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail when warnings are found")

	return cmd
}

func runValidate(opts *ValidateOptions, args []string, cmd *cobra.Command) error {
	cfg, err := opts.settings()
	if err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	path := cfg.Schema
	if len(args) == 1 {
		path = args[0]
	}

	schemas, err := LoadSchemas(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to load schemas", err)
	}
	if opts.Root != "" {
		s, err := compiler.Lookup(schemas, opts.Root)
		if err != nil {
			return formatter.Fail(ExitCommandError, "failed to load schemas", &LoadError{Code: ErrCodeNotFound, Message: err.Error()})
		}
		schemas = []compiler.Schema{s}
	}
	formatter.VerboseLog("Loaded %d schema(s) from %s", len(schemas), path)

	transform, err := cfg.CaseTransform()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	result := ValidationResult{Valid: true, Schemas: make([]SchemaReport, 0, len(schemas))}
	for _, s := range schemas {
		formatter.VerboseLog("Validating schema: %s", s.Name)
		v := schema.Validate(s.Node, transform)
		result.Schemas = append(result.Schemas, SchemaReport{
			Name:     s.Name,
			Valid:    v.Valid,
			Warnings: v.Warnings,
		})
		result.Valid = result.Valid && v.Valid
	}

	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		outputValidateText(formatter, result)
	}

	if opts.Strict && !result.Valid {
		return NewExitError(ExitFailure, "schema validation produced warnings")
	}
	return nil
}

func outputValidateText(f *OutputFormatter, result ValidationResult) {
	w := f.Writer
	warnings := 0
	for _, s := range result.Schemas {
		if s.Valid {
			fmt.Fprintf(w, "✓ %s\n", s.Name)
			continue
		}
		fmt.Fprintf(w, "⚠ %s\n", s.Name)
		for _, msg := range s.Warnings {
			fmt.Fprintf(w, "  %s\n", msg)
		}
		warnings += len(s.Warnings)
	}

	fmt.Fprintln(w)
	if warnings == 0 {
		fmt.Fprintf(w, "All %d schema(s) valid\n", len(result.Schemas))
		return
	}
	fmt.Fprintf(w, "%d warning(s) in %d schema(s)\n", warnings, len(result.Schemas))
}
