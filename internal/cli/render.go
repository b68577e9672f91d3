package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nestrow/internal/compiler"
	"github.com/roach88/nestrow/internal/config"
	"github.com/roach88/nestrow/internal/querysql"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Columns []string // schema paths spliced in at {columns}
}

// RenderResult is the JSON payload of the render command.
type RenderResult struct {
	Text   string `json:"text"`
	Values []any  `json:"values"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <sql> [args...]",
		Short: "Render query text into SQL and bound values",
		Long: `Render query text the way query sends it to the database, without
running it.

Each ? binds the next arg (integers and floats as numbers, "null" as
NULL, anything else as text), ?? is a literal question mark, and
{columns} is replaced by the column list of the --columns schemas.

Example:
  nestrow render --schema blog.cue --columns Post,Post.author \
    'SELECT {columns} FROM posts p JOIN authors a ON a.id = p.author_id WHERE p.id = ?' 1`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Columns, "columns", nil, "schema paths whose columns replace {columns}")

	return cmd
}

func runRender(opts *RenderOptions, text string, args []string, cmd *cobra.Command) error {
	cfg, err := opts.settings()
	if err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	tpl, err := queryTemplate(cfg, nil, opts.Columns, text, args)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to build query", err)
	}
	q, err := tpl.RenderWith(cfg.PlaceholderStyle())
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to render query", err)
	}

	if opts.Format == "json" {
		return formatter.Success(RenderResult{Text: q.Text, Values: q.Values})
	}

	w := formatter.Writer
	fmt.Fprintln(w, q.Text)
	for i, v := range q.Values {
		fmt.Fprintf(w, "  %d: %#v\n", i+1, v)
	}
	return nil
}

// queryTemplate builds the template for text. schemas are loaded from the
// configured schema path when nil and column paths are given.
func queryTemplate(cfg *config.Config, schemas []compiler.Schema, columnPaths []string, text string, args []string) (*querysql.Template, error) {
	var columns *querysql.Template
	if len(columnPaths) > 0 {
		if schemas == nil {
			var err error
			if schemas, err = LoadSchemas(cfg.Schema); err != nil {
				return nil, err
			}
		}
		transform, err := cfg.CaseTransform()
		if err != nil {
			return nil, err
		}
		if columns, err = columnsFor(schemas, columnPaths, transform); err != nil {
			return nil, err
		}
	}

	tpl, err := buildTemplate(text, columns, args)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeTemplate, Message: err.Error()}
	}
	return tpl, nil
}
