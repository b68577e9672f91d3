package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/nestrow/internal/casing"
	"github.com/roach88/nestrow/internal/compiler"
	"github.com/roach88/nestrow/internal/querysql"
	"github.com/roach88/nestrow/internal/schema"
)

// ColumnsMarker is replaced by the generated column list in query text.
const ColumnsMarker = "{columns}"

// resolveNode finds the node at a dotted path such as "Post.comments": the
// first segment names a schema, the rest walk its fields. A collection
// resolves to its element.
func resolveNode(schemas []compiler.Schema, path string) (schema.Node, error) {
	segments := strings.Split(path, ".")
	s, err := compiler.Lookup(schemas, segments[0])
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: err.Error()}
	}

	node := s.Node
	for i, seg := range segments[1:] {
		fields, err := schema.FieldsOf(node)
		if err != nil {
			return nil, err
		}
		var next schema.Node
		for _, f := range fields {
			if f.Name == seg {
				next = f.Node
				break
			}
		}
		if next == nil {
			return nil, &LoadError{
				Code:    ErrCodeNotFound,
				Message: fmt.Sprintf("%s has no field %q", strings.Join(segments[:i+1], "."), seg),
			}
		}
		node = next
	}

	if schema.IsCollectionElement(node) {
		return schema.ElementOf(node)
	}
	return node, nil
}

// columnsFor builds the column list for every path, in order.
func columnsFor(schemas []compiler.Schema, paths []string, transform casing.Func) (*querysql.Template, error) {
	nodes := make([]schema.Node, 0, len(paths))
	for _, p := range paths {
		n, err := resolveNode(schemas, p)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return querysql.ColumnsWith(transform, nodes...)
}

// buildTemplate turns query text into a template. Each ? marker binds the
// next arg, ?? is a literal question mark, and ColumnsMarker splices in
// columns.
func buildTemplate(text string, columns *querysql.Template, args []string) (*querysql.Template, error) {
	var segments []string
	var slots []any
	var b strings.Builder
	next := 0

	for i := 0; i < len(text); i++ {
		switch {
		case strings.HasPrefix(text[i:], ColumnsMarker):
			if columns == nil {
				return nil, fmt.Errorf("query uses %s but no columns were selected", ColumnsMarker)
			}
			segments = append(segments, b.String())
			slots = append(slots, columns)
			b.Reset()
			i += len(ColumnsMarker) - 1
		case text[i] == '?' && i+1 < len(text) && text[i+1] == '?':
			b.WriteByte('?')
			i++
		case text[i] == '?':
			if next >= len(args) {
				return nil, fmt.Errorf("query has more ? markers than the %d arg(s) given", len(args))
			}
			segments = append(segments, b.String())
			slots = append(slots, parseArg(args[next]))
			next++
			b.Reset()
		default:
			b.WriteByte(text[i])
		}
	}
	if next != len(args) {
		return nil, fmt.Errorf("query has %d ? marker(s) for %d arg(s)", next, len(args))
	}
	segments = append(segments, b.String())

	return querysql.New(segments, slots...), nil
}

// parseArg binds integers and finite floats as numbers, "null" as NULL and
// everything else as text.
func parseArg(s string) any {
	if s == "null" {
		return nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return s
}
