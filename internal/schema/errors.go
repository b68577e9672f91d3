package schema

import (
	"errors"
	"fmt"
)

// SchemaError reports a schema node that cannot be used where it was found,
// such as a scalar given as the root of a decode.
//
// Schema errors are caller contract violations and are never retried.
type SchemaError struct {
	// Path locates the node ("<root>", "<root>.comments", ...).
	Path string

	// Kind is the variant that was found (e.g. "scalar").
	Kind string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("schema: %s: %s (found %s)", e.Path, e.Message, e.Kind)
	}
	return fmt.Sprintf("schema: %s (found %s)", e.Message, e.Kind)
}

// IsSchemaError reports whether err is or wraps a *SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// KindOf names the variant of n for diagnostics.
func KindOf(n Node) string {
	switch n := n.(type) {
	case nil:
		return "nil"
	case Scalar:
		return "scalar"
	case Record:
		return "record"
	case Collection:
		return "collection"
	case Intersection:
		return "intersection"
	case Alias:
		return "alias(" + KindOf(n.Node) + ")"
	default:
		return fmt.Sprintf("%T", n)
	}
}
