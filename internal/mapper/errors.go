package mapper

import (
	"errors"
	"fmt"

	"github.com/roach88/nestrow/internal/schema"
)

// DiscriminatorError reports a null (or missing) identity column on a row
// where collections have to be grouped under that identity.
//
// It signals a mismatch between rows and schema, for example a LEFT JOIN
// parent without a discriminator or a schema that forgot to mark one.
type DiscriminatorError struct {
	// Row is the index of the offending row.
	Row int

	// Column is the flat column name that held null.
	Column string
}

// Error implements the error interface.
func (e *DiscriminatorError) Error() string {
	return fmt.Sprintf("null value in discriminator column while mapping collection (row=%d, column=%s)", e.Row, e.Column)
}

// RootUnmappableError reports a root row that decoded to null: every column
// the root record declares was null or absent.
type RootUnmappableError struct {
	// Row is the index of the row that opened the root.
	Row int
}

// Error implements the error interface.
func (e *RootUnmappableError) Error() string {
	return fmt.Sprintf("root record not mappable from row %d: all columns null or missing", e.Row)
}

// IsDiscriminatorError returns true if err is or wraps a *DiscriminatorError.
func IsDiscriminatorError(err error) bool {
	var de *DiscriminatorError
	return errors.As(err, &de)
}

// IsRootUnmappableError returns true if err is or wraps a *RootUnmappableError.
func IsRootUnmappableError(err error) bool {
	var re *RootUnmappableError
	return errors.As(err, &re)
}

// IsSchemaError returns true if err is or wraps a *schema.SchemaError.
func IsSchemaError(err error) bool {
	return schema.IsSchemaError(err)
}
