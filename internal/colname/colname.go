// Package colname derives flat column names from schema field names.
//
// The same resolution is used when building SELECT column lists and when
// reading decoded rows, so labels written by one side are exactly the keys
// looked up by the other.
package colname

import (
	"strings"

	"github.com/roach88/nestrow/internal/casing"
)

// Separator joins a table alias and a column name in a flat column label.
const Separator = "__"

// Resolve returns the flat column name for field.
//
// The case transform (if non-nil) is applied to field only; the alias is
// used verbatim. An empty alias means the column is not aliased.
//
//	snake := casing.New(casing.Camel, casing.Snake).Func()
//	Resolve("someCol", "", nil)    // "someCol"
//	Resolve("someCol", "t", nil)   // "t__someCol"
//	Resolve("someCol", "t", snake) // "t__some_col"
func Resolve(field, alias string, transform casing.Func) string {
	name := transform.Apply(field)
	if alias == "" {
		return name
	}
	return alias + Separator + name
}

// Quote returns ident as a double-quoted SQL identifier, doubling any
// embedded double quotes.
func Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
