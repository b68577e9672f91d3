package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/nestrow/internal/casing"
	"github.com/roach88/nestrow/internal/colname"
	"github.com/roach88/nestrow/internal/schema"
)

// Columns builds a SELECT column list for nodes, in order.
//
// Unaliased fields are emitted as "col", aliased ones as
// "alias"."col" AS "alias__col". Fields that are 1:1 or 1:n references are
// skipped; select them with their own Columns call. The labels are the
// column names mapper.Decode looks up for the same nodes.
func Columns(nodes ...schema.Node) (*Template, error) {
	return ColumnsWith(nil, nodes...)
}

// ColumnsWith is Columns with a case transform applied to field names.
func ColumnsWith(transform casing.Func, nodes ...schema.Node) (*Template, error) {
	var cols []string
	for i, n := range nodes {
		if !schema.IsMappable(n) {
			return nil, &schema.SchemaError{
				Path:    fmt.Sprintf("columns[%d]", i),
				Kind:    schema.KindOf(n),
				Message: "not mappable",
			}
		}
		fields, err := schema.FieldsOf(n)
		if err != nil {
			return nil, err
		}
		alias := schema.AliasOf(n)

		for _, f := range fields {
			if schema.IsRecordReference(f.Node) || schema.IsCollectionElement(f.Node) {
				continue
			}
			if alias == "" {
				cols = append(cols, colname.Quote(transform.Apply(f.Name)))
				continue
			}
			cols = append(cols, colname.Quote(alias)+"."+colname.Quote(transform.Apply(f.Name))+
				" AS "+colname.Quote(colname.Resolve(f.Name, alias, transform)))
		}
	}
	return New([]string{strings.Join(cols, ", ")}), nil
}

// MustColumns is like Columns but panics on error.
func MustColumns(nodes ...schema.Node) *Template {
	t, err := Columns(nodes...)
	if err != nil {
		panic(err)
	}
	return t
}
