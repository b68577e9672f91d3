// Package compiler turns CUE schema descriptions into schema.Node trees.
//
// A schema file declares named schemas under the top-level "schema" struct:
//
//	schema: Post: {
//		alias: "p"
//		fields: {
//			id:       "id"
//			title:    "scalar"
//			author:   {alias: "a", fields: {id: "id", name: "scalar"}}
//			comments: {list: {alias: "c", fields: {id: "id", body: "scalar"}}}
//		}
//	}
//
// Field order follows declaration order in the CUE source.
package compiler

import (
	"fmt"
	"sort"

	"cuelang.org/go/cue"

	"github.com/roach88/nestrow/internal/schema"
)

// Field kinds written as plain strings.
const (
	KindScalar = "scalar"
	KindID     = "id"
)

// Schema is a compiled named schema.
type Schema struct {
	Name string
	Node schema.Node
}

// CompileSchema compiles a single schema value, e.g.
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`schema: Post: { fields: { id: "id" } }`)
//	node, err := CompileSchema(v.LookupPath(cue.ParsePath("schema.Post")))
func CompileSchema(v cue.Value) (schema.Node, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if !v.Exists() {
		return nil, &CompileError{Field: "schema", Message: "schema value does not exist"}
	}
	return compileNode(v, "schema")
}

// CompileAll compiles every schema declared under the top-level "schema"
// struct of v. Schemas are returned sorted by name.
func CompileAll(v cue.Value) ([]Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	schemasVal := v.LookupPath(cue.ParsePath("schema"))
	if !schemasVal.Exists() {
		return nil, &CompileError{Field: "schema", Message: "no schema struct found", Pos: v.Pos()}
	}

	iter, err := schemasVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []Schema
	for iter.Next() {
		name := iter.Selector().Unquoted()
		node, err := compileNode(iter.Value(), "schema."+name)
		if err != nil {
			return nil, err
		}
		out = append(out, Schema{Name: name, Node: node})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// compileNode compiles a struct node: one of fields, list or and, with an
// optional alias.
func compileNode(v cue.Value, path string) (schema.Node, error) {
	if v.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("expected a struct with fields, list or and; got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}

	var (
		node  schema.Node
		alias string
		kinds int
	)

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		label := iter.Selector().Unquoted()
		val := iter.Value()

		switch label {
		case "alias":
			alias, err = val.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			if alias == "" {
				return nil, &CompileError{Field: path + ".alias", Message: "alias must not be empty", Pos: val.Pos()}
			}
		case "fields":
			kinds++
			node, err = compileRecord(val, path+".fields")
		case "list":
			kinds++
			var elem schema.Node
			elem, err = compileNode(val, path+".list")
			if err == nil {
				node = schema.ListOf(elem)
			}
		case "and":
			kinds++
			node, err = compileIntersection(val, path+".and")
		default:
			return nil, &CompileError{
				Field:   path + "." + label,
				Message: "unknown key (want alias, fields, list or and)",
				Pos:     val.Pos(),
			}
		}
		if err != nil {
			return nil, err
		}
	}

	if kinds != 1 {
		return nil, &CompileError{
			Field:   path,
			Message: "exactly one of fields, list or and is required",
			Pos:     v.Pos(),
		}
	}
	if alias != "" {
		return schema.As(alias, node), nil
	}
	return node, nil
}

func compileRecord(v cue.Value, path string) (schema.Node, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []schema.Field
	discriminator := ""
	for iter.Next() {
		name := iter.Selector().Unquoted()
		f, err := compileField(name, iter.Value(), path+"."+name)
		if err != nil {
			return nil, err
		}
		if f.Discriminator {
			if discriminator != "" {
				return nil, &CompileError{
					Field:   path + "." + name,
					Message: fmt.Sprintf("second discriminator; %q is already marked", discriminator),
					Pos:     iter.Value().Pos(),
				}
			}
			discriminator = name
		}
		fields = append(fields, f)
	}
	return schema.R(fields...), nil
}

func compileField(name string, v cue.Value, path string) (schema.Field, error) {
	if v.IncompleteKind() == cue.StringKind {
		kind, err := v.String()
		if err != nil {
			return schema.Field{}, formatCUEError(err)
		}
		switch kind {
		case KindScalar:
			return schema.F(name, schema.Scalar{}), nil
		case KindID:
			return schema.ID(name), nil
		default:
			return schema.Field{}, &CompileError{
				Field:   path,
				Message: fmt.Sprintf("unknown field kind %q (want %q or %q)", kind, KindScalar, KindID),
				Pos:     v.Pos(),
			}
		}
	}

	node, err := compileNode(v, path)
	if err != nil {
		return schema.Field{}, err
	}
	return schema.F(name, node), nil
}

func compileIntersection(v cue.Value, path string) (schema.Node, error) {
	list, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var parts []schema.Node
	for i := 0; list.Next(); i++ {
		part, err := compileNode(list.Value(), fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return nil, &CompileError{Field: path, Message: "and needs at least one part", Pos: v.Pos()}
	}
	return schema.And(parts...), nil
}
