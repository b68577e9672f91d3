package schema

import (
	"fmt"

	"github.com/roach88/nestrow/internal/casing"
	"github.com/roach88/nestrow/internal/colname"
)

// ValidationResult contains the findings of Validate.
type ValidationResult struct {
	// Valid is true when no warnings were produced.
	Valid bool

	// Warnings lists problems that will make decoding fail or produce
	// surprising results for some row sets.
	Warnings []string
}

// Validate checks a root schema for problems that only show up at decode
// time:
//  1. the root is not mappable
//  2. two scalar fields resolve to the same flat column name
//  3. a record that owns collections has no discriminator field
//  4. a collection element has no discriminator field
//
// Validate is a pure function; it never fails, it only reports.
func Validate(root Node, transform casing.Func) ValidationResult {
	v := &validator{
		transform: transform,
		columns:   make(map[string]string),
		warnings:  []string{},
	}
	if !IsMappable(root) {
		v.addWarning("<root>: not mappable (found %s)", KindOf(root))
	} else {
		v.validateRecord(root, "<root>")
	}

	return ValidationResult{
		Valid:    len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

type validator struct {
	transform casing.Func
	columns   map[string]string // flat column -> path that claimed it
	warnings  []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateRecord(n Node, path string) {
	fields, err := FieldsOf(n)
	if err != nil {
		v.addWarning("%s: %v", path, err)
		return
	}
	alias := AliasOf(n)

	hasCollections := false
	for _, f := range fields {
		fieldPath := path + "." + f.Name
		switch {
		case IsCollectionElement(f.Node):
			hasCollections = true
			v.validateCollection(f.Node, fieldPath)
		case IsRecordReference(f.Node):
			v.validateRecord(f.Node, fieldPath)
		default:
			if _, ok := f.Node.(Scalar); !ok {
				v.addWarning("%s: %s field is copied as a plain value", fieldPath, KindOf(f.Node))
			}
			v.claim(colname.Resolve(f.Name, alias, v.transform), fieldPath)
		}
	}

	if hasCollections && !declares(fields, DiscriminatorOf(fields)) {
		v.addWarning("%s: owns collections but has no discriminator field (expected %q)", path, DiscriminatorOf(fields))
	}
}

func (v *validator) validateCollection(n Node, path string) {
	elem, err := ElementOf(n)
	if err != nil {
		v.addWarning("%s: %v", path, err)
		return
	}
	fields, err := FieldsOf(elem)
	if err != nil {
		v.addWarning("%s: %v", path, err)
		return
	}
	if !declares(fields, DiscriminatorOf(fields)) {
		v.addWarning("%s: collection element has no discriminator field (expected %q)", path, DiscriminatorOf(fields))
	}
	v.validateRecord(elem, path+"[]")
}

func (v *validator) claim(column, path string) {
	if prev, ok := v.columns[column]; ok {
		v.addWarning("column %q is produced by both %s and %s", column, prev, path)
		return
	}
	v.columns[column] = path
}

func declares(fields []Field, name string) bool {
	for _, f := range fields {
		if f.Name == name {
			return true
		}
	}
	return false
}
