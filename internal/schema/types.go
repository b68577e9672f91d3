package schema

// Node is a schema node.
//
// This is a sealed interface: the marker method keeps implementations inside
// this package, which makes type switches over Scalar, Record, Collection,
// Intersection and Alias exhaustive.
type Node interface {
	schemaNode()
}

// Scalar is a leaf value copied from a single column.
type Scalar struct{}

func (Scalar) schemaNode() {}

// Field is a named member of a Record.
type Field struct {
	Name string
	Node Node

	// Discriminator marks the field whose value identifies the record.
	Discriminator bool
}

// Record is an ordered set of fields. Field order is declaration order and
// determines column list order.
type Record struct {
	Fields []Field
}

func (Record) schemaNode() {}

// Collection is a 1:n reference. Element must be record-like (a Record,
// an Intersection, or an Alias of either).
type Collection struct {
	Element Node
}

func (Collection) schemaNode() {}

// Intersection merges the fields of record-like parts from left to right.
// A later part silently replaces an earlier field with the same name.
type Intersection struct {
	Parts []Node
}

func (Intersection) schemaNode() {}

// Alias tags a Record or Collection with the SQL table alias its columns
// are selected under. Columns are then labelled "<alias>__<column>".
type Alias struct {
	Name string
	Node Node
}

func (Alias) schemaNode() {}

// R builds a Record from fields.
func R(fields ...Field) Record {
	return Record{Fields: fields}
}

// F builds a field.
func F(name string, node Node) Field {
	return Field{Name: name, Node: node}
}

// ID builds a scalar field marked as the discriminator.
func ID(name string) Field {
	return Field{Name: name, Node: Scalar{}, Discriminator: true}
}

// ListOf builds a Collection of elem.
func ListOf(elem Node) Collection {
	return Collection{Element: elem}
}

// As wraps node with a table alias.
func As(alias string, node Node) Alias {
	return Alias{Name: alias, Node: node}
}

// And builds an Intersection of parts.
func And(parts ...Node) Intersection {
	return Intersection{Parts: parts}
}

// DefaultDiscriminator is the field used when a record marks none.
const DefaultDiscriminator = "id"
