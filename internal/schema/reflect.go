package schema

// IsMappable reports whether n can be the root of a decode: a Record, an
// Intersection, or an Alias of a record-like node or of a Collection.
func IsMappable(n Node) bool {
	switch n := n.(type) {
	case Record, Intersection:
		return true
	case Alias:
		return isRecordLike(n.Node) || IsCollectionElement(n.Node)
	default:
		return false
	}
}

// IsRecordReference reports whether n, used as a field, is a 1:1 reference
// decoded from the same physical row as its parent.
func IsRecordReference(n Node) bool {
	return isRecordLike(n)
}

// IsCollectionElement reports whether n, used as a field, is a 1:n reference:
// a Collection of a record-like element, possibly wrapped in an Alias.
func IsCollectionElement(n Node) bool {
	switch n := n.(type) {
	case Collection:
		return isRecordLike(n.Element)
	case Alias:
		if c, ok := n.Node.(Collection); ok {
			return isRecordLike(c.Element)
		}
	}
	return false
}

func isRecordLike(n Node) bool {
	switch n := n.(type) {
	case Record, Intersection:
		return true
	case Alias:
		switch n.Node.(type) {
		case Record, Intersection:
			return true
		}
	}
	return false
}

// FieldsOf returns the fields of n, unwrapping Alias and Collection and
// merging Intersection parts left to right. On a name collision the later
// field replaces the earlier one but keeps the earlier position.
func FieldsOf(n Node) ([]Field, error) {
	return fieldsOf(n, "<root>")
}

func fieldsOf(n Node, path string) ([]Field, error) {
	switch n := n.(type) {
	case Record:
		return n.Fields, nil
	case Alias:
		return fieldsOf(n.Node, path)
	case Collection:
		return fieldsOf(n.Element, path)
	case Intersection:
		var merged []Field
		index := make(map[string]int)
		for _, part := range n.Parts {
			fields, err := fieldsOf(part, path)
			if err != nil {
				return nil, err
			}
			for _, f := range fields {
				if i, ok := index[f.Name]; ok {
					merged[i] = f
					continue
				}
				index[f.Name] = len(merged)
				merged = append(merged, f)
			}
		}
		return merged, nil
	default:
		return nil, &SchemaError{
			Path:    path,
			Kind:    KindOf(n),
			Message: "cannot determine record fields",
		}
	}
}

// AliasOf returns the table alias attached to n, or "" if there is none.
// For a Collection the alias of its element is returned.
func AliasOf(n Node) string {
	switch n := n.(type) {
	case Alias:
		return n.Name
	case Collection:
		if a, ok := n.Element.(Alias); ok {
			return a.Name
		}
	}
	return ""
}

// DiscriminatorOf returns the name of the marked discriminator field, or
// DefaultDiscriminator when no field is marked.
func DiscriminatorOf(fields []Field) string {
	for _, f := range fields {
		if f.Discriminator {
			return f.Name
		}
	}
	return DefaultDiscriminator
}

// ElementOf returns the record-like element of a collection reference. An
// alias wrapping the whole collection is moved onto the element, so the
// element decodes with the right column prefix.
func ElementOf(n Node) (Node, error) {
	switch n := n.(type) {
	case Collection:
		if isRecordLike(n.Element) {
			return n.Element, nil
		}
	case Alias:
		if c, ok := n.Node.(Collection); ok && isRecordLike(c.Element) {
			return Alias{Name: n.Name, Node: c.Element}, nil
		}
	}
	return nil, &SchemaError{
		Kind:    KindOf(n),
		Message: "not a collection of records",
	}
}
