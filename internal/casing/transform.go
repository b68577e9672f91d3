package casing

// Transform pairs two parsers. Converting decomposes with one parser and
// reassembles with the other.
type Transform struct {
	Left  Parser
	Right Parser
}

// New creates a Transform from left to right.
//
//	t := casing.New(casing.Camel, casing.Snake)
//	t.LeftToRight("fooBar")  // "foo_bar"
//	t.RightToLeft("foo_bar") // "fooBar"
func New(left, right Parser) Transform {
	return Transform{Left: left, Right: right}
}

// LeftToRight converts an identifier from the left convention to the right one.
func (t Transform) LeftToRight(s string) string {
	return t.Right.String(t.Left.Words(s))
}

// RightToLeft converts an identifier from the right convention to the left one.
func (t Transform) RightToLeft(s string) string {
	return t.Left.String(t.Right.Words(s))
}

// Func returns LeftToRight as a Func. A zero Transform yields nil.
func (t Transform) Func() Func {
	if t.Left == nil || t.Right == nil {
		return nil
	}
	return t.LeftToRight
}

// Between returns the Func converting identifiers named by the from
// convention into the to convention. It returns nil when either name is
// empty or both are the same.
func Between(from, to string) (Func, error) {
	if from == "" || to == "" || from == to {
		return nil, nil
	}
	left, err := Lookup(from)
	if err != nil {
		return nil, err
	}
	right, err := Lookup(to)
	if err != nil {
		return nil, err
	}
	return New(left, right).Func(), nil
}
