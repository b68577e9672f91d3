// Package querysql composes parameterized SQL from nested template fragments.
//
// A Template is an immutable list of literal segments interleaved with slots.
// Rendering flattens nested templates depth-first into a single text with one
// shared parameter list, so placeholder numbers always follow emission order:
//
//	where := querysql.Q("a = ?", 1)
//	q := querysql.Q("SELECT * FROM foo WHERE ? AND b = ?", where, 2).MustRender()
//	// q.Text   == "SELECT * FROM foo WHERE a = $1 AND b = $2"
//	// q.Values == []any{1, 2}
//
// Values are never interpolated into the text.
package querysql

import (
	"fmt"
	"strconv"
	"strings"
)

// Projection is a slot that maps a future override to the value actually
// bound. A Projection that is never overridden cannot be rendered.
type Projection func(any) any

type unset struct{}

// Unset is the override that leaves a slot untouched.
var Unset any = unset{}

// Query is a rendered template.
type Query struct {
	Text   string
	Values []any
}

// Template is an immutable query fragment. The zero value is not usable;
// build templates with New, Q or Join.
type Template struct {
	segments []string
	slots    []any
}

// New builds a template from literal segments and the slots between them.
// It panics unless len(segments) == len(slots)+1.
//
// A slot holding a *Template is spliced in when rendering, a Projection (or
// a plain func(any) any) waits for an override, and anything else is bound
// as a parameter value.
func New(segments []string, slots ...any) *Template {
	if len(segments) != len(slots)+1 {
		panic(fmt.Sprintf("querysql: %d segments for %d slots", len(segments), len(slots)))
	}
	t := &Template{
		segments: append([]string(nil), segments...),
		slots:    make([]any, len(slots)),
	}
	for i, s := range slots {
		t.slots[i] = normalize(s)
	}
	return t
}

// Q builds a template from text with ? markers, one per slot. A doubled ??
// is a literal question mark. It panics if the marker count does not match
// the number of slots.
func Q(text string, slots ...any) *Template {
	var segments []string
	var b strings.Builder
	for i := 0; i < len(text); i++ {
		if text[i] != '?' {
			b.WriteByte(text[i])
			continue
		}
		if i+1 < len(text) && text[i+1] == '?' {
			b.WriteByte('?')
			i++
			continue
		}
		segments = append(segments, b.String())
		b.Reset()
	}
	segments = append(segments, b.String())

	if len(segments) != len(slots)+1 {
		panic(fmt.Sprintf("querysql: %q has %d markers for %d slots", text, len(segments)-1, len(slots)))
	}
	return New(segments, slots...)
}

// Join concatenates parts with sep between them. The result has one nested
// slot per part.
func Join(sep string, parts ...*Template) *Template {
	if len(parts) == 0 {
		return New([]string{""})
	}
	segments := make([]string, len(parts)+1)
	for i := 1; i < len(parts); i++ {
		segments[i] = sep
	}
	slots := make([]any, len(parts))
	for i, p := range parts {
		slots[i] = p
	}
	return New(segments, slots...)
}

func normalize(v any) any {
	if f, ok := v.(func(any) any); ok {
		return Projection(f)
	}
	return v
}

// WithOverrides returns a copy of t with slots replaced positionally.
//
// Unset leaves a slot as it is. Overriding a Projection slot binds the
// projected value. A *Template override (or projection result) becomes a
// nested fragment. Overrides beyond the number of slots are ignored.
// t itself is never modified.
func (t *Template) WithOverrides(overrides ...any) *Template {
	out := &Template{
		segments: t.segments,
		slots:    append([]any(nil), t.slots...),
	}
	for i, o := range overrides {
		if i >= len(out.slots) {
			break
		}
		if _, skip := o.(unset); skip {
			continue
		}
		if p, ok := out.slots[i].(Projection); ok {
			o = p(o)
		}
		out.slots[i] = normalize(o)
	}
	return out
}

// Slots returns the number of slots in t, not counting nested ones.
func (t *Template) Slots() int {
	return len(t.slots)
}

// Render flattens t with $n placeholders.
func (t *Template) Render() (Query, error) {
	return t.RenderWith(Dollar)
}

// RenderWith flattens t using the given placeholder style.
func (t *Template) RenderWith(p Placeholder) (Query, error) {
	r := &renderer{placeholder: p, values: []any{}}
	if err := r.flatten(t); err != nil {
		return Query{}, err
	}
	return Query{Text: r.text.String(), Values: r.values}, nil
}

// MustRender is like Render but panics on error. Use it for templates whose
// slots are all known when the program is written.
func (t *Template) MustRender() Query {
	q, err := t.Render()
	if err != nil {
		panic(err)
	}
	return q
}

// String returns the rendered text, or a description of the render error.
func (t *Template) String() string {
	q, err := t.Render()
	if err != nil {
		return "!(" + err.Error() + ")"
	}
	return q.Text
}

type renderer struct {
	placeholder Placeholder
	text        strings.Builder
	values      []any
	depth       int
}

func (r *renderer) flatten(t *Template) error {
	r.text.WriteString(t.segments[0])
	for i, slot := range t.slots {
		switch s := slot.(type) {
		case *Template:
			if s == nil {
				return &UnresolvedSlotError{Index: i, Depth: r.depth, Reason: "nil template"}
			}
			r.depth++
			if err := r.flatten(s); err != nil {
				return err
			}
			r.depth--
		case Projection:
			return &UnresolvedSlotError{Index: i, Depth: r.depth, Reason: "projection was never given a value"}
		case unset:
			return &UnresolvedSlotError{Index: i, Depth: r.depth, Reason: "slot was left unset"}
		default:
			r.values = append(r.values, s)
			r.text.WriteString(r.placeholder.format(len(r.values)))
		}
		r.text.WriteString(t.segments[i+1])
	}
	return nil
}

// Placeholder selects how bound parameters are referenced in rendered text.
type Placeholder int

const (
	// Dollar renders numbered placeholders: $1, $2, ...
	Dollar Placeholder = iota

	// Question renders anonymous ? placeholders.
	Question
)

func (p Placeholder) format(n int) string {
	if p == Question {
		return "?"
	}
	return "$" + strconv.Itoa(n)
}

// String returns the configuration name of p.
func (p Placeholder) String() string {
	if p == Question {
		return "question"
	}
	return "dollar"
}

// ParsePlaceholder resolves "dollar" or "question".
func ParsePlaceholder(name string) (Placeholder, error) {
	switch strings.ToLower(name) {
	case "", "dollar":
		return Dollar, nil
	case "question":
		return Question, nil
	default:
		return Dollar, fmt.Errorf("unknown placeholder style %q (want dollar or question)", name)
	}
}
