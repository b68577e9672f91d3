// Package mapper decodes flat, denormalized rows into nested results.
//
// Physical rows are a cross-join of a root entity with each of its 1:1
// references and with every independent collection. Decode walks the rows
// once, in order, grouping each collection by its own discriminator.
//
// Rows that share a root discriminator must be contiguous (ORDER BY the root
// id). Sibling collections need no particular order relative to each other.
package mapper

import (
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"time"

	"github.com/roach88/nestrow/internal/casing"
	"github.com/roach88/nestrow/internal/colname"
	"github.com/roach88/nestrow/internal/schema"
)

// Row is one flat result row: column name to value. A nil value is SQL NULL.
type Row map[string]any

// Result is one decoded record. Values are scalars, nested Results, nil for
// an absent 1:1 reference, or []Result for collections.
type Result map[string]any

// Mapper decodes rows against a schema. A Mapper holds configuration only
// and is safe for concurrent use.
type Mapper struct {
	transform casing.Func
	logger    *slog.Logger
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithCaseTransform sets the transform applied to field names when looking
// up their columns. It must match the transform used to build the query.
func WithCaseTransform(f casing.Func) Option {
	return func(m *Mapper) { m.transform = f }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(m *Mapper) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a Mapper.
func New(opts ...Option) *Mapper {
	m := &Mapper{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Decode decodes rows with a default Mapper.
func Decode(rows []Row, root schema.Node) ([]Result, error) {
	return New().Decode(rows, root)
}

// Decode turns rows into one Result per root identity, in row order.
//
// Errors:
//   - *schema.SchemaError if root is not mappable
//   - *DiscriminatorError if a parent with collections has a null id
//   - *RootUnmappableError if a root row decodes to null
//
// No partial results are returned on failure.
func (m *Mapper) Decode(rows []Row, root schema.Node) ([]Result, error) {
	if !schema.IsMappable(root) {
		return nil, &schema.SchemaError{
			Path:    "<root>",
			Kind:    schema.KindOf(root),
			Message: "not mappable: root must be a record, an intersection or an alias",
		}
	}

	d := &decoder{rows: rows, transform: m.transform}
	results := make([]Result, 0)

	for cursor := 0; cursor < len(rows); cursor++ {
		next, res, err := d.mapRow(cursor, root)
		if err != nil {
			return nil, err
		}
		if res == nil {
			return nil, &RootUnmappableError{Row: cursor}
		}
		m.logger.Debug("decoded root", "first_row", cursor, "last_row", next)
		results = append(results, res)
		cursor = max(cursor, next)
	}

	return results, nil
}

// decoder holds the state of a single Decode call.
type decoder struct {
	rows      []Row
	transform casing.Func
}

// mapRecord copies the declared fields present in row. It returns nil when
// every present value is null, which is how an unmatched LEFT JOIN shows up.
func (d *decoder) mapRecord(row Row, fields []schema.Field, alias string) Result {
	result := make(Result, len(fields))
	allNull := true

	for _, f := range fields {
		v, ok := row[colname.Resolve(f.Name, alias, d.transform)]
		if !ok {
			continue
		}
		result[f.Name] = v
		if v != nil {
			allNull = false
		}
	}

	if allNull {
		return nil
	}
	return result
}

// collection accumulates one collection field during a grouping scan.
type collection struct {
	name   string
	elem   schema.Node
	column string
	seen   map[any]struct{}
	items  []Result
}

// mapRow decodes the record described by node starting at cursor and
// returns the index of the last row it consumed.
func (d *decoder) mapRow(cursor int, node schema.Node) (int, Result, error) {
	fields, err := schema.FieldsOf(node)
	if err != nil {
		return cursor, nil, err
	}
	alias := schema.AliasOf(node)

	root := d.mapRecord(d.rows[cursor], fields, alias)
	if root == nil {
		return cursor, nil, nil
	}

	// 1:1 references read the same physical row. The rows they consume
	// still count towards this record's extent.
	furthest := cursor
	for _, f := range fields {
		if !schema.IsRecordReference(f.Node) {
			continue
		}
		next, ref, err := d.mapRow(cursor, f.Node)
		if err != nil {
			return cursor, nil, err
		}
		furthest = max(furthest, next)
		if ref == nil {
			root[f.Name] = nil
		} else {
			root[f.Name] = ref
		}
	}

	var collections []*collection
	for _, f := range fields {
		if !schema.IsCollectionElement(f.Node) {
			continue
		}
		elem, err := schema.ElementOf(f.Node)
		if err != nil {
			return cursor, nil, err
		}
		elemFields, err := schema.FieldsOf(elem)
		if err != nil {
			return cursor, nil, err
		}
		collections = append(collections, &collection{
			name:   f.Name,
			elem:   elem,
			column: colname.Resolve(schema.DiscriminatorOf(elemFields), schema.AliasOf(elem), d.transform),
			seen:   make(map[any]struct{}),
			items:  []Result{},
		})
	}
	if len(collections) == 0 {
		return furthest, root, nil
	}

	rootColumn := colname.Resolve(schema.DiscriminatorOf(fields), alias, d.transform)
	rootValue := d.rows[cursor][rootColumn]
	if rootValue == nil {
		return cursor, nil, &DiscriminatorError{Row: cursor, Column: rootColumn}
	}
	rootKey := keyOf(rootValue)

	// The starting row always belongs to the group.
	row := cursor
	for row == cursor || (row < len(d.rows) && sameKey(d.rows[row][rootColumn], rootKey)) {
		for _, c := range collections {
			v := d.rows[row][c.column]
			if v == nil {
				// No cross-joined match for this collection on this row.
				continue
			}
			k := keyOf(v)
			if _, ok := c.seen[k]; ok {
				continue
			}
			c.seen[k] = struct{}{}

			// Items are decoded in place so sibling collections still
			// see every row of the group.
			next, item, err := d.mapRow(row, c.elem)
			if err != nil {
				return cursor, nil, err
			}
			furthest = max(furthest, next)
			if item != nil {
				c.items = append(c.items, item)
			}
		}
		row++
	}
	// The row that ended the scan belongs to the next root.
	furthest = max(furthest, row-1)

	for _, c := range collections {
		root[c.name] = c.items
	}
	return furthest, root, nil
}

type bytesKey string

type nanKey struct{}

type timeKey struct {
	sec  int64
	nsec int
}

// keyOf normalizes a discriminator value into a comparable map key.
// Values of different types never compare equal. NaN equals NaN.
func keyOf(v any) any {
	switch v := v.(type) {
	case float64:
		if math.IsNaN(v) {
			return nanKey{}
		}
	case float32:
		if math.IsNaN(float64(v)) {
			return nanKey{}
		}
	case []byte:
		return bytesKey(v)
	case time.Time:
		return timeKey{sec: v.Unix(), nsec: v.Nanosecond()}
	}
	if reflect.TypeOf(v).Comparable() {
		return v
	}
	return fmt.Sprintf("%T:%v", v, v)
}

func sameKey(v any, key any) bool {
	if v == nil {
		return false
	}
	return keyOf(v) == key
}
