// Package schema describes the nested shape that flat rows are decoded into.
//
// A schema is a tree of Node values. Node is a sealed interface: only the
// five variants in this package implement it, so consumers can switch over
// them exhaustively.
//
//	Scalar        a leaf column value
//	Record        an ordered set of named fields
//	Collection    a 1:n reference; its element is record-like
//	Intersection  record-like parts merged field-wise, later parts win
//	Alias         a table alias wrapping a Record or a Collection
//
// Example (posts with an author and comments):
//
//	post := schema.R(
//		schema.ID("id"),
//		schema.F("title", schema.Scalar{}),
//		schema.F("author", schema.As("a", schema.R(
//			schema.ID("id"),
//			schema.F("name", schema.Scalar{}),
//		))),
//		schema.F("comments", schema.As("c", schema.ListOf(schema.R(
//			schema.ID("id"),
//			schema.F("body", schema.Scalar{}),
//		)))),
//	)
//
// # Discriminators
//
// One field per record may be marked as the discriminator (see ID). When no
// field is marked, the field named "id" is used. The discriminator name goes
// through the same column resolution as every other field, including any
// case transform.
//
// # Immutability
//
// Nodes are plain values built once by the caller and never modified by
// this module. A schema can be shared by any number of goroutines decoding
// or building queries at the same time.
//
// The adapter functions (IsMappable, FieldsOf, AliasOf, DiscriminatorOf,
// IsRecordReference, IsCollectionElement, ElementOf) are the only surface the
// mapper and the column list builder need.
package schema
