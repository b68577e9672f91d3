// Package testutil provides database fixtures for tests.
package testutil

import (
	"context"
	_ "embed"
	"testing"

	"github.com/roach88/nestrow/internal/schema"
	"github.com/roach88/nestrow/internal/store"
)

// BlogSQL creates and fills the authors, posts, comments and tags tables.
//
//go:embed testdata/blog.sql
var BlogSQL string

// OpenSQLite opens an in-memory SQLite store and runs scripts against it.
// The store is closed when the test ends.
func OpenSQLite(t testing.TB, scripts []string, opts ...store.Option) *store.Store {
	t.Helper()
	ctx := context.Background()

	s, err := store.Open(ctx, store.DriverSQLite, ":memory:", opts...)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	for _, script := range scripts {
		if err := s.ExecScript(ctx, script); err != nil {
			t.Fatalf("run fixture script: %v", err)
		}
	}
	return s
}

// OpenBlog opens an in-memory store loaded with BlogSQL.
func OpenBlog(t testing.TB, opts ...store.Option) *store.Store {
	t.Helper()
	return OpenSQLite(t, []string{BlogSQL}, opts...)
}

// BlogPost is the schema for rows selected over BlogJoins: posts under
// alias "p" with an optional author, comments and tags.
func BlogPost() schema.Node {
	return schema.As("p", schema.R(
		schema.ID("id"),
		schema.F("title", schema.Scalar{}),
		schema.F("author", BlogAuthor()),
		schema.F("comments", schema.As("c", schema.ListOf(schema.R(
			schema.ID("id"),
			schema.F("body", schema.Scalar{}),
		)))),
		schema.F("tags", schema.As("t", schema.ListOf(schema.R(
			schema.ID("id"),
			schema.F("label", schema.Scalar{}),
		)))),
	))
}

// BlogAuthor is the author reference of BlogPost.
func BlogAuthor() schema.Node {
	return schema.As("a", schema.R(
		schema.ID("id"),
		schema.F("name", schema.Scalar{}),
	))
}

// BlogJoins is the FROM clause that joins every table of BlogPost under
// its alias, ordered by post id.
const BlogJoins = `FROM posts p
LEFT JOIN authors a ON a.id = p.author_id
LEFT JOIN comments c ON c.post_id = p.id
LEFT JOIN tags t ON t.post_id = p.id`

// BlogOrder orders BlogJoins rows so every post is contiguous.
const BlogOrder = `ORDER BY p.id, c.id, t.id`
