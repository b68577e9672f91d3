package mapper

import (
	"bytes"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nestrow/internal/casing"
	"github.com/roach88/nestrow/internal/schema"
)

type (
	Node   = schema.Node
	Scalar = schema.Scalar
)

var (
	R      = schema.R
	F      = schema.F
	ID     = schema.ID
	ListOf = schema.ListOf
	As     = schema.As
	And    = schema.And
)

var recordAB = R(F("a", Scalar{}), F("b", Scalar{}))

func TestDecode(t *testing.T) {
	testCases := []struct {
		name   string
		rows   []Row
		schema Node
		want   []Result
	}{
		{
			name:   "simple mapping",
			rows:   []Row{{"a": 1, "b": "foo"}},
			schema: recordAB,
			want:   []Result{{"a": 1, "b": "foo"}},
		},
		{
			name:   "sequence of mappings",
			rows:   []Row{{"a": 1, "b": "foo"}, {"a": 2, "b": "foo2"}},
			schema: recordAB,
			want:   []Result{{"a": 1, "b": "foo"}, {"a": 2, "b": "foo2"}},
		},
		{
			name:   "empty input",
			rows:   nil,
			schema: recordAB,
			want:   []Result{},
		},
		{
			name:   "1:1 reference",
			rows:   []Row{{"a": 1, "b": "foo", "d": 3}},
			schema: And(recordAB, R(F("c", R(F("d", Scalar{}))))),
			want:   []Result{{"a": 1, "b": "foo", "c": Result{"d": 3}}},
		},
		{
			name: "nested 1:1 reference",
			rows: []Row{{"a": 1, "b": "foo", "d": 3, "e": 4}},
			schema: And(recordAB, R(F("r1", R(
				F("d", Scalar{}),
				F("r2", R(F("e", Scalar{}))),
			)))),
			want: []Result{{"a": 1, "b": "foo", "r1": Result{"d": 3, "r2": Result{"e": 4}}}},
		},
		{
			name:   "unmatched left join collapses to nil",
			rows:   []Row{{"a": 1, "b": "foo", "d": nil, "e": nil}},
			schema: And(recordAB, R(F("c", R(F("d", Scalar{}), F("e", Scalar{}))))),
			want:   []Result{{"a": 1, "b": "foo", "c": nil}},
		},
		{
			name: "nested all-null reference",
			rows: []Row{{"a": 1, "b": "foo", "d": 3, "e": nil}},
			schema: And(recordAB, R(F("r1", R(
				F("d", Scalar{}),
				F("r2", R(F("e", Scalar{}))),
			)))),
			want: []Result{{"a": 1, "b": "foo", "r1": Result{"d": 3, "r2": nil}}},
		},
		{
			name:   "reference with some null values",
			rows:   []Row{{"a": 1, "b": "foo", "d": nil, "e": 1}},
			schema: And(recordAB, R(F("c", R(F("d", Scalar{}), F("e", Scalar{}))))),
			want:   []Result{{"a": 1, "b": "foo", "c": Result{"d": nil, "e": 1}}},
		},
		{
			name:   "1:m relation",
			rows:   []Row{{"a": 1, "b": 2, "c": 3}},
			schema: And(recordAB, R(ID("a"), F("many", ListOf(R(ID("c")))))),
			want:   []Result{{"a": 1, "b": 2, "many": []Result{{"c": 3}}}},
		},
		{
			name: "nested collection of a null parent",
			rows: []Row{{"a": 1, "b": nil, "c": nil}},
			schema: R(ID("a"), F("r1", R(
				ID("b"),
				F("c1", ListOf(R(ID("c")))),
			))),
			want: []Result{{"a": 1, "r1": nil}},
		},
		{
			name: "group collection items by parent id",
			rows: []Row{
				{"a": 1, "b": 2, "c": 3},
				{"a": 1, "b": 4, "c": 5},
				{"a": 2, "b": 6, "c": 7},
				{"a": 2, "b": 8, "c": 9},
			},
			schema: R(ID("a"), F("c1", ListOf(R(ID("b"), F("c", Scalar{}))))),
			want: []Result{
				{"a": 1, "c1": []Result{{"b": 2, "c": 3}, {"b": 4, "c": 5}}},
				{"a": 2, "c1": []Result{{"b": 6, "c": 7}, {"b": 8, "c": 9}}},
			},
		},
		{
			name: "skip all-null collection items",
			rows: []Row{
				{"a": 1, "b": "foo", "d": 3, "e": nil},
				{"a": 1, "b": "foo", "d": 4, "e": nil},
				{"a": 2, "b": "foo", "d": nil, "e": nil},
			},
			schema: R(ID("a"), F("b", Scalar{}), F("c1", ListOf(R(ID("d"), F("e", Scalar{}))))),
			want: []Result{
				{"a": 1, "b": "foo", "c1": []Result{{"d": 3, "e": nil}, {"d": 4, "e": nil}}},
				{"a": 2, "b": "foo", "c1": []Result{}},
			},
		},
		{
			name: "cross-joined sibling collections",
			rows: []Row{
				{"a": 1, "b": 2, "c": 3},
				{"a": 1, "b": 2, "c": 4},
				{"a": 1, "b": 2, "c": 6},
				{"a": 1, "b": 5, "c": 3},
				{"a": 1, "b": 5, "c": 4},
				{"a": 1, "b": 5, "c": 6},
				{"a": 2, "b": 7, "c": 8},
				{"a": 2, "b": 7, "c": 9},
			},
			schema: R(
				ID("a"),
				F("c1", ListOf(R(ID("b")))),
				F("c2", ListOf(R(ID("c")))),
			),
			want: []Result{
				{"a": 1, "c1": []Result{{"b": 2}, {"b": 5}}, "c2": []Result{{"c": 3}, {"c": 4}, {"c": 6}}},
				{"a": 2, "c1": []Result{{"b": 7}}, "c2": []Result{{"c": 8}, {"c": 9}}},
			},
		},
		{
			name: "nested collections",
			rows: []Row{
				{"a": 1, "b": 2, "c": 3},
				{"a": 1, "b": 2, "c": 4},
				{"a": 1, "b": 5, "c": 6},
				{"a": 2, "b": 7, "c": 8},
				{"a": 2, "b": 7, "c": 9},
			},
			schema: R(ID("a"), F("c1", ListOf(R(
				ID("b"),
				F("c2", ListOf(R(ID("c")))),
			)))),
			want: []Result{
				{"a": 1, "c1": []Result{
					{"b": 2, "c2": []Result{{"c": 3}, {"c": 4}}},
					{"b": 5, "c2": []Result{{"c": 6}}},
				}},
				{"a": 2, "c1": []Result{
					{"b": 7, "c2": []Result{{"c": 8}, {"c": 9}}},
				}},
			},
		},
		{
			name: "collections with references",
			rows: []Row{
				{"a": 1, "b": 2, "c": 3},
				{"a": 1, "b": 5, "c": 6},
				{"a": 2, "b": 7, "c": 8},
				{"a": 2, "b": 9, "c": 10},
			},
			schema: R(ID("a"), F("c1", ListOf(R(
				ID("b"),
				F("r1", R(ID("c"))),
			)))),
			want: []Result{
				{"a": 1, "c1": []Result{{"b": 2, "r1": Result{"c": 3}}, {"b": 5, "r1": Result{"c": 6}}}},
				{"a": 2, "c1": []Result{{"b": 7, "r1": Result{"c": 8}}, {"b": 9, "r1": Result{"c": 10}}}},
			},
		},
		{
			name:   "aliased columns",
			rows:   []Row{{"t__a": 1, "t__b": 2}},
			schema: As("t", recordAB),
			want:   []Result{{"a": 1, "b": 2}},
		},
		{
			name: "aliased references",
			rows: []Row{{"a": 1, "t1__b": 2, "t2__c": 3}},
			schema: R(
				ID("a"),
				F("t1", As("t1", R(F("b", Scalar{})))),
				F("t2", As("t2", ListOf(R(ID("c"))))),
			),
			want: []Result{{"a": 1, "t1": Result{"b": 2}, "t2": []Result{{"c": 3}}}},
		},
		{
			name:   "collection of aliased records",
			rows:   []Row{{"a": 1, "t1__c": 3}},
			schema: R(ID("a"), F("t1", ListOf(As("t1", R(ID("c")))))),
			want:   []Result{{"a": 1, "t1": []Result{{"c": 3}}}},
		},
		{
			name:   "missing columns are omitted",
			rows:   []Row{{"a": 1}},
			schema: recordAB,
			want:   []Result{{"a": 1}},
		},
		{
			name: "byte slice discriminators group by content",
			rows: []Row{
				{"id": []byte("k1"), "c": 1},
				{"id": []byte("k1"), "c": 2},
				{"id": []byte("k2"), "c": 3},
			},
			schema: R(ID("id"), F("items", ListOf(R(ID("c"))))),
			want: []Result{
				{"id": []byte("k1"), "items": []Result{{"c": 1}, {"c": 2}}},
				{"id": []byte("k2"), "items": []Result{{"c": 3}}},
			},
		},
		{
			name: "zero root discriminator groups its rows",
			rows: []Row{
				{"id": 0, "c": 1},
				{"id": 0, "c": 2},
				{"id": 1, "c": 3},
			},
			schema: R(ID("id"), F("items", ListOf(R(ID("c"))))),
			want: []Result{
				{"id": 0, "items": []Result{{"c": 1}, {"c": 2}}},
				{"id": 1, "items": []Result{{"c": 3}}},
			},
		},
		{
			name: "empty string discriminators are values",
			rows: []Row{
				{"id": "", "c": ""},
				{"id": "", "c": "x"},
				{"id": "", "c": ""},
			},
			schema: R(ID("id"), F("items", ListOf(R(ID("c"))))),
			want: []Result{
				{"id": "", "items": []Result{{"c": ""}, {"c": "x"}}},
			},
		},
		{
			name: "reference collection beside root collection",
			rows: []Row{
				{"id": 1, "a__id": 10, "b__id": 100, "c__id": 7},
				{"id": 1, "a__id": 10, "b__id": 100, "c__id": 8},
				{"id": 1, "a__id": 10, "b__id": 101, "c__id": 7},
				{"id": 1, "a__id": 10, "b__id": 101, "c__id": 8},
				{"id": 2, "a__id": 11, "b__id": nil, "c__id": 9},
			},
			schema: R(
				ID("id"),
				F("author", As("a", R(ID("id"), F("books", ListOf(As("b", R(ID("id")))))))),
				F("comments", ListOf(As("c", R(ID("id"))))),
			),
			want: []Result{
				{
					"id":       1,
					"author":   Result{"id": 10, "books": []Result{{"id": 100}, {"id": 101}}},
					"comments": []Result{{"id": 7}, {"id": 8}},
				},
				{
					"id":       2,
					"author":   Result{"id": 11, "books": []Result{}},
					"comments": []Result{{"id": 9}},
				},
			},
		},
		{
			name: "reference collection without root collections",
			rows: []Row{
				{"id": 1, "a__id": 10, "b__id": 100},
				{"id": 1, "a__id": 10, "b__id": 101},
				{"id": 2, "a__id": 11, "b__id": 102},
			},
			schema: R(
				ID("id"),
				F("author", As("a", R(ID("id"), F("books", ListOf(As("b", R(ID("id")))))))),
			),
			want: []Result{
				{"id": 1, "author": Result{"id": 10, "books": []Result{{"id": 100}, {"id": 101}}}},
				{"id": 2, "author": Result{"id": 11, "books": []Result{{"id": 102}}}},
			},
		},
		{
			name: "nested item collection beside sibling collection",
			rows: []Row{
				{"a": 1, "b": 2, "c": 3, "d": 20},
				{"a": 1, "b": 2, "c": 4, "d": 21},
				{"a": 1, "b": 5, "c": 6, "d": 22},
			},
			schema: R(
				ID("a"),
				F("c1", ListOf(R(ID("b"), F("c2", ListOf(R(ID("c"))))))),
				F("c3", ListOf(R(ID("d")))),
			),
			want: []Result{{
				"a": 1,
				"c1": []Result{
					{"b": 2, "c2": []Result{{"c": 3}, {"c": 4}}},
					{"b": 5, "c2": []Result{{"c": 6}}},
				},
				"c3": []Result{{"d": 20}, {"d": 21}, {"d": 22}},
			}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode(tc.rows, tc.schema)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecode_NullRootDiscriminator(t *testing.T) {
	// "a" is not marked as the discriminator, so the default "id" column is
	// looked up and found missing.
	_, err := Decode(
		[]Row{{"a": 1, "b": 2, "c": 3}},
		And(recordAB, R(F("many", ListOf(R(ID("c")))))),
	)
	require.Error(t, err)
	assert.True(t, IsDiscriminatorError(err))
	assert.Contains(t, err.Error(), "null value in discriminator column")

	var de *DiscriminatorError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 0, de.Row)
	assert.Equal(t, "id", de.Column)
}

func TestDecode_NullDiscriminatorOnLaterRow(t *testing.T) {
	_, err := Decode(
		[]Row{
			{"id": 1, "name": "x", "c": 1},
			{"id": nil, "name": "y", "c": 2},
		},
		R(ID("id"), F("name", Scalar{}), F("items", ListOf(R(ID("c"))))),
	)
	var de *DiscriminatorError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 1, de.Row)
}

func TestDecode_NaNDiscriminator(t *testing.T) {
	done := make(chan struct{})
	var (
		got []Result
		err error
	)
	go func() {
		defer close(done)
		got, err = Decode(
			[]Row{
				{"id": math.NaN(), "c__id": 1},
				{"id": math.NaN(), "c__id": 2},
				{"id": 1.5, "c__id": 3},
			},
			R(ID("id"), F("c", ListOf(As("c", R(ID("id")))))),
		)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Decode did not return")
	}
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []Result{{"id": 1}, {"id": 2}}, got[0]["c"])
	assert.Equal(t, []Result{{"id": 3}}, got[1]["c"])
}

func TestDecode_AliasedColumnsWithoutAlias(t *testing.T) {
	_, err := Decode([]Row{{"t__a": 1, "t__b": 2}}, R(F("a", Scalar{}), F("B", Scalar{})))
	require.Error(t, err)
	assert.True(t, IsRootUnmappableError(err))
	assert.Contains(t, err.Error(), "not mappable")
}

func TestDecode_NotMappable(t *testing.T) {
	testCases := []struct {
		name   string
		schema Node
	}{
		{"scalar", Scalar{}},
		{"bare collection", ListOf(recordAB)},
		{"nil", nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode([]Row{{"a": 1}}, tc.schema)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, IsSchemaError(err))
			assert.False(t, IsDiscriminatorError(err))
		})
	}
}

func TestDecode_AliasedRootCollection(t *testing.T) {
	got, err := Decode(
		[]Row{{"p__id": 1, "p__name": "x"}, {"p__id": 2, "p__name": "y"}},
		As("p", ListOf(R(ID("id"), F("name", Scalar{})))),
	)
	require.NoError(t, err)
	assert.Equal(t, []Result{{"id": 1, "name": "x"}, {"id": 2, "name": "y"}}, got)
}

func TestDecode_CaseTransform(t *testing.T) {
	m := New(WithCaseTransform(casing.New(casing.Camel, casing.Snake).Func()))

	got, err := m.Decode(
		[]Row{
			{"user_id": 1, "display_name": "ann", "o__order_id": 10, "o__total_cents": 500},
			{"user_id": 1, "display_name": "ann", "o__order_id": 11, "o__total_cents": 700},
		},
		R(
			ID("userId"),
			F("displayName", Scalar{}),
			F("orders", As("o", ListOf(R(ID("orderId"), F("totalCents", Scalar{}))))),
		),
	)
	require.NoError(t, err)
	assert.Equal(t, []Result{{
		"userId":      1,
		"displayName": "ann",
		"orders": []Result{
			{"orderId": 10, "totalCents": 500},
			{"orderId": 11, "totalCents": 700},
		},
	}}, got)
}

func TestDecode_Deterministic(t *testing.T) {
	rows := []Row{
		{"a": 1, "b": 2, "c": 3},
		{"a": 1, "b": 5, "c": 4},
		{"a": 2, "b": 7, "c": 8},
	}
	root := R(ID("a"), F("c1", ListOf(R(ID("b")))), F("c2", ListOf(R(ID("c")))))

	first, err := Decode(rows, root)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Decode(rows, root)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

// Every root identity appears once, in first-appearance order, when rows
// are sorted by that identity.
func TestDecode_OneResultPerRootIdentity(t *testing.T) {
	var rows []Row
	for id := 1; id <= 5; id++ {
		for item := 0; item < id; item++ {
			rows = append(rows, Row{"id": id, "i__id": id*100 + item})
		}
	}

	got, err := Decode(rows, R(ID("id"), F("items", As("i", ListOf(R(ID("id")))))))
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, res := range got {
		assert.Equal(t, i+1, res["id"])
		assert.Len(t, res["items"], i+1)
	}
}

func TestDecode_LogsRoots(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := New(WithLogger(logger)).Decode([]Row{{"a": 1, "b": 2}}, recordAB)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "decoded root")
}

func TestKeyOf(t *testing.T) {
	assert.Equal(t, keyOf([]byte("x")), keyOf([]byte("x")))
	assert.NotEqual(t, keyOf([]byte("x")), keyOf("x"))
	assert.NotEqual(t, keyOf(int64(1)), keyOf(int32(1)))
	assert.True(t, sameKey(7, keyOf(7)))
	assert.False(t, sameKey(nil, keyOf(7)))
	assert.True(t, sameKey(math.NaN(), keyOf(math.NaN())))
	assert.True(t, sameKey(float32(math.NaN()), keyOf(math.NaN())))
	assert.False(t, sameKey(1.0, keyOf(math.NaN())))
}
