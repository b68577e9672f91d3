package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nestrow/internal/mapper"
)

func sampleResults() []mapper.Result {
	return []mapper.Result{
		{
			"id":     int64(1),
			"author": mapper.Result{"id": int64(7), "name": "ann"},
			"comments": []mapper.Result{
				{"id": int64(10), "body": "nice"},
				{"id": int64(11), "body": "meh"},
			},
		},
		{
			"id":       int64(2),
			"author":   nil,
			"comments": []mapper.Result{},
		},
	}
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	failures := EvaluateAssertions(sampleResults(), []Assertion{
		{Type: AssertResultCount, Count: 2},
		{Type: AssertFieldEquals, Path: "0.author.name", Value: "ann"},
		{Type: AssertFieldEquals, Path: "0.author.id", Value: 7},
		{Type: AssertFieldEquals, Path: "0.comments.1.body", Value: "meh"},
		{Type: AssertFieldEquals, Path: "1.author", Value: nil},
		{Type: AssertCollectionLength, Path: "0.comments", Count: 2},
		{Type: AssertCollectionLength, Path: "1.comments", Count: 0},
	})
	assert.Empty(t, failures)
}

func TestEvaluateAssertions_Fail(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		want      []string
	}{
		{
			name:      "count",
			assertion: Assertion{Type: AssertResultCount, Count: 3},
			want:      []string{"result_count", "Expected: 3 results", "Actual: 2 results"},
		},
		{
			name:      "value",
			assertion: Assertion{Type: AssertFieldEquals, Path: "0.author.name", Value: "bob"},
			want:      []string{"field_equals at 0.author.name", `Expected: "bob"`, `Actual: "ann"`},
		},
		{
			name:      "missing field",
			assertion: Assertion{Type: AssertFieldEquals, Path: "0.title", Value: "x"},
			want:      []string{`segment "title": field not present`},
		},
		{
			name:      "index out of range",
			assertion: Assertion{Type: AssertFieldEquals, Path: "5.id", Value: 1},
			want:      []string{"index out of range (len 2)"},
		},
		{
			name:      "bad index",
			assertion: Assertion{Type: AssertFieldEquals, Path: "first.id", Value: 1},
			want:      []string{"expected list index"},
		},
		{
			name:      "descend into scalar",
			assertion: Assertion{Type: AssertFieldEquals, Path: "0.id.x", Value: 1},
			want:      []string{"cannot descend into int64"},
		},
		{
			name:      "length",
			assertion: Assertion{Type: AssertCollectionLength, Path: "0.comments", Count: 1},
			want:      []string{"collection_length at 0.comments", "Actual: 2 items"},
		},
		{
			name:      "not a collection",
			assertion: Assertion{Type: AssertCollectionLength, Path: "0.author", Count: 1},
			want:      []string{"not a collection (mapper.Result)"},
		},
		{
			name:      "unknown type",
			assertion: Assertion{Type: "trace_order"},
			want:      []string{`unknown assertion type "trace_order"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failures := EvaluateAssertions(sampleResults(), []Assertion{tt.assertion})
			require.Len(t, failures, 1)
			for _, w := range tt.want {
				assert.Contains(t, failures[0], w)
			}
		})
	}
}

func TestLookupPath(t *testing.T) {
	v, err := lookupPath(sampleResults(), "0.comments.0")
	require.NoError(t, err)
	assert.Equal(t, mapper.Result{"id": int64(10), "body": "nice"}, v)
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, valuesEqual(1, int64(1)))
	assert.True(t, valuesEqual(nil, nil))
	assert.True(t, valuesEqual(map[string]any{"a": 1}, mapper.Result{"a": int64(1)}))
	assert.False(t, valuesEqual("1", int64(1)))
	assert.False(t, valuesEqual(struct{}{}, struct{}{}))
}
