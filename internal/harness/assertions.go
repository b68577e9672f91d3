package harness

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/nestrow/internal/mapper"
	"github.com/roach88/nestrow/internal/rowjson"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Path     string // Path the assertion looked at, if any
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Path != "" {
		fmt.Fprintf(&buf, " at %s", e.Path)
	}
	fmt.Fprintf(&buf, "\n  Expected: %s\n  Actual: %s", e.Expected, e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against results and returns
// the failure messages, in assertion order.
func EvaluateAssertions(results []mapper.Result, assertions []Assertion) []string {
	var failures []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertResultCount:
			err = assertResultCount(results, a)
		case AssertFieldEquals:
			err = assertFieldEquals(results, a)
		case AssertCollectionLength:
			err = assertCollectionLength(results, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

func assertResultCount(results []mapper.Result, a Assertion) error {
	if len(results) != a.Count {
		return &AssertionError{
			Type:     AssertResultCount,
			Expected: fmt.Sprintf("%d results", a.Count),
			Actual:   fmt.Sprintf("%d results", len(results)),
		}
	}
	return nil
}

func assertFieldEquals(results []mapper.Result, a Assertion) error {
	actual, err := lookupPath(results, a.Path)
	if err != nil {
		return &AssertionError{
			Type:     AssertFieldEquals,
			Path:     a.Path,
			Expected: fmt.Sprintf("%v", a.Value),
			Actual:   err.Error(),
		}
	}
	if !valuesEqual(a.Value, actual) {
		return &AssertionError{
			Type:     AssertFieldEquals,
			Path:     a.Path,
			Expected: describe(a.Value),
			Actual:   describe(actual),
		}
	}
	return nil
}

func assertCollectionLength(results []mapper.Result, a Assertion) error {
	v, err := lookupPath(results, a.Path)
	if err != nil {
		return &AssertionError{
			Type:     AssertCollectionLength,
			Path:     a.Path,
			Expected: fmt.Sprintf("%d items", a.Count),
			Actual:   err.Error(),
		}
	}
	items, ok := v.([]mapper.Result)
	if !ok {
		return &AssertionError{
			Type:     AssertCollectionLength,
			Path:     a.Path,
			Expected: fmt.Sprintf("%d items", a.Count),
			Actual:   fmt.Sprintf("not a collection (%T)", v),
		}
	}
	if len(items) != a.Count {
		return &AssertionError{
			Type:     AssertCollectionLength,
			Path:     a.Path,
			Expected: fmt.Sprintf("%d items", a.Count),
			Actual:   fmt.Sprintf("%d items", len(items)),
		}
	}
	return nil
}

// lookupPath walks a dotted path through results. Numeric segments index
// lists, other segments select fields.
func lookupPath(results []mapper.Result, path string) (any, error) {
	var cur any = results
	for _, seg := range strings.Split(path, ".") {
		switch v := cur.(type) {
		case []mapper.Result:
			i, err := strconv.Atoi(seg)
			if err != nil {
				return nil, fmt.Errorf("segment %q: expected list index", seg)
			}
			if i < 0 || i >= len(v) {
				return nil, fmt.Errorf("segment %q: index out of range (len %d)", seg, len(v))
			}
			cur = v[i]
		case mapper.Result:
			next, ok := v[seg]
			if !ok {
				return nil, fmt.Errorf("segment %q: field not present", seg)
			}
			cur = next
		default:
			return nil, fmt.Errorf("segment %q: cannot descend into %T", seg, cur)
		}
	}
	return cur, nil
}

// valuesEqual compares values by their canonical JSON, so an int from YAML
// matches an int64 from a driver.
func valuesEqual(expected, actual any) bool {
	e, err := rowjson.Marshal(expected)
	if err != nil {
		return false
	}
	a, err := rowjson.Marshal(actual)
	if err != nil {
		return false
	}
	return bytes.Equal(e, a)
}

func describe(v any) string {
	data, err := rowjson.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v (%T)", v, v)
	}
	return string(data)
}
