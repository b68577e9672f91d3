package harness

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines a decode scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the CUE file or directory holding the schema declarations.
	// Relative paths are resolved against the scenario file's directory.
	Schema string `yaml:"schema"`

	// Root names the schema to decode with.
	Root string `yaml:"root"`

	// FieldCase and ColumnCase select a case transform (camel, pascal,
	// snake). Both or neither must be set.
	FieldCase  string `yaml:"field_case,omitempty"`
	ColumnCase string `yaml:"column_case,omitempty"`

	// Rows are the flat input rows. Mutually exclusive with RowsFile.
	Rows []map[string]any `yaml:"rows,omitempty"`

	// RowsFile is a JSON or YAML row fixture, resolved like Schema.
	RowsFile string `yaml:"rows_file,omitempty"`

	// Expect is the exact expected outcome. Optional when Assertions are
	// given.
	Expect *Expect `yaml:"expect,omitempty"`

	// Assertions check parts of the decoded results.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expect is the expected outcome of decoding: either results or an error
// kind.
type Expect struct {
	// Results is compared to the decoded results as canonical JSON.
	Results []any `yaml:"results,omitempty"`

	// Error is the expected decode error kind.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates part of the decoded results.
type Assertion struct {
	// Type specifies the assertion type:
	// - "result_count": number of decoded roots equals Count
	// - "field_equals": value at Path equals Value
	// - "collection_length": list at Path has Count items
	Type string `yaml:"type"`

	// Path is a dotted path into the results, e.g. "0.comments.1.body".
	Path string `yaml:"path,omitempty"`

	// Value is the expected value (used by field_equals).
	Value any `yaml:"value,omitempty"`

	// Count is the expected count (used by result_count, collection_length).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertResultCount      = "result_count"
	AssertFieldEquals      = "field_equals"
	AssertCollectionLength = "collection_length"
)

// LoadScenario reads and parses a scenario YAML file. Schema and RowsFile
// paths are resolved relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	scenario.Schema = resolve(base, scenario.Schema)
	scenario.RowsFile = resolve(base, scenario.RowsFile)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// FindScenarios returns the .yaml and .yml files under dir, sorted.
func FindScenarios(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}

	if s.Root == "" {
		return fmt.Errorf("root is required")
	}

	if _, err := os.Stat(s.Schema); os.IsNotExist(err) {
		return fmt.Errorf("schema not found: %s", s.Schema)
	}

	if (s.FieldCase == "") != (s.ColumnCase == "") {
		return fmt.Errorf("field_case and column_case must be set together")
	}

	switch {
	case s.Rows != nil && s.RowsFile != "":
		return fmt.Errorf("rows and rows_file are mutually exclusive")
	case s.Rows == nil && s.RowsFile == "":
		return fmt.Errorf("rows or rows_file is required (use rows: [] for no rows)")
	case s.RowsFile != "":
		if _, err := os.Stat(s.RowsFile); os.IsNotExist(err) {
			return fmt.Errorf("rows file not found: %s", s.RowsFile)
		}
	}

	if s.Expect == nil && len(s.Assertions) == 0 {
		return fmt.Errorf("expect or assertions is required")
	}

	if s.Expect != nil {
		if err := validateExpect(s.Expect); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateExpect(e *Expect) error {
	switch e.Error {
	case "":
		if e.Results == nil {
			return fmt.Errorf("expect: results or error is required")
		}
	case ErrorKindSchema, ErrorKindDiscriminator, ErrorKindUnmappable:
		if e.Results != nil {
			return fmt.Errorf("expect: results and error are mutually exclusive")
		}
	default:
		return fmt.Errorf("expect: unknown error kind %q", e.Error)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertResultCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for result_count", index)
		}
	case AssertFieldEquals:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for field_equals", index)
		}
	case AssertCollectionLength:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for collection_length", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for collection_length", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
