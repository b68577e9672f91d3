package rowjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/nestrow/internal/mapper"
)

// Format is the encoding of a row fixture.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf picks the fixture format from a file extension. Unknown
// extensions read as JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadRows reads a row fixture file: a JSON or YAML list of flat objects.
func LoadRows(path string) ([]mapper.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rows %s: %w", path, err)
	}
	rows, err := ParseRows(data, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("parse rows %s: %w", path, err)
	}
	return rows, nil
}

// ReadRows parses a row fixture from r.
func ReadRows(r io.Reader, format Format) ([]mapper.Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseRows(data, format)
}

// ParseRows decodes a list of flat objects. Whole numbers become int64 and
// other numbers float64, matching what database drivers hand back.
func ParseRows(data []byte, format Format) ([]mapper.Row, error) {
	var raw []map[string]any

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return []mapper.Row{}, nil
			}
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown row format %q", format)
	}

	return FromMaps(raw)
}

// FromMaps converts decoded objects into rows, normalizing numbers and
// rejecting nested values.
func FromMaps(raw []map[string]any) ([]mapper.Row, error) {
	rows := make([]mapper.Row, len(raw))
	for i, r := range raw {
		if r == nil {
			return nil, fmt.Errorf("row %d: not an object", i)
		}
		row := make(mapper.Row, len(r))
		for k, v := range r {
			nv, err := normalize(v)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, k, err)
			}
			row[k] = nv
		}
		rows[i] = row
	}
	return rows, nil
}

// normalize maps decoder-specific scalar types onto the driver-like set
// used by the mapper.
func normalize(v any) (any, error) {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	case int:
		return int64(val), nil
	case uint64:
		return int64(val), nil
	case map[string]any, []any:
		return nil, fmt.Errorf("nested value %T in flat row", v)
	default:
		return v, nil
	}
}
