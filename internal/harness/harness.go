package harness

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/nestrow/internal/casing"
	"github.com/roach88/nestrow/internal/compiler"
	"github.com/roach88/nestrow/internal/mapper"
	"github.com/roach88/nestrow/internal/rowjson"
)

// Harness runs scenarios. Compiled schemas are cached by path and shared
// read-only between runs, so one Harness can run many scenarios
// concurrently.
type Harness struct {
	logger *slog.Logger

	mu      sync.Mutex
	schemas map[string][]compiler.Schema
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger for scenario progress.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger:  slog.New(slog.DiscardHandler),
		schemas: make(map[string][]compiler.Schema),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a fresh Harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(scenario)
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Load and compile the schema file (cached) and pick the root schema
//  2. Load the rows (inline or from rows_file)
//  3. Decode with the scenario's case transform
//  4. Check the expect clause and evaluate assertions
//
// A returned error means the scenario could not be executed. Decode errors
// are part of the Result.
func (h *Harness) Run(scenario *Scenario) (*Result, error) {
	schemas, err := h.loadSchemas(scenario.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	root, err := compiler.Lookup(schemas, scenario.Root)
	if err != nil {
		return nil, err
	}

	rows, err := loadRows(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to load rows: %w", err)
	}

	transform, err := casing.Between(scenario.FieldCase, scenario.ColumnCase)
	if err != nil {
		return nil, err
	}

	m := mapper.New(mapper.WithCaseTransform(transform), mapper.WithLogger(h.logger))
	decoded, decodeErr := m.Decode(rows, root.Node)

	result := NewResult(scenario.Name)
	result.Results = decoded
	result.DecodeError = decodeErr

	checkExpect(result, scenario.Expect)

	if len(scenario.Assertions) > 0 {
		if decodeErr != nil {
			result.AddError(fmt.Sprintf("assertions need results, decode failed: %v", decodeErr))
		} else {
			for _, msg := range EvaluateAssertions(decoded, scenario.Assertions) {
				result.AddError(msg)
			}
		}
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"rows", len(rows),
		"results", len(decoded),
		"pass", result.Pass,
	)
	return result, nil
}

// RunAll runs scenarios concurrently and returns their results in input
// order. It stops at the first scenario that cannot be executed.
func (h *Harness) RunAll(ctx context.Context, scenarios []*Scenario) ([]*Result, error) {
	results := make([]*Result, len(scenarios))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, s := range scenarios {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := h.Run(s)
			if err != nil {
				return fmt.Errorf("scenario %s: %w", s.Name, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (h *Harness) loadSchemas(path string) ([]compiler.Schema, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.schemas[path]; ok {
		return s, nil
	}
	s, err := compiler.Load(path)
	if err != nil {
		return nil, err
	}
	h.schemas[path] = s
	return s, nil
}

func loadRows(s *Scenario) ([]mapper.Row, error) {
	if s.RowsFile != "" {
		return rowjson.LoadRows(s.RowsFile)
	}
	return rowjson.FromMaps(s.Rows)
}

// checkExpect compares the outcome with the expect clause.
func checkExpect(result *Result, expect *Expect) {
	if expect == nil {
		return
	}

	gotKind := ErrorKind(result.DecodeError)
	if expect.Error != "" {
		switch {
		case result.DecodeError == nil:
			result.AddError(fmt.Sprintf("expected %s error, decode succeeded", expect.Error))
		case gotKind != expect.Error:
			result.AddError(fmt.Sprintf("expected %s error, got: %v", expect.Error, result.DecodeError))
		}
		return
	}

	if result.DecodeError != nil {
		result.AddError(fmt.Sprintf("unexpected decode error: %v", result.DecodeError))
		return
	}

	want, err := rowjson.Marshal(expect.Results)
	if err != nil {
		result.AddError(fmt.Sprintf("expected results are not encodable: %v", err))
		return
	}
	got, err := rowjson.Marshal(result.Results)
	if err != nil {
		result.AddError(fmt.Sprintf("decoded results are not encodable: %v", err))
		return
	}
	if !bytes.Equal(want, got) {
		result.AddError(fmt.Sprintf("results mismatch\n  Expected: %s\n  Actual: %s", want, got))
	}
}
