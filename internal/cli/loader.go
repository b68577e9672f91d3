package cli

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue/token"

	"github.com/roach88/nestrow/internal/compiler"
)

// LoadError represents an error that occurred while loading schemas.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSchemas compiles the schemas at path, a .cue file or a directory.
// Failures are returned as *LoadError.
func LoadSchemas(path string) ([]compiler.Schema, error) {
	if path == "" {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: "no schema path (use --schema or set schema in the config file)"}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema path not found: %s", path)}
	}

	schemas, err := compiler.Load(path)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return schemas, nil
}

// LoadRoot compiles the schemas at path and returns the one called root.
func LoadRoot(path, root string) (compiler.Schema, error) {
	if root == "" {
		return compiler.Schema{}, &LoadError{Code: ErrCodeGeneric, Message: "--root is required"}
	}
	schemas, err := LoadSchemas(path)
	if err != nil {
		return compiler.Schema{}, err
	}
	s, err := compiler.Lookup(schemas, root)
	if err != nil {
		return compiler.Schema{}, &LoadError{Code: ErrCodeNotFound, Message: err.Error()}
	}
	return s, nil
}

// convertCompileError keeps the CUE position of compile errors.
func convertCompileError(err error) *LoadError {
	var cErr *compiler.CompileError
	if errors.As(err, &cErr) {
		return &LoadError{
			Code:    ErrCodeLoadFailed,
			Message: fmt.Sprintf("%s: %s", cErr.Field, cErr.Message),
			Pos:     cErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}
