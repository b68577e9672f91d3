package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/nestrow/internal/mapper"
	"github.com/roach88/nestrow/internal/querysql"
	"github.com/roach88/nestrow/internal/schema"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Rows decoded, scenarios passed
	ExitFailure      = 1 // Rows do not fit the schema, or a scenario failed
	ExitCommandError = 2 // Bad paths, schemas that do not compile, database errors
)

// Error codes reported in CLI responses.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeNotFound      = "E005" // Path, schema or field not found
	ErrCodeLoadFailed    = "E_LOAD"
	ErrCodeSchema        = "E_SCHEMA"
	ErrCodeDiscriminator = "E_DISCRIMINATOR"
	ErrCodeUnmappable    = "E_UNMAPPABLE"
	ErrCodeTemplate      = "E_TEMPLATE"
	ErrCodeDatabase      = "E_DB"
	ErrCodeRows          = "E_ROWS"
	ErrCodeTestFailed    = "E_TEST_FAILED"
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors that are not
// ExitErrors exit with ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the envelope of every --format json response.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error half of a CLIResponse.
type CLIError struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details *ErrorDetails `json:"details,omitempty"`
}

// ErrorDetails locates a failure in the input rows, the schema or a CUE
// file. Only the fields that apply are set.
type ErrorDetails struct {
	Row    *int   `json:"row,omitempty"` // zero is a valid row
	Column string `json:"column,omitempty"`
	Path   string `json:"path,omitempty"`
	Kind   string `json:"kind,omitempty"`
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Col    int    `json:"col,omitempty"`
}

func (d *ErrorDetails) String() string {
	var parts []string
	if d.File != "" {
		parts = append(parts, fmt.Sprintf("%s:%d:%d", d.File, d.Line, d.Col))
	}
	if d.Row != nil {
		parts = append(parts, fmt.Sprintf("row %d", *d.Row))
	}
	if d.Column != "" {
		parts = append(parts, "column "+d.Column)
	}
	if d.Path != "" {
		parts = append(parts, fmt.Sprintf("field %s (%s)", d.Path, d.Kind))
	}
	return strings.Join(parts, ", ")
}

// describeError classifies err into the code, message and location a
// response reports.
func describeError(err error) *CLIError {
	var (
		loadErr *LoadError
		discErr *mapper.DiscriminatorError
		rootErr *mapper.RootUnmappableError
		schErr  *schema.SchemaError
	)
	switch {
	case errors.As(err, &loadErr):
		e := &CLIError{Code: loadErr.Code, Message: loadErr.Message}
		if loadErr.Pos.IsValid() {
			e.Details = &ErrorDetails{
				File: loadErr.Pos.Filename(),
				Line: loadErr.Pos.Line(),
				Col:  loadErr.Pos.Column(),
			}
		}
		return e
	case errors.As(err, &discErr):
		row := discErr.Row
		return &CLIError{
			Code:    ErrCodeDiscriminator,
			Message: err.Error(),
			Details: &ErrorDetails{Row: &row, Column: discErr.Column},
		}
	case errors.As(err, &rootErr):
		row := rootErr.Row
		return &CLIError{Code: ErrCodeUnmappable, Message: err.Error(), Details: &ErrorDetails{Row: &row}}
	case errors.As(err, &schErr):
		return &CLIError{
			Code:    ErrCodeSchema,
			Message: err.Error(),
			Details: &ErrorDetails{Path: schErr.Path, Kind: schErr.Kind},
		}
	case querysql.IsUnresolvedSlotError(err):
		return &CLIError{Code: ErrCodeTemplate, Message: err.Error()}
	default:
		return &CLIError{Code: ErrCodeGeneric, Message: err.Error()}
	}
}

// OutputFormatter writes command results as text or as a CLIResponse.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // verbose output; defaults to Writer
	Verbose   bool
}

// Success writes a result. In text mode a json.RawMessage, such as
// canonical decode output, is written as is.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}

	if raw, ok := data.(json.RawMessage); ok {
		_, err := fmt.Fprintln(f.Writer, string(raw))
		return err
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error writes e. Text mode always prints where the failure happened.
func (f *OutputFormatter) Error(e *CLIError) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "error", Error: e})
	}

	if _, err := fmt.Fprintf(f.Writer, "Error [%s]: %s\n", e.Code, e.Message); err != nil {
		return err
	}
	if e.Details != nil {
		if at := e.Details.String(); at != "" {
			_, err := fmt.Fprintf(f.Writer, "  at %s\n", at)
			return err
		}
	}
	return nil
}

// Fail reports err and returns it wrapped in an ExitError carrying exitCode.
func (f *OutputFormatter) Fail(exitCode int, message string, err error) error {
	if outErr := f.Error(describeError(err)); outErr != nil {
		return outErr
	}
	return WrapExitError(exitCode, message, err)
}

// VerboseLog writes a diagnostic line to ErrWriter when verbose, keeping
// JSON on Writer intact.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
