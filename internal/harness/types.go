package harness

import (
	"github.com/roach88/nestrow/internal/mapper"
)

// Decode error kinds, as named in scenario files.
const (
	ErrorKindSchema        = "schema"
	ErrorKindDiscriminator = "discriminator"
	ErrorKindUnmappable    = "unmappable"
)

// ErrorKind classifies a decode error. It returns "" for nil and for errors
// that are not decode errors.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case mapper.IsSchemaError(err):
		return ErrorKindSchema
	case mapper.IsDiscriminatorError(err):
		return ErrorKindDiscriminator
	case mapper.IsRootUnmappableError(err):
		return ErrorKindUnmappable
	default:
		return ""
	}
}

// Result is the outcome of a scenario run.
type Result struct {
	// Name is the scenario name.
	Name string `json:"name"`

	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Results holds the decoded results. Nil when decoding failed.
	Results []mapper.Result `json:"results,omitempty"`

	// DecodeError is the decode failure, if any.
	DecodeError error `json:"-"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(name string) *Result {
	return &Result{
		Name:   name,
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
