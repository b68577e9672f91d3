package querysql

import (
	"errors"
	"fmt"
)

// UnresolvedSlotError reports a slot that has no value at render time.
type UnresolvedSlotError struct {
	// Index is the slot position within its own template.
	Index int

	// Depth is the nesting level of that template; 0 is the template being
	// rendered.
	Depth int

	Reason string
}

// Error implements the error interface.
func (e *UnresolvedSlotError) Error() string {
	return fmt.Sprintf("unresolved template slot %d at depth %d: %s", e.Index, e.Depth, e.Reason)
}

// IsUnresolvedSlotError returns true if err is or wraps an *UnresolvedSlotError.
func IsUnresolvedSlotError(err error) bool {
	var ue *UnresolvedSlotError
	return errors.As(err, &ue)
}
