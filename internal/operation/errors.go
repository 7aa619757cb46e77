package operation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownOperation matches any *UnknownOperationError via errors.Is.
var ErrUnknownOperation = errors.New("unknown operation")

// ErrStaleRequest is returned by Store.SetResult and Store.SetError when the
// operation has been re-invoked since the given request started. The write
// is discarded.
var ErrStaleRequest = errors.New("stale request")

// UnknownOperationError is returned when a name is not in the registry.
type UnknownOperationError struct {
	// Name is the name that was looked up
	Name string

	// Known lists the registered operation names
	Known []string
}

// Error implements the error interface.
func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operation %q", e.Name)
}

// Is reports whether target is ErrUnknownOperation.
func (e *UnknownOperationError) Is(target error) bool {
	return target == ErrUnknownOperation
}

// IsUserVisible implements errors.UserVisibleError.
func (e *UnknownOperationError) IsUserVisible() bool { return true }

// UserMessage implements errors.UserVisibleError.
func (e *UnknownOperationError) UserMessage() string { return e.Error() }

// Suggestion implements errors.UserVisibleError.
func (e *UnknownOperationError) Suggestion() string {
	if len(e.Known) == 0 {
		return ""
	}
	return "Available operations: " + strings.Join(e.Known, ", ")
}
