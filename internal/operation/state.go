package operation

import (
	"context"
	"fmt"
	"time"

	crewerrors "github.com/tombee/crewctl/pkg/errors"
)

// Status is the lifecycle phase of an operation.
type Status string

const (
	// StatusIdle means the operation has never been invoked.
	StatusIdle Status = "idle"

	// StatusPending means an invocation is in flight.
	StatusPending Status = "pending"

	// StatusSucceeded means the last invocation returned a result.
	StatusSucceeded Status = "succeeded"

	// StatusFailed means the last invocation failed.
	StatusFailed Status = "failed"
)

// IsTerminal returns true for succeeded and failed.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// State is the user-visible state of one operation.
//
// At most one of Result and Error is populated. Both are empty while Idle or
// Pending.
type State struct {
	Operation string    `json:"operation"`
	Input     Input     `json:"input"`
	Status    Status    `json:"status"`
	Result    any       `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a copy whose Input map is not shared with s. Result is
// treated as immutable and shared.
func (s State) Clone() State {
	c := s
	c.Input = make(Input, len(s.Input))
	for k, v := range s.Input {
		c.Input[k] = v
	}
	return c
}

// Store holds one State per registered operation.
//
// Implementations must be safe for concurrent use. SetResult and SetError
// only apply when requestID matches the ID recorded by the latest Begin;
// otherwise they return ErrStaleRequest and leave the state unchanged.
type Store interface {
	// Get returns a snapshot of the named operation's state.
	Get(ctx context.Context, name string) (State, error)

	// SetInput updates one input field.
	SetInput(ctx context.Context, name, field, value string) error

	// Begin moves the operation to Pending under requestID and returns the
	// snapshot the invocation should use.
	Begin(ctx context.Context, name, requestID string) (State, error)

	// SetResult moves the operation to Succeeded.
	SetResult(ctx context.Context, name, requestID string, result any) error

	// SetError moves the operation to Failed.
	SetError(ctx context.Context, name, requestID, message string) error

	// List returns snapshots of every operation in registry order.
	List(ctx context.Context) ([]State, error)
}

// NewState returns the initial Idle state for def, with every input field
// present and empty.
func NewState(def *Definition) State {
	in := make(Input, len(def.Fields))
	for _, f := range def.Fields {
		in[f] = ""
	}
	return State{
		Operation: def.Name,
		Input:     in,
		Status:    StatusIdle,
		UpdatedAt: time.Now().UTC(),
	}
}

// ValidateField checks that field belongs to def.
func ValidateField(def *Definition, field string) error {
	if def.HasField(field) {
		return nil
	}
	return &crewerrors.ValidationError{
		Field:      field,
		Message:    fmt.Sprintf("operation %q has no input field %q", def.Name, field),
		Suggestion: fmt.Sprintf("valid fields: %v", def.Fields),
	}
}

// ApplyBegin transitions s to Pending under requestID.
func ApplyBegin(s *State, requestID string, now time.Time) {
	s.Status = StatusPending
	s.Result = nil
	s.Error = ""
	s.RequestID = requestID
	s.UpdatedAt = now
}

// ApplyResult transitions s to Succeeded if requestID is current.
func ApplyResult(s *State, requestID string, result any, now time.Time) error {
	if s.RequestID != requestID || s.Status != StatusPending {
		return ErrStaleRequest
	}
	s.Status = StatusSucceeded
	s.Result = result
	s.Error = ""
	s.UpdatedAt = now
	return nil
}

// ApplyError transitions s to Failed if requestID is current.
func ApplyError(s *State, requestID, message string, now time.Time) error {
	if s.RequestID != requestID || s.Status != StatusPending {
		return ErrStaleRequest
	}
	s.Status = StatusFailed
	s.Result = nil
	s.Error = message
	s.UpdatedAt = now
	return nil
}
