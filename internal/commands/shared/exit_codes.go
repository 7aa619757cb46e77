// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package shared

import (
	"fmt"
	"io"
	"os"

	"github.com/tombee/crewctl/internal/operation"
	pkgerrors "github.com/tombee/crewctl/pkg/errors"
)

// Exit codes for crewctl commands
const (
	ExitSuccess         = 0
	ExitOperationFailed = 1
	ExitUsage           = 2
	ExitConfig          = 3
	ExitAuth            = 4
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil && e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewOperationFailedError reports that an operation reached the failed
// state. msg is the operation's fixed user-facing message.
func NewOperationFailedError(msg string) *ExitError {
	return &ExitError{
		Code:    ExitOperationFailed,
		Message: msg,
	}
}

// NewUsageError creates an error for bad arguments or unknown operations
func NewUsageError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitUsage,
		Message: msg,
		Cause:   cause,
	}
}

// ExitCode maps err to a process exit code. Typed errors anywhere in the
// chain pick the code; anything else is an operation failure.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if pkgerrors.As(err, &exitErr) {
		return exitErr.Code
	}

	var authErr *pkgerrors.AuthError
	if pkgerrors.As(err, &authErr) {
		return ExitAuth
	}

	var cfgErr *pkgerrors.ConfigError
	if pkgerrors.As(err, &cfgErr) {
		return ExitConfig
	}

	var valErr *pkgerrors.ValidationError
	if pkgerrors.Is(err, operation.ErrUnknownOperation) || pkgerrors.As(err, &valErr) {
		return ExitUsage
	}

	return ExitOperationFailed
}

// HandleExitError prints err with its suggestion and exits with the mapped
// code. It does nothing for a nil error.
func HandleExitError(err error) {
	if err == nil {
		return
	}
	PrintError(os.Stderr, err)
	os.Exit(ExitCode(err))
}

// PrintError writes the error line and any suggestion to w.
func PrintError(w io.Writer, err error) {
	if msg := err.Error(); msg != "" {
		fmt.Fprintln(w, RenderError(msg))
	}

	printUserVisibleSuggestion(w, err)
}

// printUserVisibleSuggestion prints the suggestion carried by err, if any.
func printUserVisibleSuggestion(w io.Writer, err error) {
	if suggestion := SuggestionFor(err); suggestion != "" {
		fmt.Fprintf(w, "\nSuggestion: %s\n", suggestion)
	}
}

// SuggestionFor returns actionable guidance from a ValidationError or any
// UserVisibleError in err's chain.
func SuggestionFor(err error) string {
	var valErr *pkgerrors.ValidationError
	if pkgerrors.As(err, &valErr) && valErr.Suggestion != "" {
		return valErr.Suggestion
	}
	return pkgerrors.Suggestion(err)
}
