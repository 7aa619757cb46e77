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
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tombee/crewctl/internal/operation"
	pkgerrors "github.com/tombee/crewctl/pkg/errors"
)

func TestExitCode(t *testing.T) {
	_, unknown := operation.DefaultRegistry().Resolve("translate")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"operation failed", NewOperationFailedError("Error analyzing data"), ExitOperationFailed},
		{"usage", NewUsageError("bad args", nil), ExitUsage},
		{"unknown operation", unknown, ExitUsage},
		{"wrapped unknown operation", fmt.Errorf("running: %w", unknown), ExitUsage},
		{"validation", &pkgerrors.ValidationError{Field: "text", Message: "bad"}, ExitUsage},
		{"config", &pkgerrors.ConfigError{Key: "api.base_url", Reason: "bad"}, ExitConfig},
		{"auth", &pkgerrors.AuthError{Reason: "no token"}, ExitAuth},
		{"wrapped auth", fmt.Errorf("startup: %w", &pkgerrors.AuthError{Reason: "no token"}), ExitAuth},
		{"plain", errors.New("boom"), ExitOperationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestExitError_Message(t *testing.T) {
	assert.Equal(t, "Error analyzing data", NewOperationFailedError("Error analyzing data").Error())
	assert.Equal(t, "bad args: boom", NewUsageError("bad args", errors.New("boom")).Error())

	cause := errors.New("inner")
	wrapped := &ExitError{Code: ExitConfig, Cause: cause}
	assert.Equal(t, "inner", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestPrintError_Suggestions(t *testing.T) {
	_, unknown := operation.DefaultRegistry().Resolve("translate")

	tests := []struct {
		name           string
		err            error
		wantSuggestion string
	}{
		{"unknown operation lists names", unknown, "Available operations: analyze, recommend, sentiment, generate-content"},
		{"auth hint", &pkgerrors.AuthError{Reason: "no token", Hint: "Run 'crewctl auth login'"}, "Run 'crewctl auth login'"},
		{"validation suggestion", &pkgerrors.ValidationError{Field: "x", Message: "m", Suggestion: "use y"}, "use y"},
		{"no suggestion", errors.New("plain"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			PrintError(&buf, tt.err)

			out := buf.String()
			assert.Contains(t, out, tt.err.Error())
			if tt.wantSuggestion == "" {
				assert.NotContains(t, out, "Suggestion:")
			} else {
				assert.Contains(t, out, "Suggestion: "+tt.wantSuggestion)
			}
			assert.Equal(t, tt.wantSuggestion, SuggestionFor(tt.err))
		})
	}
}
