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
	"encoding/json"
	"io"
)

// JSONError is the envelope for a failed command in --json mode.
type JSONError struct {
	Success    bool   `json:"success"`
	Code       int    `json:"exit_code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// EmitJSON writes v to w as indented JSON.
func EmitJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// EmitJSONError writes err as a JSONError envelope.
func EmitJSONError(w io.Writer, err error) error {
	resp := JSONError{
		Success: false,
		Code:    ExitCode(err),
		Message: err.Error(),
	}
	resp.Suggestion = SuggestionFor(err)
	return EmitJSON(w, resp)
}
