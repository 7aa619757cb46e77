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

package prompt

import (
	"context"
	"fmt"
)

// MockPrompter implements Prompter with scripted responses for testing.
type MockPrompter struct {
	responses    []string
	currentIndex int
	interactive  bool
	callLog      []string
}

// NewMockPrompter creates a new mock prompter with pre-scripted responses.
func NewMockPrompter(interactive bool, responses ...string) *MockPrompter {
	return &MockPrompter{
		responses:   responses,
		interactive: interactive,
		callLog:     make([]string, 0),
	}
}

// PromptString returns the next response, or def when the script is exhausted.
func (mp *MockPrompter) PromptString(ctx context.Context, name, desc string, def string) (string, error) {
	mp.callLog = append(mp.callLog, fmt.Sprintf("PromptString(%s)", name))
	return mp.next(def)
}

// PromptSecret returns the next response.
func (mp *MockPrompter) PromptSecret(ctx context.Context, name, desc string) (string, error) {
	mp.callLog = append(mp.callLog, fmt.Sprintf("PromptSecret(%s)", name))
	return mp.next("")
}

func (mp *MockPrompter) next(def string) (string, error) {
	if !mp.interactive {
		return "", ErrNonInteractive
	}
	if mp.currentIndex >= len(mp.responses) {
		return def, nil
	}
	resp := mp.responses[mp.currentIndex]
	mp.currentIndex++
	return resp, nil
}

// IsInteractive returns the configured interactivity.
func (mp *MockPrompter) IsInteractive() bool {
	return mp.interactive
}

// CallLog returns the prompts issued so far.
func (mp *MockPrompter) CallLog() []string {
	return mp.callLog
}
