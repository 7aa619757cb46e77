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

// Package prompt collects operation inputs interactively.
// Fields already supplied by flags or arguments are never prompted for, and
// nothing is prompted in non-interactive mode.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tombee/crewctl/internal/operation"
)

// ErrNonInteractive is returned when a prompt is attempted without a terminal.
var ErrNonInteractive = errors.New("cannot prompt in non-interactive mode")

// Prompter defines the interface for interactive input collection.
// Implementations include HuhPrompter (production) and MockPrompter (testing).
type Prompter interface {
	// PromptString collects a string input from the user
	PromptString(ctx context.Context, name, desc string, def string) (string, error)

	// PromptSecret collects a value without echoing it
	PromptSecret(ctx context.Context, name, desc string) (string, error)

	// IsInteractive returns true if prompts can be displayed
	IsInteractive() bool
}

// InputCollector manages a prompt session for collecting multiple inputs.
type InputCollector struct {
	prompter Prompter
	progress ProgressTracker
}

// ProgressTracker tracks progress through a multi-input prompt session.
type ProgressTracker struct {
	current int
	total   int
}

// NewInputCollector creates a new input collector with the given prompter.
func NewInputCollector(p Prompter) *InputCollector {
	return &InputCollector{
		prompter: p,
	}
}

// SetProgress configures the progress tracker for multi-input sessions.
func (ic *InputCollector) SetProgress(current, total int) {
	ic.progress = ProgressTracker{
		current: current,
		total:   total,
	}
}

// GetProgress returns the current progress information.
func (ic *InputCollector) GetProgress() (current, total int) {
	return ic.progress.current, ic.progress.total
}

// formatProgressPrefix returns "[2/3] " style prefix, or "" for single inputs.
func (ic *InputCollector) formatProgressPrefix() string {
	if ic.progress.total <= 1 {
		return ""
	}
	return fmt.Sprintf("[%d/%d] ", ic.progress.current, ic.progress.total)
}

// MissingFields returns def's fields that have no value in provided, in
// definition order.
func MissingFields(def *operation.Definition, provided operation.Input) []string {
	var missing []string
	for _, f := range def.Fields {
		if _, ok := provided[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

// CollectMissing prompts for every field of def not present in provided
// and returns the merged input. In non-interactive mode provided is
// returned unchanged; missing fields are later sent as empty strings.
func (ic *InputCollector) CollectMissing(ctx context.Context, def *operation.Definition, provided operation.Input) (operation.Input, error) {
	out := make(operation.Input, len(def.Fields))
	for k, v := range provided {
		out[k] = v
	}

	missing := MissingFields(def, provided)
	if len(missing) == 0 || !ic.prompter.IsInteractive() {
		return out, nil
	}

	for i, field := range missing {
		ic.SetProgress(i+1, len(missing))
		value, err := ic.prompter.PromptString(ctx, ic.formatProgressPrefix()+Label(field), def.Description, "")
		if err != nil {
			return nil, fmt.Errorf("prompting for %s: %w", field, err)
		}
		out[field] = value
	}
	return out, nil
}

// Label turns a field name into a prompt title: "content_type" becomes
// "Content type".
func Label(field string) string {
	s := strings.ReplaceAll(field, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
