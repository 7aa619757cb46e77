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

	"github.com/charmbracelet/huh"
)

// HuhPrompter implements Prompter using huh forms.
type HuhPrompter struct {
	interactive bool
}

// NewHuhPrompter creates a new huh-based prompter.
func NewHuhPrompter(interactive bool) *HuhPrompter {
	return &HuhPrompter{
		interactive: interactive,
	}
}

// PromptString collects a string input using huh.Input.
func (hp *HuhPrompter) PromptString(ctx context.Context, name, desc string, def string) (string, error) {
	if !hp.interactive {
		return "", ErrNonInteractive
	}

	result := def
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(name).
				Description(desc).
				Value(&result),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return "", err
	}
	return result, nil
}

// PromptSecret collects a value with echo disabled.
func (hp *HuhPrompter) PromptSecret(ctx context.Context, name, desc string) (string, error) {
	if !hp.interactive {
		return "", ErrNonInteractive
	}

	var result string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(name).
				Description(desc).
				EchoMode(huh.EchoModePassword).
				Value(&result).
				Validate(ValidateRequired),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return "", err
	}
	return result, nil
}

// IsInteractive returns true if prompts can be displayed.
func (hp *HuhPrompter) IsInteractive() bool {
	return hp.interactive
}
