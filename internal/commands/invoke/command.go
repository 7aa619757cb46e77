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

// Package invoke builds one CLI command per registered operation.
package invoke

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/crewctl/internal/cli/format"
	"github.com/tombee/crewctl/internal/cli/prompt"
	"github.com/tombee/crewctl/internal/commands/completion"
	"github.com/tombee/crewctl/internal/commands/shared"
	"github.com/tombee/crewctl/internal/operation"
)

// Options customise the generated commands. The zero value is the
// production setup.
type Options struct {
	// Runtime is passed to shared.NewRuntime.
	Runtime shared.RuntimeOptions

	// Prompter collects missing inputs. Default: a huh prompter when the
	// terminal is interactive.
	Prompter prompt.Prompter
}

// NewCommands returns one command per definition in registry, in
// registry order.
func NewCommands(registry *operation.Registry, opts Options) []*cobra.Command {
	defs := registry.Definitions()
	cmds := make([]*cobra.Command, 0, len(defs))
	for _, def := range defs {
		cmds = append(cmds, NewCommand(def, opts))
	}
	return cmds
}

// NewCommand creates the command for a single operation.
func NewCommand(def *operation.Definition, opts Options) *cobra.Command {
	var (
		query         string
		outputFormat  string
		noInteractive bool
	)

	cmd := &cobra.Command{
		Use:   usageLine(def),
		Short: def.Description,
		Annotations: map[string]string{
			"group":     "operations",
			"operation": def.Name,
		},
		Long: fmt.Sprintf(`%s.

Calls POST %s on the AI service with a JSON body of %s.
Inputs come from flags or positional arguments in field order. Missing
inputs are prompted for when the terminal is interactive and are sent as
empty strings otherwise.

On failure the fixed message %q is shown and the command exits with code 1;
details of the underlying error are written to the log.`,
			def.Description, def.Path, bodyShape(def), def.ErrorMessage),
		Example: exampleFor(def),
		Args:    cobra.MaximumNArgs(len(def.Fields)),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := inputFromCommand(cmd, def, args)
			if err != nil {
				return err
			}

			// --json implies --no-interactive
			if shared.GetJSON() {
				noInteractive = true
			}

			return run(cmd, def, input, runFlags{
				query:         query,
				format:        outputFormat,
				noInteractive: noInteractive,
			}, opts)
		},
	}

	for _, field := range def.Fields {
		cmd.Flags().String(FlagName(field), "", fmt.Sprintf("Value for the %q field", field))
	}
	cmd.Flags().StringVar(&query, "query", "", "jq expression applied to the result before printing")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", format.JSON, "Result format: "+strings.Join(format.Formats, ", "))
	cmd.Flags().BoolVar(&noInteractive, "no-interactive", false, "Disable interactive prompts for missing inputs")
	_ = cmd.RegisterFlagCompletionFunc("format", completion.CompleteOutputFormats)

	return cmd
}

// FlagName maps an input field to its flag: "content_type" becomes
// "content-type".
func FlagName(field string) string {
	return strings.ReplaceAll(field, "_", "-")
}

func usageLine(def *operation.Definition) string {
	parts := []string{def.Name}
	for _, f := range def.Fields {
		parts = append(parts, "["+f+"]")
	}
	return strings.Join(parts, " ")
}

func bodyShape(def *operation.Definition) string {
	return "{" + strings.Join(def.Fields, ", ") + "}"
}

func exampleFor(def *operation.Definition) string {
	var positional, flags []string
	for _, f := range def.Fields {
		positional = append(positional, fmt.Sprintf("%q", "<"+f+">"))
		flags = append(flags, fmt.Sprintf("--%s %q", FlagName(f), "<"+f+">"))
	}
	return fmt.Sprintf("  crewctl %s %s\n  crewctl %s %s --query '.'",
		def.Name, strings.Join(positional, " "),
		def.Name, strings.Join(flags, " "))
}
