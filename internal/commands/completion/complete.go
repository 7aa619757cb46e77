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

package completion

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/crewctl/internal/cli/format"
	"github.com/tombee/crewctl/internal/operation"
)

// SafeCompletionWrapper wraps a completion function with panic recovery.
// Returns empty completion list on panic or error.
func SafeCompletionWrapper(fn func() ([]string, cobra.ShellCompDirective)) (results []string, directive cobra.ShellCompDirective) {
	results = []string{}
	directive = cobra.ShellCompDirectiveNoFileComp

	defer func() {
		if r := recover(); r != nil {
			results = []string{}
			directive = cobra.ShellCompDirectiveNoFileComp
		}
	}()

	results, directive = fn()
	if results == nil {
		return []string{}, cobra.ShellCompDirectiveNoFileComp
	}
	return results, directive
}

// CompleteOperationNames completes the first positional argument with the
// registered operation names, described by their summary.
func CompleteOperationNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		defs := operation.DefaultRegistry().Definitions()
		completions := make([]string, 0, len(defs))
		for _, def := range defs {
			if !strings.HasPrefix(def.Name, toComplete) {
				continue
			}
			completions = append(completions, def.Name+"\t"+def.Description)
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	})
}

// CompleteOutputFormats provides completion for --format flag values.
func CompleteOutputFormats(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		return []string{
			format.JSON + "\tIndented JSON",
			format.Markdown + "\tRendered markdown (string results)",
			format.Text + "\tPlain text (string results)",
		}, cobra.ShellCompDirectiveNoFileComp
	})
}
