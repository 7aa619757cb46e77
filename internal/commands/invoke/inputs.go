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

package invoke

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tombee/crewctl/internal/commands/shared"
	"github.com/tombee/crewctl/internal/operation"
)

// inputFromCommand collects the fields set by flags or positional
// arguments. A field given both ways is a usage error. Fields not given at
// all are absent from the result; an explicit empty value is kept.
func inputFromCommand(cmd *cobra.Command, def *operation.Definition, args []string) (operation.Input, error) {
	input := make(operation.Input, len(def.Fields))

	for i, arg := range args {
		input[def.Fields[i]] = arg
	}

	for _, field := range def.Fields {
		flag := cmd.Flags().Lookup(FlagName(field))
		if flag == nil || !flag.Changed {
			continue
		}
		if _, dup := input[field]; dup {
			return nil, shared.NewUsageError(
				fmt.Sprintf("%s given both as an argument and as --%s", field, flag.Name), nil)
		}
		input[field] = flag.Value.String()
	}

	return input, nil
}
