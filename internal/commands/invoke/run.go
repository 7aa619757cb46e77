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
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tombee/crewctl/internal/cli/format"
	"github.com/tombee/crewctl/internal/cli/prompt"
	"github.com/tombee/crewctl/internal/commands/shared"
	"github.com/tombee/crewctl/internal/jq"
	"github.com/tombee/crewctl/internal/operation"
)

type runFlags struct {
	query         string
	format        string
	noInteractive bool
}

func run(cmd *cobra.Command, def *operation.Definition, input operation.Input, flags runFlags, opts Options) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Reject a bad query before anything is sent.
	executor := jq.NewExecutor(jq.DefaultTimeout, jq.DefaultMaxInputSize)
	if err := executor.Validate(flags.query); err != nil {
		return err
	}
	if _, err := format.Result(nil, flags.format, false); err != nil {
		return shared.NewUsageError("invalid --format", err)
	}

	input, err := collectMissing(ctx, def, input, flags.noInteractive, opts.Prompter)
	if err != nil {
		return err
	}

	rt, err := shared.NewRuntime(ctx, opts.Runtime)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(context.WithoutCancel(ctx)); cerr != nil {
			rt.Logger.Warn("runtime shutdown failed", slog.Any("error", cerr))
		}
	}()

	errOut := cmd.ErrOrStderr()
	if !shared.GetQuiet() {
		for _, w := range rt.Warnings {
			fmt.Fprintln(errOut, shared.RenderWarn(w))
		}
	}

	for _, field := range def.Fields {
		value, ok := input[field]
		if !ok {
			continue
		}
		if err := rt.Store.SetInput(ctx, def.Name, field, value); err != nil {
			return err
		}
	}

	var spinner *shared.Spinner
	if !shared.GetQuiet() && !shared.GetJSON() {
		spinner = shared.NewSpinner()
		spinner.Start(fmt.Sprintf("Running %s", def.Name))
	}
	invokeErr := rt.Invoker.Invoke(ctx, def.Name)
	if spinner != nil {
		spinner.Stop()
	}
	if invokeErr != nil {
		return invokeErr
	}

	state, err := rt.Store.Get(ctx, def.Name)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if shared.GetJSON() {
		if err := shared.EmitJSON(out, state); err != nil {
			return err
		}
	}

	if state.Status == operation.StatusFailed {
		return shared.NewOperationFailedError(state.Error)
	}

	if shared.GetJSON() {
		return nil
	}
	return printResult(ctx, out, executor, state.Result, flags)
}

func collectMissing(ctx context.Context, def *operation.Definition, input operation.Input, noInteractive bool, p prompt.Prompter) (operation.Input, error) {
	if len(prompt.MissingFields(def, input)) == 0 {
		return input, nil
	}
	if p == nil {
		if noInteractive || shared.IsNonInteractive() {
			return input, nil
		}
		p = prompt.NewHuhPrompter(true)
	} else if noInteractive {
		return input, nil
	}
	return prompt.NewInputCollector(p).CollectMissing(ctx, def, input)
}

func printResult(ctx context.Context, w io.Writer, executor *jq.Executor, result any, flags runFlags) error {
	filtered, err := executor.Execute(ctx, flags.query, result)
	if err != nil {
		return err
	}

	rendered, err := format.Result(filtered, flags.format, format.IsTTY(w))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, rendered)
	return err
}
