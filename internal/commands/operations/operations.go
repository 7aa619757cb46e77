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

// Package operations implements the operations command, which lists the
// registered operations and their current state.
package operations

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/crewctl/internal/commands/completion"
	"github.com/tombee/crewctl/internal/commands/shared"
	"github.com/tombee/crewctl/internal/operation"
)

// Entry is one row of the operations listing.
type Entry struct {
	Name         string           `json:"name"`
	Path         string           `json:"path"`
	Fields       []string         `json:"fields"`
	Description  string           `json:"description"`
	ErrorMessage string           `json:"error_message"`
	State        *operation.State `json:"state,omitempty"`
}

// NewCommand creates the operations command. opts is passed to
// shared.NewRuntime; Offline is always set.
func NewCommand(opts shared.RuntimeOptions) *cobra.Command {
	var withState bool

	cmd := &cobra.Command{
		Use:     "operations",
		Aliases: []string{"ops"},
		Short:   "List operations and their state",
		Long: `List the operations the AI service exposes, with their endpoint
and input fields.

With --state the current input, status and outcome of each operation is
read from the configured store. This is only interesting with the redis
backend, where state outlives a single command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := listEntries(cmd.Context(), withState, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if shared.GetJSON() {
				return shared.EmitJSON(out, map[string][]Entry{"operations": entries})
			}
			return printTable(out, entries, withState)
		},
	}

	cmd.Flags().BoolVar(&withState, "state", false, "Include the stored state of each operation")
	cmd.AddCommand(newShowCommand(opts))

	return cmd
}

func newShowCommand(opts shared.RuntimeOptions) *cobra.Command {
	return &cobra.Command{
		Use:               "show <operation>",
		Short:             "Show the stored state of one operation",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completion.CompleteOperationNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd.Context())

			rt, err := openRuntime(ctx, opts)
			if err != nil {
				return err
			}
			defer closeRuntime(ctx, rt)

			st, err := rt.Store.Get(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if shared.GetJSON() {
				return shared.EmitJSON(out, st)
			}
			printState(out, st)
			return nil
		},
	}
}

func listEntries(ctx context.Context, withState bool, opts shared.RuntimeOptions) ([]Entry, error) {
	ctx = commandContext(ctx)
	registry := operation.DefaultRegistry()

	states := map[string]operation.State{}
	if withState {
		rt, err := openRuntime(ctx, opts)
		if err != nil {
			return nil, err
		}
		defer closeRuntime(ctx, rt)

		registry = rt.Registry
		list, err := rt.Store.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, st := range list {
			states[st.Operation] = st
		}
	}

	entries := make([]Entry, 0, len(registry.Names()))
	for _, def := range registry.Definitions() {
		e := Entry{
			Name:         def.Name,
			Path:         def.Path,
			Fields:       def.Fields,
			Description:  def.Description,
			ErrorMessage: def.ErrorMessage,
		}
		if st, ok := states[def.Name]; ok {
			e.State = &st
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func printTable(out io.Writer, entries []Entry, withState bool) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if withState {
		fmt.Fprintln(w, "NAME\tPATH\tFIELDS\tSTATUS\tUPDATED")
	} else {
		fmt.Fprintln(w, "NAME\tPATH\tFIELDS\tDESCRIPTION")
	}
	for _, e := range entries {
		fields := strings.Join(e.Fields, ", ")
		if withState && e.State != nil {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Name, e.Path, fields, e.State.Status, formatTime(e.State.UpdatedAt))
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, e.Path, fields, e.Description)
	}
	return w.Flush()
}

func printState(out io.Writer, st operation.State) {
	fmt.Fprintf(out, "%s %s\n", shared.Bold.Render(st.Operation), statusLabel(st.Status))
	for _, k := range slices.Sorted(maps.Keys(st.Input)) {
		fmt.Fprintf(out, "  %s %q\n", shared.RenderLabel(k+":"), st.Input[k])
	}
	if st.RequestID != "" {
		fmt.Fprintf(out, "  %s %s\n", shared.RenderLabel("request id:"), st.RequestID)
	}
	if !st.UpdatedAt.IsZero() {
		fmt.Fprintf(out, "  %s %s\n", shared.RenderLabel("updated:"), formatTime(st.UpdatedAt))
	}
	switch st.Status {
	case operation.StatusFailed:
		fmt.Fprintln(out, shared.RenderError(st.Error))
	case operation.StatusSucceeded:
		_ = shared.EmitJSON(out, st.Result)
	}
}

func statusLabel(s operation.Status) string {
	switch s {
	case operation.StatusSucceeded:
		return shared.StatusOK.Render(string(s))
	case operation.StatusFailed:
		return shared.StatusError.Render(string(s))
	case operation.StatusPending:
		return shared.StatusWarn.Render(string(s))
	default:
		return shared.Muted.Render(string(s))
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.RFC3339)
}

func openRuntime(ctx context.Context, opts shared.RuntimeOptions) (*shared.Runtime, error) {
	opts.Offline = true
	return shared.NewRuntime(ctx, opts)
}

func closeRuntime(ctx context.Context, rt *shared.Runtime) {
	if err := rt.Close(context.WithoutCancel(ctx)); err != nil {
		rt.Logger.Warn("runtime shutdown failed", slog.Any("error", err))
	}
}

func commandContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
