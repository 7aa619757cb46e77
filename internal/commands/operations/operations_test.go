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

package operations

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/tombee/crewctl/internal/commands/shared"
	"github.com/tombee/crewctl/internal/operation"
)

func isolate(t *testing.T) {
	t.Helper()
	shared.ResetFlagsForTest()
	t.Cleanup(shared.ResetFlagsForTest)
	keyring.MockInit()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())
	for _, key := range []string{"CREWCTL_TOKEN", "CREWCTL_STORE_BACKEND", "CREWCTL_TRACING_EXPORTER"} {
		t.Setenv(key, "")
	}
	t.Setenv("NO_COLOR", "1")
}

func execute(t *testing.T, opts shared.RuntimeOptions, args ...string) (string, error) {
	t.Helper()

	root := &cobra.Command{Use: "crewctl", SilenceUsage: true, SilenceErrors: true}
	_, _, jsonOut, _ := shared.RegisterFlagPointers()
	root.PersistentFlags().BoolVar(jsonOut, "json", false, "")
	root.AddCommand(NewCommand(opts))

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func seededStore(t *testing.T) operation.Store {
	t.Helper()
	ctx := context.Background()
	store := operation.NewMemoryStore(operation.DefaultRegistry())

	require.NoError(t, store.SetInput(ctx, operation.Sentiment, "text", "lovely"))
	_, err := store.Begin(ctx, operation.Sentiment, "req-1")
	require.NoError(t, err)
	require.NoError(t, store.SetResult(ctx, operation.Sentiment, "req-1", map[string]any{"sentiment": "positive"}))

	_, err = store.Begin(ctx, operation.Analyze, "req-2")
	require.NoError(t, err)
	require.NoError(t, store.SetError(ctx, operation.Analyze, "req-2", "Error analyzing data"))
	return store
}

func TestOperations_Table(t *testing.T) {
	isolate(t)

	out, err := execute(t, shared.RuntimeOptions{}, "operations")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Contains(t, lines[4], "generate-content")
	assert.Contains(t, lines[4], "topic, content_type")
}

func TestOperations_JSON(t *testing.T) {
	isolate(t)

	out, err := execute(t, shared.RuntimeOptions{}, "operations", "--json")
	require.NoError(t, err)

	var resp map[string][]Entry
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	entries := resp["operations"]
	require.Len(t, entries, 4)
	assert.Equal(t, "/recommend", entries[1].Path)
	assert.Equal(t, "Error getting recommendation", entries[1].ErrorMessage)
	assert.Nil(t, entries[1].State)
}

func TestOperations_WithState(t *testing.T) {
	isolate(t)

	out, err := execute(t, shared.RuntimeOptions{Store: seededStore(t)}, "operations", "--state", "--json")
	require.NoError(t, err)

	var resp map[string][]Entry
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	byName := map[string]Entry{}
	for _, e := range resp["operations"] {
		byName[e.Name] = e
	}

	require.NotNil(t, byName["sentiment"].State)
	assert.Equal(t, operation.StatusSucceeded, byName["sentiment"].State.Status)
	assert.Equal(t, operation.StatusFailed, byName["analyze"].State.Status)
	assert.Equal(t, operation.StatusIdle, byName["recommend"].State.Status)
}

func TestOperations_StateDoesNotNeedToken(t *testing.T) {
	isolate(t)

	out, err := execute(t, shared.RuntimeOptions{}, "operations", "--state")
	require.NoError(t, err)
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "idle")
}

func TestShow(t *testing.T) {
	isolate(t)
	store := seededStore(t)

	out, err := execute(t, shared.RuntimeOptions{Store: store}, "operations", "show", "sentiment")
	require.NoError(t, err)
	assert.Contains(t, out, "succeeded")
	assert.Contains(t, out, `"lovely"`)
	assert.Contains(t, out, `"sentiment": "positive"`)

	out, err = execute(t, shared.RuntimeOptions{Store: store}, "operations", "show", "analyze")
	require.NoError(t, err)
	assert.Contains(t, out, "Error analyzing data")
}

func TestShow_UnknownOperation(t *testing.T) {
	isolate(t)

	_, err := execute(t, shared.RuntimeOptions{}, "operations", "show", "translate")
	require.ErrorIs(t, err, operation.ErrUnknownOperation)
	assert.Equal(t, shared.ExitUsage, shared.ExitCode(err))
}
