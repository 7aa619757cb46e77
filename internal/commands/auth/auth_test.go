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

package auth

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/tombee/crewctl/internal/cli/prompt"
	"github.com/tombee/crewctl/internal/commands/shared"
	"github.com/tombee/crewctl/internal/credentials"
)

const defaultBaseURL = "http://localhost:5000/api"

func isolate(t *testing.T) {
	t.Helper()
	shared.ResetFlagsForTest()
	t.Cleanup(shared.ResetFlagsForTest)
	keyring.MockInit()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("CREWCTL_NON_INTERACTIVE", "true")
	for _, key := range []string{"CREWCTL_TOKEN", "CREWCTL_BASE_URL", "CREWCTL_LOG_LEVEL", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func execute(t *testing.T, opts Options, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	root := &cobra.Command{Use: "crewctl", SilenceUsage: true, SilenceErrors: true}
	verbose, quiet, jsonOut, config := shared.RegisterFlagPointers()
	token, baseURL := shared.RegisterConnectionFlagPointers()
	root.PersistentFlags().BoolVarP(verbose, "verbose", "v", false, "")
	root.PersistentFlags().BoolVarP(quiet, "quiet", "q", false, "")
	root.PersistentFlags().BoolVar(jsonOut, "json", false, "")
	root.PersistentFlags().StringVar(config, "config", "", "")
	root.PersistentFlags().StringVar(token, "token", "", "")
	root.PersistentFlags().StringVar(baseURL, "base-url", "", "")
	root.AddCommand(NewCommand(opts))

	var out, errBuf bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errBuf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err = root.Execute()
	return out.String(), errBuf.String(), err
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-42",
		"iss": "ai.example.com",
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestLogin_FromFlag(t *testing.T) {
	isolate(t)

	stdout, _, err := execute(t, Options{}, "", "auth", "login", "--token", "opaque-token-1234")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Token saved for "+defaultBaseURL)

	got, err := credentials.Lookup(defaultBaseURL)
	require.NoError(t, err)
	assert.Equal(t, "opaque-token-1234", got)
}

func TestLogin_FromStdin(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, Options{}, "  stdin-token \n", "auth", "login", "--with-token", "--base-url", "https://ai.example.com/api")
	require.NoError(t, err)

	got, err := credentials.Lookup("https://ai.example.com/api")
	require.NoError(t, err)
	assert.Equal(t, "stdin-token", got)

	_, err = credentials.Lookup(defaultBaseURL)
	assert.ErrorIs(t, err, credentials.ErrNotFound)
}

func TestLogin_EmptyStdin(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, Options{}, "", "auth", "login", "--with-token")
	require.Error(t, err)
	assert.Equal(t, shared.ExitUsage, shared.ExitCode(err))
}

func TestLogin_Prompted(t *testing.T) {
	isolate(t)
	p := prompt.NewMockPrompter(true, "prompted-token")

	_, _, err := execute(t, Options{Prompter: p}, "", "auth", "login")
	require.NoError(t, err)
	assert.Equal(t, []string{"PromptSecret(API token)"}, p.CallLog())

	got, err := credentials.Lookup(defaultBaseURL)
	require.NoError(t, err)
	assert.Equal(t, "prompted-token", got)
}

func TestLogin_NonInteractiveWithoutToken(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, Options{}, "", "auth", "login")
	require.Error(t, err)
	assert.Equal(t, shared.ExitUsage, shared.ExitCode(err))
	assert.Contains(t, err.Error(), "--with-token")
}

func TestLogin_JWTDetails(t *testing.T) {
	isolate(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tok := signedToken(t, now.Add(time.Hour))

	stdout, stderr, err := execute(t, Options{Now: func() time.Time { return now }}, "", "auth", "login", "--token", tok)
	require.NoError(t, err)
	assert.Contains(t, stdout, "user-42")
	assert.Contains(t, stdout, "ai.example.com")
	assert.NotContains(t, stderr, "expired")
}

func TestLogin_ExpiredTokenWarns(t *testing.T) {
	isolate(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tok := signedToken(t, now.Add(-time.Hour))

	_, stderr, err := execute(t, Options{Now: func() time.Time { return now }}, "", "auth", "login", "--token", tok)
	require.NoError(t, err)
	assert.Contains(t, stderr, "expired")

	got, err := credentials.Lookup(defaultBaseURL)
	require.NoError(t, err)
	assert.Equal(t, tok, got)
}

func TestLogout(t *testing.T) {
	isolate(t)
	require.NoError(t, credentials.Store(defaultBaseURL, "to-remove"))

	stdout, _, err := execute(t, Options{}, "", "auth", "logout")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Token removed")

	_, err = credentials.Lookup(defaultBaseURL)
	assert.ErrorIs(t, err, credentials.ErrNotFound)
}

func TestLogout_NothingStored(t *testing.T) {
	isolate(t)

	stdout, _, err := execute(t, Options{}, "", "auth", "logout")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No token stored")
}

func TestStatus_Sources(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T)
		args   []string
		source credentials.Source
	}{
		{
			name:   "keychain",
			setup:  func(t *testing.T) { require.NoError(t, credentials.Store(defaultBaseURL, "keychain-token")) },
			source: credentials.SourceKeychain,
		},
		{
			name:   "env",
			setup:  func(t *testing.T) { t.Setenv("CREWCTL_TOKEN", "env-token-abcd") },
			source: credentials.SourceEnv,
		},
		{
			name:   "flag",
			args:   []string{"--token", "flag-token-wxyz"},
			source: credentials.SourceFlag,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			if tt.setup != nil {
				tt.setup(t)
			}

			args := append([]string{"auth", "status", "--json"}, tt.args...)
			stdout, _, err := execute(t, Options{}, "", args...)
			require.NoError(t, err)

			var result StatusResult
			require.NoError(t, json.Unmarshal([]byte(stdout), &result))
			assert.Equal(t, tt.source, result.Source)
			assert.Equal(t, defaultBaseURL, result.BaseURL)
			assert.True(t, strings.HasPrefix(result.Token, "..."), "token must be masked: %q", result.Token)
			assert.False(t, result.Info.IsJWT)
		})
	}
}

func TestStatus_NoToken(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, Options{}, "", "auth", "status")
	require.Error(t, err)
	assert.Equal(t, shared.ExitAuth, shared.ExitCode(err))
	assert.Contains(t, shared.SuggestionFor(err), "crewctl auth login")
}

func TestStatus_ExpiredJWT(t *testing.T) {
	isolate(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t.Setenv("CREWCTL_TOKEN", signedToken(t, now.Add(-time.Minute)))

	stdout, _, err := execute(t, Options{Now: func() time.Time { return now }}, "", "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "user-42")
	assert.Contains(t, stdout, "Token expired")
}
