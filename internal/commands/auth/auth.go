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

// Package auth implements the auth command, which manages the API token
// kept in the system keychain.
package auth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/crewctl/internal/cli/prompt"
	"github.com/tombee/crewctl/internal/commands/shared"
	"github.com/tombee/crewctl/internal/credentials"
	internallog "github.com/tombee/crewctl/internal/log"
)

// Options customise the auth commands for tests.
type Options struct {
	// Prompter reads the token interactively. Default: huh when the
	// terminal is interactive.
	Prompter prompt.Prompter

	// Now is used for expiry checks. Default: time.Now.
	Now func() time.Time
}

// StatusResult is the --json output of "auth status".
type StatusResult struct {
	BaseURL string                `json:"base_url"`
	Source  credentials.Source    `json:"source"`
	Token   string                `json:"token"`
	Info    credentials.TokenInfo `json:"info"`
	Expired bool                  `json:"expired"`
}

// NewCommand creates the auth command.
func NewCommand(opts Options) *cobra.Command {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the API token",
		Long: `Manage the bearer token sent to the AI service.

Tokens are stored in the system keychain (macOS Keychain, Windows
Credential Manager, Linux Secret Service) under the service "crewctl",
one entry per base URL.

Token precedence when running operations:
  1. --token flag
  2. CREWCTL_TOKEN environment variable
  3. api.token in the config file
  4. keychain entry for the base URL`,
	}

	cmd.AddCommand(newLoginCommand(opts))
	cmd.AddCommand(newLogoutCommand())
	cmd.AddCommand(newStatusCommand(opts))

	return cmd
}

func newLoginCommand(opts Options) *cobra.Command {
	var withToken bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API token in the keychain",
		Example: `  # Prompt for the token
  crewctl auth login

  # Read the token from stdin
  echo "$TOKEN" | crewctl auth login --with-token

  # Store a token for another service
  crewctl auth login --base-url https://ai.example.com/api`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := shared.LoadConfig()
			if err != nil {
				return err
			}
			baseURL := cfg.API.BaseURL

			token, err := readToken(cmd, withToken, baseURL, opts.Prompter)
			if err != nil {
				return err
			}

			if err := credentials.Store(baseURL, token); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if shared.GetQuiet() {
				return nil
			}
			fmt.Fprintln(out, shared.RenderOK("Token saved for "+baseURL))
			info := credentials.Inspect(token)
			printInfo(out, info)
			if info.Expired(opts.Now()) {
				fmt.Fprintln(cmd.ErrOrStderr(), shared.RenderWarn("This token has already expired"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withToken, "with-token", false, "Read the token from standard input")
	return cmd
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := shared.LoadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			err = credentials.Delete(cfg.API.BaseURL)
			switch {
			case errors.Is(err, credentials.ErrNotFound):
				if !shared.GetQuiet() {
					fmt.Fprintln(out, shared.RenderWarn("No token stored for "+cfg.API.BaseURL))
				}
				return nil
			case err != nil:
				return err
			}

			if !shared.GetQuiet() {
				fmt.Fprintln(out, shared.RenderOK("Token removed for "+cfg.API.BaseURL))
			}
			return nil
		},
	}
}

func newStatusCommand(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which token will be used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := shared.LoadConfig()
			if err != nil {
				return err
			}

			token, source, err := shared.ResolveToken(cfg)
			if err != nil {
				return err
			}

			info := credentials.Inspect(token)
			result := StatusResult{
				BaseURL: cfg.API.BaseURL,
				Source:  source,
				Token:   internallog.SanitizeAPIKey(token),
				Info:    info,
				Expired: info.Expired(opts.Now()),
			}

			out := cmd.OutOrStdout()
			if shared.GetJSON() {
				return shared.EmitJSON(out, result)
			}

			fmt.Fprintf(out, "%s %s\n", shared.RenderLabel("Base URL:"), result.BaseURL)
			fmt.Fprintf(out, "%s %s\n", shared.RenderLabel("Source:  "), result.Source)
			fmt.Fprintf(out, "%s %s\n", shared.RenderLabel("Token:   "), result.Token)
			printInfo(out, info)
			if result.Expired {
				fmt.Fprintln(out, shared.RenderWarn("Token expired; requests will likely be rejected"))
			}
			return nil
		},
	}
}

// readToken takes the token from --token, stdin or an interactive prompt,
// in that order.
func readToken(cmd *cobra.Command, fromStdin bool, baseURL string, p prompt.Prompter) (string, error) {
	if t := shared.GetToken(); t != "" {
		return t, nil
	}

	if fromStdin {
		return readTokenFrom(cmd.InOrStdin())
	}

	if p == nil {
		if shared.IsNonInteractive() {
			return "", shared.NewUsageError("no token given: pass --token or --with-token when not running in a terminal", nil)
		}
		p = prompt.NewHuhPrompter(true)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	token, err := p.PromptSecret(ctx, "API token", "Bearer token for "+baseURL)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func readTokenFrom(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read token from stdin: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func printInfo(w io.Writer, info credentials.TokenInfo) {
	if !info.IsJWT {
		return
	}
	if info.Subject != "" {
		fmt.Fprintf(w, "%s %s\n", shared.RenderLabel("Subject: "), info.Subject)
	}
	if info.Issuer != "" {
		fmt.Fprintf(w, "%s %s\n", shared.RenderLabel("Issuer:  "), info.Issuer)
	}
	if info.ExpiresAt != nil {
		fmt.Fprintf(w, "%s %s\n", shared.RenderLabel("Expires: "), info.ExpiresAt.Format(time.RFC3339))
	}
}
