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

package config

import (
	"fmt"
	"io"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/tombee/crewctl/internal/commands/shared"
	"github.com/tombee/crewctl/internal/config"
)

// ValidationResult represents the result of config validation.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewValidateCommand creates the 'config validate' subcommand.
func NewValidateCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		Long: `Validate the effective configuration.

Checks performed:
  - YAML syntax and structure
  - Every value is in range (base URL, log level, store backend, ...)
  - The token is not stored in plain text in the config file
  - The service is not reached over plain HTTP on a remote host

With --strict, warnings are treated as errors.`,
		Example: `  # Validate configuration
  crewctl config validate

  # Validate with warnings as errors
  crewctl config validate --strict

  # Get validation result as JSON
  crewctl config validate --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, loadErr := runValidate()
			return outputValidationResult(cmd.OutOrStdout(), result, loadErr, strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")

	return cmd
}

// runValidate loads the configuration and collects errors and warnings.
func runValidate() (ValidationResult, error) {
	cfg, err := shared.LoadConfig()
	if err != nil {
		return ValidationResult{Valid: false, Errors: []string{err.Error()}}, err
	}

	return ValidationResult{
		Valid:    true,
		Warnings: warningsFor(cfg),
	}, nil
}

// warningsFor reports valid but risky settings.
func warningsFor(cfg *config.Config) []string {
	var warnings []string

	if cfg.API.Token != "" {
		warnings = append(warnings, "api.token is stored in plain text. Run 'crewctl auth login' to use the system keychain instead.")
	}

	if u, err := url.Parse(cfg.API.BaseURL); err == nil && u.Scheme == "http" && !isLoopback(u.Hostname()) {
		warnings = append(warnings, fmt.Sprintf("api.base_url uses plain HTTP to %s; the bearer token is sent unencrypted.", u.Hostname()))
	}

	if cfg.Store.Backend == config.BackendMemory && cfg.Store.Redis.TTL > 0 {
		warnings = append(warnings, "store.redis.ttl is set but store.backend is memory; the TTL has no effect.")
	}

	return warnings
}

func isLoopback(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// outputValidationResult prints the result and returns an error carrying
// the exit code when validation failed.
func outputValidationResult(w io.Writer, result ValidationResult, loadErr error, strict bool) error {
	if shared.GetJSON() {
		if err := shared.EmitJSON(w, result); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
	} else {
		if result.Valid {
			fmt.Fprintln(w, shared.RenderOK("Configuration is valid"))
		} else {
			fmt.Fprintln(w, shared.RenderError("Configuration validation failed"))
		}
		fmt.Fprintln(w)

		if len(result.Errors) > 0 {
			fmt.Fprintln(w, shared.Header.Render("Errors:"))
			for _, err := range result.Errors {
				fmt.Fprintf(w, "  %s %s\n", shared.StatusError.Render(shared.SymbolError), err)
			}
			fmt.Fprintln(w)
		}

		if len(result.Warnings) > 0 {
			fmt.Fprintln(w, shared.Header.Render("Warnings:"))
			for _, warn := range result.Warnings {
				fmt.Fprintf(w, "  %s %s\n", shared.StatusWarn.Render(shared.SymbolWarn), warn)
			}
			fmt.Fprintln(w)
		}

		if result.Valid && len(result.Warnings) == 0 {
			fmt.Fprintln(w, "No issues found.")
		}
	}

	if !result.Valid {
		return &shared.ExitError{Code: shared.ExitConfig, Message: "configuration is invalid", Cause: loadErr}
	}

	// In strict mode, warnings become errors
	if strict && len(result.Warnings) > 0 {
		return &shared.ExitError{Code: shared.ExitConfig, Message: "validation failed (strict mode: warnings treated as errors)"}
	}

	return nil
}
