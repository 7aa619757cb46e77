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

package cli

import (
	"github.com/spf13/cobra"
	"github.com/tombee/crewctl/internal/commands/shared"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command for crewctl
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crewctl",
		Short: "crewctl - client for the AI analysis service",
		Long: `crewctl calls the remote AI service's operations (analyze, recommend,
sentiment, generate-content) and keeps the latest input, status and
result of each one.

Run 'crewctl auth login' to store an API token in the system keychain.
Run 'crewctl operations' to list the available operations.
Run 'crewctl serve' to expose operation state to a local UI.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
	}

	// Get flag pointers from shared package
	verbose, quiet, json, config := shared.RegisterFlagPointers()
	token, baseURL := shared.RegisterConnectionFlagPointers()

	// Add global flags
	cmd.PersistentFlags().BoolVarP(verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVarP(quiet, "quiet", "q", false, "Suppress non-error output")
	cmd.PersistentFlags().BoolVar(json, "json", false, "Output in JSON format")
	cmd.PersistentFlags().StringVar(config, "config", "", "Path to config file (default: ~/.config/crewctl/config.yaml)")
	cmd.PersistentFlags().StringVar(token, "token", "", "API bearer token (overrides CREWCTL_TOKEN and the keychain)")
	cmd.PersistentFlags().StringVar(baseURL, "base-url", "", "Base URL of the AI service (overrides config)")

	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	return cmd
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
