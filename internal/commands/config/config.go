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

// Package config implements the config command.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tombee/crewctl/internal/commands/shared"
	"github.com/tombee/crewctl/internal/config"
)

// NewConfigCommand creates the config command with subcommands
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and manage configuration",
		Long: `View and manage crewctl configuration.

Subcommands:
  show     - Display the effective configuration
  path     - Show config file location
  init     - Write a config file with the defaults
  validate - Check the configuration for errors`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigPathCommand())
	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(NewValidateCommand())

	// If no subcommand provided, default to 'show'
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runConfigShow(cmd, args)
	}

	return cmd
}

// newConfigShowCommand creates the 'config show' subcommand
func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the effective configuration: defaults, the config file,
.env and CREWCTL_* environment variables, and global flags merged.

Secrets (token, redis password, auth headers) are masked.
Use --json for machine-readable output.`,
		Args: cobra.NoArgs,
		RunE: runConfigShow,
	}
}

// newConfigPathCommand creates the 'config path' subcommand
func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show config file location",
		Long:  `Display the path to the configuration file.`,
		Args:  cobra.NoArgs,
		RunE:  runConfigPath,
	}
}

func newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := configPath()
			if err != nil {
				return err
			}

			if _, err := os.Stat(cfgPath); err == nil && !force {
				return shared.NewUsageError(fmt.Sprintf("config file already exists at %s (use --force to overwrite)", cfgPath), nil)
			}

			if err := config.Default().Save(cfgPath); err != nil {
				return err
			}

			if !shared.GetQuiet() {
				fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK("Wrote "+cfgPath))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

// runConfigShow displays the current configuration
func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := shared.LoadConfig()
	if err != nil {
		return err
	}

	cfgPath, err := configPath()
	if err != nil {
		return err
	}

	masked := cfg.Redacted()
	out := cmd.OutOrStdout()
	if shared.GetJSON() {
		return outputConfigJSON(out, masked)
	}
	return outputConfigYAML(out, cfgPath, masked)
}

// runConfigPath displays the config file path
func runConfigPath(cmd *cobra.Command, args []string) error {
	cfgPath, err := configPath()
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), cfgPath)
	return nil
}

// configPath returns the --config value or the XDG default.
func configPath() (string, error) {
	if p := shared.GetConfigPath(); p != "" {
		return p, nil
	}
	p, err := config.ConfigPath()
	if err != nil {
		return "", fmt.Errorf("failed to determine config path: %w", err)
	}
	return p, nil
}

// outputConfigJSON outputs config in JSON format, keyed like the YAML file.
func outputConfigJSON(w io.Writer, cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	var generic map[string]any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return shared.EmitJSON(w, generic)
}

// outputConfigYAML outputs config in YAML format
func outputConfigYAML(w io.Writer, path string, cfg *config.Config) error {
	fmt.Fprintf(w, "# Configuration: %s\n", path)
	fmt.Fprintln(w, "# "+strings.Repeat("=", 50))

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return encoder.Close()
}
