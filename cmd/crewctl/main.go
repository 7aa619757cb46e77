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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tombee/crewctl/internal/cli"
	"github.com/tombee/crewctl/internal/commands/auth"
	"github.com/tombee/crewctl/internal/commands/completion"
	"github.com/tombee/crewctl/internal/commands/config"
	"github.com/tombee/crewctl/internal/commands/invoke"
	"github.com/tombee/crewctl/internal/commands/operations"
	"github.com/tombee/crewctl/internal/commands/serve"
	"github.com/tombee/crewctl/internal/commands/shared"
	versioncmd "github.com/tombee/crewctl/internal/commands/version"
	"github.com/tombee/crewctl/internal/operation"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	// Set version information from build-time ldflags
	cli.SetVersion(version, commit, buildDate)

	rootCmd := cli.NewRootCommand()

	// One command per remote operation
	rootCmd.AddCommand(invoke.NewCommands(operation.DefaultRegistry(), invoke.Options{})...)

	// State and local API
	rootCmd.AddCommand(operations.NewCommand(shared.RuntimeOptions{}))
	rootCmd.AddCommand(serve.NewCommand(serve.Options{}))

	// Configuration and credentials
	rootCmd.AddCommand(auth.NewCommand(auth.Options{}))
	rootCmd.AddCommand(config.NewConfigCommand())
	rootCmd.AddCommand(completion.NewCommand())

	rootCmd.AddCommand(versioncmd.NewVersionCommand())

	// Custom help command with JSON support
	rootCmd.SetHelpCommand(cli.NewHelpCommand(rootCmd))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		cli.HandleExitError(err)
	}
}
