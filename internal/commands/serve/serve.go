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

// Package serve implements the serve command, which runs the local JSON API.
package serve

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tombee/crewctl/internal/commands/shared"
	"github.com/tombee/crewctl/internal/config"
	"github.com/tombee/crewctl/internal/server"
	crewerrors "github.com/tombee/crewctl/pkg/errors"
)

// Options customise the serve command for tests.
type Options struct {
	Runtime shared.RuntimeOptions

	// Ready is called with the bound address once the listener is open.
	Ready func(addr net.Addr)
}

// NewCommand creates the serve command.
func NewCommand(opts Options) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local JSON API",
		Long: `Run a local HTTP server exposing operation state and invocation as JSON,
for a UI that drives the same operations as the CLI.

Endpoints:
  GET  /healthz
  GET  /operations
  GET  /operations/{name}
  PUT  /operations/{name}/input     body: {"field": "value", ...}
  POST /operations/{name}/invoke    202 Accepted, runs in the background
  GET  /metrics                     Prometheus metrics

Use a redis store backend to share state with CLI invocations in other
processes. On SIGINT or SIGTERM the server stops accepting requests and waits
for in-flight invocations, up to server.shutdown_timeout.`,
		Example: `  # Listen on the configured address (default 127.0.0.1:8088)
  crewctl serve

  # Listen on another port
  crewctl serve --listen 127.0.0.1:9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, listen, opts)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Address to listen on (default: server.listen, 127.0.0.1:8088)")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, listen string, opts Options) error {
	cfg, err := shared.LoadConfig()
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Server.Listen = listen
	}
	// The server's log is its operator channel; record invocation failures.
	if cfg.Log.Level == config.DefaultLogLevel && !shared.GetQuiet() {
		cfg.Log.Level = "info"
	}

	rt, err := shared.NewRuntimeFromConfig(ctx, cfg, opts.Runtime)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(context.WithoutCancel(ctx)) }()

	for _, w := range rt.Warnings {
		rt.Logger.Warn(w)
	}

	v, _, _ := shared.GetVersion()
	rt.Logger.Info("crewctl starting",
		"version", v,
		"base_url", cfg.API.BaseURL,
		"store", cfg.Store.Backend)

	srv := server.New(server.Config{
		Listen:          cfg.Server.Listen,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Version:         v,
	}, rt.Invoker, rt.Logger)

	ln, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		return crewerrors.Wrapf(err, "listen on %s", cfg.Server.Listen)
	}

	if !shared.GetQuiet() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Listening on http://%s\n", ln.Addr())
	}
	if opts.Ready != nil {
		opts.Ready(ln.Addr())
	}

	if err := srv.Serve(ctx, ln); err != nil {
		return err
	}

	rt.Logger.Info("shutdown complete")
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
