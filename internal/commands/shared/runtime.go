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

package shared

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tombee/crewctl/internal/backend/redis"
	"github.com/tombee/crewctl/internal/config"
	"github.com/tombee/crewctl/internal/credentials"
	"github.com/tombee/crewctl/internal/log"
	"github.com/tombee/crewctl/internal/operation"
	"github.com/tombee/crewctl/internal/operation/transport"
	"github.com/tombee/crewctl/internal/tracing"
	"github.com/tombee/crewctl/pkg/httpclient"
)

// Runtime is everything a command needs to run operations: configuration,
// logger, state store and invoker.
type Runtime struct {
	Config      *config.Config
	Logger      *slog.Logger
	Registry    *operation.Registry
	Store       operation.Store
	Invoker     *operation.Invoker
	TokenSource credentials.Source

	// Warnings are non-fatal problems for the command to show, such as an
	// expired token.
	Warnings []string

	closers []func(context.Context) error
}

// RuntimeOptions customise NewRuntime. The zero value is the production
// setup.
type RuntimeOptions struct {
	// Transport replaces the HTTP transport (tests).
	Transport transport.Client

	// Store replaces the configured store (tests).
	Store operation.Store

	// Now is used for token expiry checks. Default: time.Now.
	Now func() time.Time

	// Offline skips token resolution and the transport. Invoker is nil;
	// only the store is usable.
	Offline bool
}

// LoadConfig loads .env, the config file and environment, then applies the
// global flags.
func LoadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(GetConfigPath())
	if err != nil {
		return nil, err
	}

	if u := GetBaseURL(); u != "" {
		cfg.API.BaseURL = u
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	switch {
	case GetVerbose():
		cfg.Log.Level = "debug"
	case GetQuiet():
		cfg.Log.Level = "error"
	}

	return cfg, nil
}

// NewRuntime builds a Runtime from configuration and flags.
func NewRuntime(ctx context.Context, opts RuntimeOptions) (*Runtime, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return NewRuntimeFromConfig(ctx, cfg, opts)
}

// NewRuntimeFromConfig builds a Runtime from an already-loaded config.
func NewRuntimeFromConfig(ctx context.Context, cfg *config.Config, opts RuntimeOptions) (*Runtime, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	logger := log.New(cfg.LoggerConfig())
	rt := &Runtime{
		Config:   cfg,
		Logger:   logger,
		Registry: operation.DefaultRegistry(),
	}

	client := opts.Transport
	if client == nil && !opts.Offline {
		token, source, err := ResolveToken(cfg)
		if err != nil {
			return nil, err
		}
		rt.TokenSource = source

		if info := credentials.Inspect(token); info.Expired(now()) {
			rt.Warnings = append(rt.Warnings, fmt.Sprintf("API token expired at %s; requests will likely be rejected", info.ExpiresAt.Format(time.RFC3339)))
		}

		httpCfg := httpclient.DefaultConfig()
		httpCfg.Timeout = cfg.API.Timeout
		httpCfg.UserAgent = cfg.API.UserAgent
		httpCfg.Logger = log.WithComponent(logger, "http")
		hc, err := httpclient.New(httpCfg)
		if err != nil {
			return nil, err
		}

		client, err = transport.NewHTTPClient(&transport.HTTPConfig{
			BaseURL:    cfg.API.BaseURL,
			Token:      token,
			Headers:    cfg.API.Headers,
			HTTPClient: hc,
		})
		if err != nil {
			return nil, err
		}
	}

	rt.Store = opts.Store
	if rt.Store == nil {
		store, err := openStore(ctx, cfg, rt.Registry)
		if err != nil {
			return nil, err
		}
		if c, ok := store.(interface{ Close() error }); ok {
			rt.closers = append(rt.closers, func(context.Context) error { return c.Close() })
		}
		rt.Store = store
	}

	shutdown, err := tracing.Setup(ctx, tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		Exporter:       cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRate:     cfg.Tracing.SampleRate,
		ServiceName:    config.AppName,
		ServiceVersion: version,
	})
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	rt.closers = append(rt.closers, shutdown)

	if client != nil {
		rt.Invoker = operation.NewInvoker(rt.Registry, rt.Store, client, operation.WithLogger(logger))
	}
	return rt, nil
}

// Close releases the store and flushes traces.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// ResolveToken returns the API token and where it came from, applying
// flag > CREWCTL_TOKEN > config file > keychain.
func ResolveToken(cfg *config.Config) (string, credentials.Source, error) {
	explicit, source := GetToken(), credentials.SourceFlag
	if explicit == "" {
		if env := os.Getenv("CREWCTL_TOKEN"); env != "" {
			explicit, source = env, credentials.SourceEnv
		} else {
			explicit, source = cfg.API.Token, credentials.SourceConfig
		}
	}
	return credentials.Resolve(explicit, source, cfg.API.BaseURL)
}

// openStore creates the configured state store.
func openStore(ctx context.Context, cfg *config.Config, registry *operation.Registry) (operation.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		rc := cfg.Store.Redis
		store := redis.New(registry, rc.Addr, rc.Password, rc.DB,
			redis.WithPrefix(rc.Prefix),
			redis.WithTTL(rc.TTL),
		)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	default:
		return operation.NewMemoryStore(registry), nil
	}
}
