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

// Package server exposes operation state and invocation over a local JSON
// API, so a UI can drive the same operations as the CLI.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	internallog "github.com/tombee/crewctl/internal/log"
	"github.com/tombee/crewctl/internal/operation"
	"github.com/tombee/crewctl/internal/tracing"
	crewerrors "github.com/tombee/crewctl/pkg/errors"
)

// DefaultShutdownTimeout bounds Shutdown when Config.ShutdownTimeout is zero.
const DefaultShutdownTimeout = 30 * time.Second

// ErrDraining is returned for invocations requested during shutdown.
var ErrDraining = errors.New("server is shutting down")

// Config configures the API server.
type Config struct {
	// Listen is the TCP address, e.g. "127.0.0.1:8088"
	Listen string

	// ShutdownTimeout bounds the wait for in-flight invocations
	ShutdownTimeout time.Duration

	// Version is reported by /healthz
	Version string
}

// Server is the local JSON API.
type Server struct {
	cfg     Config
	invoker *operation.Invoker
	logger  *slog.Logger

	mu         sync.Mutex
	draining   bool
	inflight   sync.WaitGroup
	httpServer *http.Server
}

// New creates a server. The invoker's registry and store back every route.
func New(cfg Config, invoker *operation.Invoker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = internallog.Discard()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &Server{
		cfg:     cfg,
		invoker: invoker,
		logger:  internallog.WithComponent(logger, "server"),
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(tracing.CorrelationMiddleware)
	r.Use(internallog.HTTPMiddleware(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/operations", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Put("/input", s.handleSetInput)
			r.Post("/invoke", s.handleInvoke)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

// Serve serves on ln until ctx is done or the server fails. On ctx
// cancellation it calls Shutdown, which waits for in-flight invocations.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("crewctl API listening",
		slog.String("listen_addr", ln.Addr().String()),
		slog.String("version", s.cfg.Version))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Shutdown stops accepting invocations, stops the HTTP server and waits for
// in-flight invocations until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.draining = true
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("graceful shutdown initiated")

	var errs []error
	if srv != nil {
		srv.SetKeepAlivesEnabled(false)
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, crewerrors.Wrap(err, "http shutdown"))
		}
	}

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("all invocations completed during drain")
	case <-ctx.Done():
		s.logger.Warn("drain timeout exceeded", slog.Duration("shutdown_timeout", s.cfg.ShutdownTimeout))
		errs = append(errs, crewerrors.Wrap(ctx.Err(), "waiting for invocations"))
	}

	return errors.Join(errs...)
}

// startInvocation runs the named operation in the background, detached from
// the request context. It fails with ErrDraining once Shutdown has begun.
func (s *Server) startInvocation(ctx context.Context, name string) error {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return ErrDraining
	}
	s.inflight.Add(1)
	s.mu.Unlock()

	done := s.invoker.InvokeAsync(context.WithoutCancel(ctx), name)
	go func() {
		defer s.inflight.Done()
		if err := <-done; err != nil {
			s.logger.Error("background invocation failed",
				slog.String(internallog.OperationKey, name),
				internallog.Error(err))
		}
	}()
	return nil
}
