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

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tombee/crewctl/internal/operation"
	pkgerrors "github.com/tombee/crewctl/pkg/errors"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Store   string `json:"store"`
}

// InvokeResponse is the body of an accepted invocation.
type InvokeResponse struct {
	Operation string `json:"operation"`
	Accepted  bool   `json:"accepted"`
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Version: s.cfg.Version, Store: "ok"}
	if p, ok := s.invoker.Store().(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Store = err.Error()
			WriteJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	states, err := s.invoker.Store().List(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, states)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	st, err := s.invoker.Store().Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, st)
}

// handleSetInput applies a JSON object of field to string value. Every
// field is checked before any is written.
func (s *Server) handleSetInput(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	def, err := s.invoker.Registry().Resolve(name)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	var values map[string]string
	if err := decodeBody(r, &values); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(values) == 0 {
		WriteError(w, http.StatusBadRequest, "request body must be a non-empty object of field values")
		return
	}

	for field := range values {
		if err := operation.ValidateField(def, field); err != nil {
			s.writeStoreError(w, err)
			return
		}
	}

	ctx := r.Context()
	for _, field := range def.Fields {
		value, ok := values[field]
		if !ok {
			continue
		}
		if err := s.invoker.Store().SetInput(ctx, name, field, value); err != nil {
			s.writeStoreError(w, err)
			return
		}
	}

	st, err := s.invoker.Store().Get(ctx, name)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, st)
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, err := s.invoker.Registry().Resolve(name); err != nil {
		s.writeStoreError(w, err)
		return
	}

	if err := s.startInvocation(r.Context(), name); err != nil {
		WriteError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	WriteJSON(w, http.StatusAccepted, InvokeResponse{Operation: name, Accepted: true})
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	var unknown *operation.UnknownOperationError
	var valErr *pkgerrors.ValidationError
	switch {
	case errors.As(err, &unknown):
		WriteErrorWithSuggestion(w, http.StatusNotFound, err.Error(), unknown.Suggestion())
	case errors.As(err, &valErr):
		WriteErrorWithSuggestion(w, http.StatusBadRequest, valErr.Error(), valErr.Suggestion)
	default:
		s.logger.Error("store request failed", slog.Any("error", err))
		WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
