// Package jq filters operation results with jq expressions.
package jq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/itchyny/gojq"

	crewerrors "github.com/tombee/crewctl/pkg/errors"
)

const (
	// DefaultTimeout is the default execution time for jq expressions (1 second)
	DefaultTimeout = 1 * time.Second

	// DefaultMaxInputSize is the default maximum input size (10MB)
	DefaultMaxInputSize = 10 * 1024 * 1024
)

// Executor handles jq expression evaluation with timeout and size limits.
type Executor struct {
	timeout      time.Duration
	maxInputSize int64
}

// NewExecutor creates a new jq executor with the given configuration.
func NewExecutor(timeout time.Duration, maxInputSize int64) *Executor {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if maxInputSize == 0 {
		maxInputSize = DefaultMaxInputSize
	}

	return &Executor{
		timeout:      timeout,
		maxInputSize: maxInputSize,
	}
}

// Execute runs expression against data. A single output is returned as is,
// several outputs as a slice, and no output as nil. An invalid expression
// is a *errors.ValidationError on the "query" field.
func (e *Executor) Execute(ctx context.Context, expression string, data any) (any, error) {
	if expression == "" {
		return data, nil
	}

	code, err := compile(expression)
	if err != nil {
		return nil, err
	}

	input, err := e.normalize(data)
	if err != nil {
		return nil, err
	}

	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type outcome struct {
		results []any
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		iter := code.RunWithContext(execCtx, input)
		var results []any
		for {
			v, ok := iter.Next()
			if !ok {
				break
			}
			if err, isErr := v.(error); isErr {
				done <- outcome{err: err}
				return
			}
			results = append(results, v)
		}
		done <- outcome{results: results}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, fmt.Errorf("query failed: %w", out.err)
		}
		switch len(out.results) {
		case 0:
			return nil, nil
		case 1:
			return out.results[0], nil
		default:
			return out.results, nil
		}
	case <-execCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("query timeout after %v", e.timeout)
	}
}

// Validate reports whether expression parses and compiles.
func (e *Executor) Validate(expression string) error {
	if expression == "" {
		return nil
	}
	_, err := compile(expression)
	return err
}

func compile(expression string) (*gojq.Code, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, &crewerrors.ValidationError{
			Field:      "query",
			Message:    fmt.Sprintf("invalid jq expression: %v", err),
			Suggestion: "See https://jqlang.github.io/jq/manual/ for the expression syntax",
		}
	}

	code, err := gojq.Compile(query)
	if err != nil {
		return nil, &crewerrors.ValidationError{
			Field:   "query",
			Message: fmt.Sprintf("jq compilation failed: %v", err),
		}
	}
	return code, nil
}

// normalize enforces the size limit and converts data into the plain JSON
// types gojq accepts (typed maps and structs are rejected by gojq).
func (e *Executor) normalize(data any) (any, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data: %w", err)
	}

	if int64(len(jsonData)) > e.maxInputSize {
		return nil, fmt.Errorf("data size (%d bytes) exceeds maximum (%d bytes)",
			len(jsonData), e.maxInputSize)
	}

	var out any
	if err := json.Unmarshal(jsonData, &out); err != nil {
		return nil, fmt.Errorf("failed to normalize data: %w", err)
	}
	return out, nil
}
