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

package tracing

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc/credentials"
)

// Exporter names accepted in Config.Exporter.
const (
	ExporterStdout   = "stdout"
	ExporterOTLPHTTP = "otlp-http"
	ExporterOTLPGRPC = "otlp-grpc"
)

// Exporters lists the accepted exporter names.
var Exporters = []string{ExporterStdout, ExporterOTLPHTTP, ExporterOTLPGRPC}

// Config configures span export for invocations.
type Config struct {
	// Enabled turns span export on. When false Setup installs nothing and
	// the global no-op provider stays in place.
	Enabled bool

	// Exporter is "stdout", "otlp-http" or "otlp-grpc".
	Exporter string

	// Endpoint is the OTLP collector host:port (otlp-http and otlp-grpc).
	Endpoint string

	// Insecure disables TLS to the collector (development only).
	Insecure bool

	// SampleRate is the fraction of invocations traced (0.0 - 1.0).
	// Zero means always sample.
	SampleRate float64

	// ServiceName and ServiceVersion populate the OTel resource.
	ServiceName    string
	ServiceVersion string

	// Writer receives stdout exporter output. Default: os.Stderr, so traces
	// never interleave with command results on stdout.
	Writer io.Writer
}

// ShutdownFunc flushes pending spans and releases exporter resources.
type ShutdownFunc func(ctx context.Context) error

// Setup installs a global OpenTelemetry tracer provider according to cfg.
// The returned ShutdownFunc is never nil.
func Setup(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop, nil
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return noop, err
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "crewctl"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return noop, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SampleRate)),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "", ExporterStdout:
		w := cfg.Writer
		if w == nil {
			w = os.Stderr
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
		return exp, nil

	case ExporterOTLPHTTP:
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("tracing endpoint is required for %s exporter", ExporterOTLPHTTP)
		}
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		} else {
			opts = append(opts, otlptracehttp.WithTLSClientConfig(&tls.Config{
				MinVersion: tls.VersionTLS12,
			}))
		}
		exp, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP HTTP exporter: %w", err)
		}
		return exp, nil

	case ExporterOTLPGRPC:
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("tracing endpoint is required for %s exporter", ExporterOTLPGRPC)
		}
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		} else {
			// Default TLS (system cert pool with TLS 1.2+)
			opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewTLS(&tls.Config{
				MinVersion: tls.VersionTLS12,
			})))
		}
		exp, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP gRPC exporter: %w", err)
		}
		return exp, nil

	default:
		return nil, fmt.Errorf("unknown tracing exporter %q (must be one of: %s)", cfg.Exporter, strings.Join(Exporters, ", "))
	}
}

func newSampler(rate float64) sdktrace.Sampler {
	if rate <= 0 || rate >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
}
