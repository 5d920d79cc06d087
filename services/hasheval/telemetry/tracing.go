// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"errors"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// -----------------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------------

var (
	// ErrTracingInitFailed is returned when the exporter cannot be created.
	ErrTracingInitFailed = errors.New("tracing initialization failed")

	// ErrInvalidTracingConfig is returned when the tracing configuration is invalid.
	ErrInvalidTracingConfig = errors.New("invalid tracing configuration")
)

// InstrumentationName is the instrumentation scope of every engine span.
const InstrumentationName = "github.com/AleutianAI/hashprobe/services/hasheval"

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// TracingConfig configures the stdout span exporter.
type TracingConfig struct {
	// ServiceName is recorded as the service.name resource attribute.
	// Required.
	ServiceName string

	// ServiceVersion is the instrumentation version. Optional.
	ServiceVersion string

	// Writer receives the exported spans. Default: os.Stderr.
	Writer io.Writer

	// PrettyPrint indents the exported JSON.
	PrettyPrint bool
}

// DefaultTracingConfig returns a configuration exporting to stderr.
func DefaultTracingConfig() *TracingConfig {
	return &TracingConfig{
		ServiceName:    "hashprobe",
		ServiceVersion: "1.0.0",
		Writer:         os.Stderr,
	}
}

// Validate checks that required fields are set.
func (c *TracingConfig) Validate() error {
	if c.ServiceName == "" {
		return errors.New("service name is required")
	}
	return nil
}

// -----------------------------------------------------------------------------
// Tracing
// -----------------------------------------------------------------------------

// Tracing owns a tracer provider that writes finished spans as JSON.
//
// Thread Safety: Safe for concurrent use.
//
// Example:
//
//	tr, err := telemetry.NewTracing(telemetry.DefaultTracingConfig())
//	if err != nil {
//	    return fmt.Errorf("init tracing: %w", err)
//	}
//	defer tr.Shutdown(context.Background())
type Tracing struct {
	config   TracingConfig
	provider *sdktrace.TracerProvider
}

// NewTracing creates the exporter and provider.
//
// Inputs:
//   - config: Tracing configuration. Must not be nil.
//
// Outputs:
//   - *Tracing: Never nil on success. The caller must call Shutdown.
//   - error: Non-nil if the configuration is invalid or the exporter fails.
func NewTracing(config *TracingConfig) (*Tracing, error) {
	if config == nil {
		return nil, ErrInvalidTracingConfig
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidTracingConfig, err)
	}

	cfg := *config
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}

	opts := []stdouttrace.Option{stdouttrace.WithWriter(cfg.Writer)}
	if cfg.PrettyPrint {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, errors.Join(ErrTracingInitFailed, err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.ServiceVersion),
		)),
	)

	return &Tracing{config: cfg, provider: provider}, nil
}

// Tracer returns the engine tracer of this provider.
func (t *Tracing) Tracer() trace.Tracer {
	return t.provider.Tracer(InstrumentationName, trace.WithInstrumentationVersion(t.config.ServiceVersion))
}

// Shutdown flushes and stops the provider.
func (t *Tracing) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}

// DefaultTracer returns the engine tracer of the global provider, a no-op
// unless the process installed one.
func DefaultTracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
