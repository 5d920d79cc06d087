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
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// =============================================================================
// Metrics Tests
// =============================================================================

func TestMetrics_ObserveHash(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveHash("originals", time.Millisecond, nil)
	m.ObserveHash("originals", time.Millisecond, nil)
	m.ObserveHash("attacked", time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.hashes.WithLabelValues("originals", StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.hashes.WithLabelValues("attacked", StatusError)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.hashDuration))
}

func TestMetrics_AddCollisions(t *testing.T) {
	m := NewMetrics(nil)

	m.AddCollisions("attacked", 3)
	m.AddCollisions("attacked", 0)
	m.AddCollisions("attacked", -2)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.collisions.WithLabelValues("attacked")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHash("originals", time.Second, nil)
		m.ObserveSweep("originals", time.Second, nil)
		m.AddCollisions("originals", 1)
	})
}

func TestMetrics_RegisterTwiceOnSameRegistryPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	assert.Panics(t, func() { NewMetrics(reg) })
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.ObserveSweep("originals", 2*time.Second, nil)
	m.AddCollisions("originals", 4)

	path := filepath.Join(t.TempDir(), "hashprobe.prom")
	require.NoError(t, WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `hashprobe_sweep_collisions_total{sweep="originals"} 4`)
	assert.Contains(t, string(data), "hashprobe_sweep_duration_seconds_count")
}

func TestWriteTextfile_BadPath(t *testing.T) {
	err := WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "m.prom"), prometheus.NewRegistry())
	assert.Error(t, err)
}

// =============================================================================
// Tracing Tests
// =============================================================================

func TestNewTracing_InvalidConfig(t *testing.T) {
	_, err := NewTracing(nil)
	assert.ErrorIs(t, err, ErrInvalidTracingConfig)

	_, err = NewTracing(&TracingConfig{})
	assert.ErrorIs(t, err, ErrInvalidTracingConfig)
}

func TestTracing_ExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultTracingConfig()
	cfg.Writer = &buf

	tr, err := NewTracing(cfg)
	require.NoError(t, err)

	_, span := tr.Tracer().Start(context.Background(), "sweep.originals")
	EndSpan(span, nil)
	require.NoError(t, tr.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "sweep.originals")
	assert.Contains(t, buf.String(), "hashprobe")
}

func TestEndSpan_RecordsError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	_, ok := tp.Tracer("test").Start(context.Background(), "ok")
	EndSpan(ok, nil)
	_, failed := tp.Tracer("test").Start(context.Background(), "failed")
	EndSpan(failed, errors.New("decode failed"))

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "decode failed", spans[1].Status().Description)
	require.Len(t, spans[1].Events(), 1)
}
