// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry provides the Prometheus metrics and OpenTelemetry
// tracing used by the evaluation engine.
package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Sweeps
// =============================================================================

const (
	namespace = "hashprobe"
	subsystem = "sweep"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics records sweep activity.
//
// A nil *Metrics is valid and records nothing, so library code never has
// to check whether metrics are enabled.
//
// Thread Safety: Safe for concurrent use.
type Metrics struct {
	// hashes counts oracle calls.
	// Labels: sweep (originals, attacked), status (success, error)
	hashes *prometheus.CounterVec

	// hashDuration measures single oracle calls.
	// Labels: sweep
	hashDuration *prometheus.HistogramVec

	// sweepDuration measures whole sweeps from fan-out to join.
	// Labels: sweep, status
	sweepDuration *prometheus.HistogramVec

	// collisions counts zero-distance pairs found by aggregation.
	// Labels: sweep
	collisions *prometheus.CounterVec
}

// NewMetrics creates the sweep collectors and registers them on reg.
//
// Inputs:
//   - reg: Registerer to use. Nil creates unregistered collectors, which
//     is what tests that do not gather want.
//
// Outputs:
//   - *Metrics: Ready to record. Never nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		hashes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "hashes_total",
			Help:      "Total oracle hash computations",
		}, []string{"sweep", "status"}),
		hashDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "hash_duration_seconds",
			Help:      "Duration of a single hash computation in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"sweep"}),
		sweepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "duration_seconds",
			Help:      "Duration of a complete sweep in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"sweep", "status"}),
		collisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "collisions_total",
			Help:      "Total zero-distance hash pairs found by aggregation",
		}, []string{"sweep"}),
	}
}

// ObserveHash records one oracle call.
func (m *Metrics) ObserveHash(sweep string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.hashes.WithLabelValues(sweep, status(err)).Inc()
	m.hashDuration.WithLabelValues(sweep).Observe(d.Seconds())
}

// ObserveSweep records one completed or aborted sweep.
func (m *Metrics) ObserveSweep(sweep string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.sweepDuration.WithLabelValues(sweep, status(err)).Observe(d.Seconds())
}

// AddCollisions adds n collisions found in sweep.
func (m *Metrics) AddCollisions(sweep string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.collisions.WithLabelValues(sweep).Add(float64(n))
}

// WriteTextfile gathers g and writes it in the Prometheus text format to
// path, the format read by the node exporter's textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
