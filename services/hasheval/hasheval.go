// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package hasheval runs a complete perceptual-hash robustness evaluation:
// corpus discovery, the originals and attacked sweeps, aggregation and
// report rendering.
//
// # Data Flow
//
//	corpus.Discover
//	      |
//	      +--> sweep.Originals --> aggregate.Originals --+
//	      |                                               +--> aggregate.Attacked --> report
//	      +--> sweep.Attacked ----------------------------+
//
// The two sweeps run concurrently. The originals statistics are computed
// as soon as the originals sweep joins; the attacked statistics need both
// tables. Nothing is rendered unless every step succeeded.
package hasheval

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/hashprobe/pkg/logging"
	"github.com/AleutianAI/hashprobe/services/hasheval/aggregate"
	"github.com/AleutianAI/hashprobe/services/hasheval/corpus"
	"github.com/AleutianAI/hashprobe/services/hasheval/oracle"
	"github.com/AleutianAI/hashprobe/services/hasheval/report"
	"github.com/AleutianAI/hashprobe/services/hasheval/sweep"
	"github.com/AleutianAI/hashprobe/services/hasheval/telemetry"
)

// Config is the input of one evaluation run.
type Config struct {
	// Layout locates the corpus.
	Layout corpus.Layout

	// Grid is the fuzziness x resolution space.
	Grid sweep.Grid

	// Sweep holds the sweep options.
	Sweep sweep.Options
}

// DefaultConfig returns the reference evaluation over the corpus at root.
func DefaultConfig(root string) Config {
	return Config{
		Layout: corpus.DefaultLayout(root),
		Grid:   sweep.DefaultGrid(),
		Sweep:  sweep.DefaultOptions(),
	}
}

// Result is the outcome of a successful run.
type Result struct {
	// RunID identifies the run in logs and spans.
	RunID string

	// Corpus is the discovered corpus.
	Corpus *corpus.Corpus

	// Originals holds the distances of every original to image 0.
	Originals *aggregate.OriginalStats

	// Attacked holds the distances of every attacked image to its original.
	Attacked *aggregate.AttackedStats

	// Duration is the wall time of the run.
	Duration time.Duration
}

// Render writes the three report views to w.
func (r *Result) Render(w io.Writer) error {
	return report.New(w).All(r.Originals, r.Attacked)
}

// =============================================================================
// Run Options
// =============================================================================

// RunOptions holds the collaborators of a run.
type RunOptions struct {
	RunID    string
	Logger   *logging.Logger
	Metrics  *telemetry.Metrics
	Tracer   trace.Tracer
	Progress sweep.ProgressFunc
}

// RunOption is a functional option for configuring Run.
type RunOption func(*RunOptions)

// WithRunID sets the run ID. Default: a random UUID.
func WithRunID(id string) RunOption {
	return func(o *RunOptions) {
		o.RunID = id
	}
}

// WithLogger sets the logger. Default: logging.Discard().
func WithLogger(l *logging.Logger) RunOption {
	return func(o *RunOptions) {
		o.Logger = l
	}
}

// WithMetrics sets the Prometheus metrics.
func WithMetrics(m *telemetry.Metrics) RunOption {
	return func(o *RunOptions) {
		o.Metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) RunOption {
	return func(o *RunOptions) {
		o.Tracer = t
	}
}

// WithProgress sets the sweep progress callback.
func WithProgress(fn sweep.ProgressFunc) RunOption {
	return func(o *RunOptions) {
		o.Progress = fn
	}
}

// =============================================================================
// Run
// =============================================================================

// Run evaluates oracle o over the corpus and grid of cfg.
//
// Inputs:
//   - ctx: Cancels both sweeps.
//   - cfg: Corpus layout, grid and sweep options.
//   - o: The hashing oracle.
//   - distance: The distance primitive for H.
//   - options: Run ID, logger, metrics, tracer and progress.
//
// Outputs:
//   - *Result: Statistics ready to render. Nil on error.
//   - error: *corpus.DiscoveryError, *sweep.HashError,
//     *sweep.ShapeMismatchError, a configuration error or the context
//     error. Any error aborts the whole run.
//
// Example:
//
//	res, err := hasheval.Run(ctx, hasheval.DefaultConfig("./corpus"),
//	    oracle.NewGHash(), oracle.Hamming)
//	if err != nil {
//	    return err
//	}
//	return res.Render(os.Stdout)
func Run[H any](ctx context.Context, cfg Config, o oracle.Oracle[H], distance oracle.Distance[H], options ...RunOption) (*Result, error) {
	ro := RunOptions{}
	for _, opt := range options {
		opt(&ro)
	}
	if ro.RunID == "" {
		ro.RunID = uuid.NewString()
	}
	if ro.Logger == nil {
		ro.Logger = logging.Discard()
	}
	if ro.Tracer == nil {
		ro.Tracer = telemetry.DefaultTracer()
	}
	if distance == nil {
		return nil, fmt.Errorf("%w: distance function is required", sweep.ErrInvalidOptions)
	}
	logger := ro.Logger.With("run_id", ro.RunID)

	ctx, span := ro.Tracer.Start(ctx, "hasheval.Run", trace.WithAttributes(
		attribute.String("run.id", ro.RunID),
		attribute.String("corpus.root", cfg.Layout.Root),
	))
	start := time.Now()

	res, err := run(ctx, cfg, o, distance, ro, logger)
	telemetry.EndSpan(span, err)
	if err != nil {
		logger.Error("evaluation failed", "error", err, "duration", time.Since(start))
		return nil, err
	}

	res.RunID = ro.RunID
	res.Duration = time.Since(start)
	logger.Info("evaluation completed",
		"images", len(res.Corpus.Images),
		"attacks", len(res.Attacked.Attacks()),
		"duration", res.Duration,
	)
	return res, nil
}

func run[H any](ctx context.Context, cfg Config, o oracle.Oracle[H], distance oracle.Distance[H], ro RunOptions, logger *logging.Logger) (*Result, error) {
	exec, err := sweep.NewExecutor(o, cfg.Grid, cfg.Sweep,
		sweep.WithLogger(logger),
		sweep.WithMetrics(ro.Metrics),
		sweep.WithTracer(ro.Tracer),
		sweep.WithProgress(ro.Progress),
	)
	if err != nil {
		return nil, err
	}

	c, err := corpus.Discover(cfg.Layout, logger)
	if err != nil {
		return nil, err
	}
	if len(c.AttackSet(cfg.Sweep.IncludeExtraAttacks)) == 0 {
		return nil, &corpus.DiscoveryError{Dir: cfg.Layout.Attacks, Err: corpus.ErrNoAttacks}
	}

	var (
		origTable     *sweep.Table[H]
		attackedTable *sweep.Table[H]
		origStats     *aggregate.OriginalStats
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		table, err := exec.Originals(gCtx, c)
		if err != nil {
			return err
		}
		stats, err := aggregate.Originals(table, distance)
		if err != nil {
			return err
		}
		ro.Metrics.AddCollisions(sweep.SweepOriginals, stats.TotalCollisions())
		origTable, origStats = table, stats
		return nil
	})
	g.Go(func() error {
		table, err := exec.Attacked(gCtx, c)
		if err != nil {
			return err
		}
		attackedTable = table
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	attackedStats, err := aggregate.Attacked(origTable, attackedTable, distance)
	if err != nil {
		return nil, err
	}
	ro.Metrics.AddCollisions(sweep.SweepAttacked, attackedStats.Total())

	return &Result{
		Corpus:    c,
		Originals: origStats,
		Attacked:  attackedStats,
	}, nil
}
