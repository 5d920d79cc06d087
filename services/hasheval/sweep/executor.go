// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sweep drives an oracle over the full evaluation matrix.
//
// A sweep enumerates every (fuzziness, resolution, image[, attack])
// coordinate, computes one hash per coordinate concurrently and returns a
// complete Table once every task has joined. The first failure cancels
// the remaining tasks and no table is returned.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/hashprobe/pkg/logging"
	"github.com/AleutianAI/hashprobe/services/hasheval/corpus"
	"github.com/AleutianAI/hashprobe/services/hasheval/oracle"
	"github.com/AleutianAI/hashprobe/services/hasheval/telemetry"
)

// Sweep names, used in errors, logs, metrics and spans.
const (
	SweepOriginals = "originals"
	SweepAttacked  = "attacked"
)

// =============================================================================
// Options
// =============================================================================

// Options is the sweep configuration.
type Options struct {
	// IncludeExtraAttacks appends the extra attacks to the attacked sweep.
	IncludeExtraAttacks bool `yaml:"include_extra_attacks"`

	// EmitDebugArtifacts writes the preprocessed image of every fuzziness
	// index 0 task to DebugDir, when the oracle supports it.
	EmitDebugArtifacts bool `yaml:"emit_debug_artifacts"`

	// DebugDir receives debug artifacts. Default: "var"
	DebugDir string `yaml:"debug_dir"`

	// Concurrency bounds in-flight hash computations per sweep.
	// 0 means unbounded.
	Concurrency int `yaml:"concurrency" validate:"gte=0"`

	// RateLimit caps hash computations per second across both sweeps.
	// 0 disables the limit.
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
}

// DefaultOptions returns the reference sweep options.
func DefaultOptions() Options {
	return Options{DebugDir: "var"}
}

// Validate checks the options for consistency.
func (o Options) Validate() error {
	if o.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency %d is negative", ErrInvalidOptions, o.Concurrency)
	}
	if o.RateLimit < 0 {
		return fmt.Errorf("%w: rate limit %g is negative", ErrInvalidOptions, o.RateLimit)
	}
	if o.EmitDebugArtifacts && o.DebugDir == "" {
		return fmt.Errorf("%w: debug artifacts need a directory", ErrInvalidOptions)
	}
	return nil
}

// ProgressFunc receives the number of finished tasks of a sweep.
// It is called from worker goroutines and must be safe for concurrent use.
type ProgressFunc func(sweep string, done, total int)

// ExecutorOptions holds the collaborators of an Executor.
type ExecutorOptions struct {
	Logger   *logging.Logger
	Metrics  *telemetry.Metrics
	Tracer   trace.Tracer
	Progress ProgressFunc
}

// ExecutorOption is a functional option for configuring Executor.
type ExecutorOption func(*ExecutorOptions)

// WithLogger sets the logger. Default: logging.Discard().
func WithLogger(l *logging.Logger) ExecutorOption {
	return func(o *ExecutorOptions) {
		o.Logger = l
	}
}

// WithMetrics sets the Prometheus metrics. Default: none.
func WithMetrics(m *telemetry.Metrics) ExecutorOption {
	return func(o *ExecutorOptions) {
		o.Metrics = m
	}
}

// WithTracer sets the tracer. Default: the global provider's tracer.
func WithTracer(t trace.Tracer) ExecutorOption {
	return func(o *ExecutorOptions) {
		o.Tracer = t
	}
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) ExecutorOption {
	return func(o *ExecutorOptions) {
		o.Progress = fn
	}
}

// =============================================================================
// Executor
// =============================================================================

// Executor runs the originals and attacked sweeps of one oracle.
//
// Thread Safety: Safe for concurrent use. Originals and Attacked may run at
// the same time and share the rate limit.
type Executor[H any] struct {
	oracle    oracle.Oracle[H]
	artifacts oracle.ArtifactWriter
	grid      Grid
	opts      Options
	limiter   *rate.Limiter

	logger   *logging.Logger
	metrics  *telemetry.Metrics
	tracer   trace.Tracer
	progress ProgressFunc
}

// NewExecutor validates grid and opts and returns an executor for o.
//
// Inputs:
//   - o: The hashing oracle. Must be safe for concurrent use.
//   - grid: The configuration space.
//   - opts: Sweep options.
//   - options: Collaborators (logger, metrics, tracer, progress).
//
// Outputs:
//   - *Executor[H]: Ready to sweep.
//   - error: ErrInvalidGrid or ErrInvalidOptions.
func NewExecutor[H any](o oracle.Oracle[H], grid Grid, opts Options, options ...ExecutorOption) (*Executor[H], error) {
	if o == nil {
		return nil, fmt.Errorf("%w: oracle is required", ErrInvalidOptions)
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	eo := ExecutorOptions{}
	for _, opt := range options {
		opt(&eo)
	}
	if eo.Logger == nil {
		eo.Logger = logging.Discard()
	}
	if eo.Tracer == nil {
		eo.Tracer = telemetry.DefaultTracer()
	}

	e := &Executor[H]{
		oracle:   o,
		grid:     grid.clone(),
		opts:     opts,
		logger:   eo.Logger,
		metrics:  eo.Metrics,
		tracer:   eo.Tracer,
		progress: eo.Progress,
	}
	if opts.RateLimit > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	if opts.EmitDebugArtifacts {
		if aw, ok := any(o).(oracle.ArtifactWriter); ok {
			e.artifacts = aw
		} else {
			e.logger.Warn("oracle cannot write debug artifacts, ignoring", "debug_dir", opts.DebugDir)
		}
	}
	return e, nil
}

// Grid returns a copy of the executor's grid.
func (e *Executor[H]) Grid() Grid {
	return e.grid.clone()
}

// Originals hashes every reference image for every cell.
//
// Outputs:
//   - *Table[H]: Shaped [fuzziness][resolution][image].
//   - error: *HashError for the first failing task, or the context error.
func (e *Executor[H]) Originals(ctx context.Context, c *corpus.Corpus) (*Table[H], error) {
	b := NewBuilder[H](SweepOriginals, e.grid, c.Images, nil)

	tasks := make([]task, 0, b.Shape().Size())
	for _, cell := range e.grid.Cells() {
		for i, name := range c.Images {
			tasks = append(tasks, task{
				coord:    Coord{Fuzz: cell.FuzzIdx, Res: cell.ResIdx, Image: i},
				cell:     cell,
				path:     c.ImagePath(i),
				artifact: e.artifactPath(cell, name, nil),
			})
		}
	}
	return e.run(ctx, SweepOriginals, b, tasks)
}

// Attacked hashes every attacked derivative for every cell, over
// c.AttackSet(IncludeExtraAttacks).
//
// Outputs:
//   - *Table[H]: Shaped [fuzziness][resolution][image][attack].
//   - error: *HashError for the first failing task, or the context error.
func (e *Executor[H]) Attacked(ctx context.Context, c *corpus.Corpus) (*Table[H], error) {
	attacks := c.AttackSet(e.opts.IncludeExtraAttacks)
	if len(attacks) == 0 {
		return nil, &corpus.DiscoveryError{Dir: "attacks", Err: corpus.ErrNoAttacks}
	}
	b := NewBuilder[H](SweepAttacked, e.grid, c.Images, attacks)

	tasks := make([]task, 0, b.Shape().Size())
	for _, cell := range e.grid.Cells() {
		for i, name := range c.Images {
			for a, attack := range attacks {
				tasks = append(tasks, task{
					coord:    Coord{Fuzz: cell.FuzzIdx, Res: cell.ResIdx, Image: i, Attack: a},
					cell:     cell,
					path:     c.AttackPath(attack, i),
					attack:   attack.Name,
					artifact: e.artifactPath(cell, name, &attacks[a]),
				})
			}
		}
	}
	return e.run(ctx, SweepAttacked, b, tasks)
}

// task is one leaf computation. Each task owns exactly one coordinate.
type task struct {
	coord    Coord
	cell     Cell
	path     string
	attack   string
	artifact string
}

// run fans tasks out, joins them and builds the table.
func (e *Executor[H]) run(ctx context.Context, name string, b *Builder[H], tasks []task) (*Table[H], error) {
	ctx, span := e.tracer.Start(ctx, "sweep."+name, trace.WithAttributes(
		attribute.Int("sweep.tasks", len(tasks)),
		attribute.Int("sweep.concurrency", e.opts.Concurrency),
	))
	start := time.Now()

	e.logger.Info("sweep started", "sweep", name, "tasks", len(tasks), "shape", b.Shape().String())

	table, err := e.fanOut(ctx, name, b, tasks)

	duration := time.Since(start)
	e.metrics.ObserveSweep(name, duration, err)
	telemetry.EndSpan(span, err)
	if err != nil {
		e.logger.Error("sweep failed", "sweep", name, "error", err, "duration", duration)
		return nil, err
	}
	e.logger.Info("sweep completed", "sweep", name, "duration", duration)
	return table, nil
}

func (e *Executor[H]) fanOut(ctx context.Context, name string, b *Builder[H], tasks []task) (*Table[H], error) {
	g, gCtx := errgroup.WithContext(ctx)
	if e.opts.Concurrency > 0 {
		g.SetLimit(e.opts.Concurrency)
	}

	total := len(tasks)
	var done atomic.Int64

	for _, t := range tasks {
		if gCtx.Err() != nil {
			break
		}
		t := t
		g.Go(func() error {
			if err := e.compute(gCtx, name, b, t); err != nil {
				return err
			}
			n := done.Add(1)
			if e.progress != nil {
				e.progress(name, int(n), total)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.Build()
}

// compute hashes one coordinate and stores the result.
func (e *Executor[H]) compute(ctx context.Context, name string, b *Builder[H], t task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	ctx, span := e.tracer.Start(ctx, "sweep.hash", trace.WithAttributes(
		attribute.String("sweep.name", name),
		attribute.String("image.path", t.path),
		attribute.Int("hash.fuzziness", t.cell.Fuzziness),
		attribute.Int("hash.resolution", t.cell.Resolution),
		attribute.String("attack.name", t.attack),
	))

	start := time.Now()
	h, err := e.oracle.Compute(ctx, t.path, t.cell.Resolution, t.cell.Fuzziness)
	e.metrics.ObserveHash(name, time.Since(start), err)

	op := OpHash
	if err == nil && t.artifact != "" {
		op = OpWriteArtifact
		if werr := e.artifacts.WriteArtifact(ctx, t.path, t.cell.Resolution, t.artifact); werr != nil {
			err = fmt.Errorf("write artifact %s: %w", t.artifact, werr)
		}
	}
	if err != nil {
		herr := &HashError{Sweep: name, Op: op, Path: t.path, Cell: t.cell, Image: t.coord.Image, Attack: t.attack, Err: err}
		telemetry.EndSpan(span, herr)
		if !errors.Is(err, context.Canceled) {
			e.logger.Debug(op+" failed", "sweep", name, "path", t.path, "cell", t.cell.String(), "error", err)
		}
		return herr
	}
	telemetry.EndSpan(span, nil)

	return b.Set(t.coord, h)
}

// artifactPath returns the debug artifact destination of a task, or "" when
// none is written. Only fuzziness index 0 produces artifacts; the
// preprocessed image does not depend on fuzziness.
//
// Extra attacks are prefixed with "extra-" so an extra attack sharing a
// directory name with a regular one gets its own file.
func (e *Executor[H]) artifactPath(cell Cell, image string, attack *corpus.Attack) string {
	if e.artifacts == nil || cell.FuzzIdx != 0 {
		return ""
	}
	stem := strings.TrimSuffix(image, filepath.Ext(image))
	name := fmt.Sprintf("%s-res%d", stem, cell.Resolution)
	if attack != nil {
		if attack.Extra {
			name += " extra-" + attack.Name
		} else {
			name += " " + attack.Name
		}
	}
	return filepath.Join(e.opts.DebugDir, name+".png")
}
