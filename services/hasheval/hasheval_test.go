// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package hasheval

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AleutianAI/hashprobe/pkg/logging"
	"github.com/AleutianAI/hashprobe/services/hasheval/corpus"
	"github.com/AleutianAI/hashprobe/services/hasheval/oracle"
	"github.com/AleutianAI/hashprobe/services/hasheval/sweep"
	"github.com/AleutianAI/hashprobe/services/hasheval/telemetry"
)

// =============================================================================
// Test Fixtures
// =============================================================================

// writeCorpus creates originals and attack directories holding the given
// image names with placeholder content.
func writeCorpus(t *testing.T, images []string, attacks ...string) string {
	t.Helper()
	root := t.TempDir()
	dirs := []string{"originals"}
	for _, a := range attacks {
		dirs = append(dirs, filepath.Join("attacks", a))
	}
	for _, dir := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
		for _, img := range images {
			require.NoError(t, os.WriteFile(filepath.Join(root, dir, img), []byte("x"), 0o644))
		}
	}
	return root
}

// indexOracle hashes an image to its position in the sorted corpus, so
// attacked images hash like their original.
func indexOracle(images []string) oracle.Func[int] {
	return func(ctx context.Context, path string, res, fuzz int) (int, error) {
		name := filepath.Base(path)
		for i, img := range images {
			if img == name {
				return i, nil
			}
		}
		return 0, errors.New("unknown image " + name)
	}
}

func absDistance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

func scenarioConfig(root string) Config {
	cfg := DefaultConfig(root)
	cfg.Grid = sweep.Grid{Fuzziness: []int{0}, Resolutions: []int{8}}
	return cfg
}

// =============================================================================
// Run Tests
// =============================================================================

func TestRun_ThreeImageScenario(t *testing.T) {
	images := []string{"a.jpg", "b.jpg", "c.jpg"}
	root := writeCorpus(t, images, "jpeg-50")

	res, err := Run(context.Background(), scenarioConfig(root), indexOracle(images), absDistance,
		WithRunID("run-1"))
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, images, res.Corpus.Images)
	assert.Equal(t, 1, res.Originals.Distance(0, 0, 1))
	assert.Equal(t, 2, res.Originals.Distance(0, 0, 2))
	assert.Equal(t, 0.0, res.Originals.CollisionPercent(0, 0))
	assert.Equal(t, 3, res.Attacked.Collisions(0, 0, 0))
	assert.Equal(t, 100.0, res.Attacked.SummaryPercent(0, 0))

	var buf bytes.Buffer
	require.NoError(t, res.Render(&buf))
	assert.Contains(t, buf.String(), "A - jpeg-50")
	assert.Contains(t, buf.String(), "    fuzz=0   |  100.00")
	assert.Contains(t, buf.String(), "A total of 3 images under 1 attacks were examined.")
}

func TestRun_FailureOnSecondImage(t *testing.T) {
	images := []string{"a.jpg", "b.jpg", "c.jpg"}
	root := writeCorpus(t, images, "jpeg-50")
	errCorrupt := errors.New("corrupt file")

	o := oracle.Func[int](func(ctx context.Context, path string, res, fuzz int) (int, error) {
		if filepath.Base(path) == "b.jpg" && filepath.Base(filepath.Dir(path)) == "originals" {
			return 0, errCorrupt
		}
		return indexOracle(images)(ctx, path, res, fuzz)
	})

	res, err := Run(context.Background(), scenarioConfig(root), o, absDistance)
	require.Error(t, err)
	assert.Nil(t, res, "no result means nothing can be rendered")
	assert.ErrorIs(t, err, errCorrupt)

	var herr *sweep.HashError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, filepath.Join(root, "originals", "b.jpg"), herr.Path)
	assert.Contains(t, err.Error(), "fuzz=0 res=8")
}

func TestRun_DiscoveryError(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "originals"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "attacks", "blur"), 0o755))

	_, err := Run(context.Background(), DefaultConfig(root), indexOracle(nil), absDistance)
	var derr *corpus.DiscoveryError
	require.True(t, errors.As(err, &derr))
	assert.ErrorIs(t, err, corpus.ErrNoImages)
}

func TestRun_InvalidConfig(t *testing.T) {
	root := writeCorpus(t, []string{"a.jpg"}, "blur")

	cfg := DefaultConfig(root)
	cfg.Grid = sweep.Grid{}
	_, err := Run(context.Background(), cfg, indexOracle(nil), absDistance)
	assert.ErrorIs(t, err, sweep.ErrInvalidGrid)

	_, err = Run[int](context.Background(), DefaultConfig(root), indexOracle(nil), nil)
	assert.ErrorIs(t, err, sweep.ErrInvalidOptions)
}

func TestRun_Cancelled(t *testing.T) {
	images := []string{"a.jpg", "b.jpg"}
	root := writeCorpus(t, images, "blur")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, DefaultConfig(root), indexOracle(images), absDistance)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_LogsMetricsAndSpans(t *testing.T) {
	images := []string{"a.jpg", "b.jpg", "c.jpg"}
	root := writeCorpus(t, images, "blur", "rotate")

	var logs bytes.Buffer
	logger := logging.New(logging.Config{Level: logging.LevelDebug, Writer: &logs, JSON: true})
	defer logger.Close()

	reg := prometheus.NewRegistry()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	res, err := Run(context.Background(), DefaultConfig(root), indexOracle(images), absDistance,
		WithRunID("run-42"),
		WithLogger(logger),
		WithMetrics(telemetry.NewMetrics(reg)),
		WithTracer(tp.Tracer("test")),
	)
	require.NoError(t, err)

	assert.Contains(t, logs.String(), `"run_id":"run-42"`)
	assert.Contains(t, logs.String(), "evaluation completed")

	// Every attacked image matches its original: 9 cells x 3 images x 2 attacks.
	assert.Equal(t, 54, res.Attacked.Total())
	collisions, err := testutil.GatherAndCount(reg, "hashprobe_sweep_collisions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, collisions, "originals never collide, so only the attacked series exists")

	var root0 sdktrace.ReadOnlySpan
	for _, s := range rec.Ended() {
		if s.Name() == "hasheval.Run" {
			root0 = s
		}
	}
	require.NotNil(t, root0)
	assert.Equal(t, "run-42", attr(root0, "run.id"))
}

func attr(s sdktrace.ReadOnlySpan, key string) string {
	for _, kv := range s.Attributes() {
		if string(kv.Key) == key {
			return kv.Value.AsString()
		}
	}
	return ""
}

// =============================================================================
// GHash End-to-End
// =============================================================================

// writeJPEG writes a 64x64 image whose brightness pattern depends on seed.
func writeJPEG(t *testing.T, path string, seed int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			v := uint8((x*seed*7 + y*(seed+3)*5) % 256)
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 90}))
	require.NoError(t, f.Close())
}

func TestRun_GHashIdenticalAttack(t *testing.T) {
	root := t.TempDir()
	for i, name := range []string{"one.jpg", "two.jpg", "three.jpg"} {
		writeJPEG(t, filepath.Join(root, "originals", name), i+1)
		writeJPEG(t, filepath.Join(root, "attacks", "identity", name), i+1)
	}

	cfg := DefaultConfig(root)
	cfg.Sweep.Concurrency = 4
	res, err := Run(context.Background(), cfg, oracle.NewGHash(), oracle.Hamming)
	require.NoError(t, err)

	grid := res.Attacked.Grid()
	for fi := range grid.Fuzziness {
		for ri := range grid.Resolutions {
			assert.Equal(t, 100.0, res.Attacked.SummaryPercent(fi, ri))
			assert.Equal(t, 0, res.Originals.Distance(fi, ri, 0))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, res.Render(&buf))
	assert.Equal(t, 1, strings.Count(buf.String(), "A total of 3 images under 1 attacks were examined."))
}
