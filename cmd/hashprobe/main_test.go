// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Fixtures
// =============================================================================

func writeImage(t *testing.T, path string, seed int) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 48, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 48; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x*seed*11 + y*(seed+2)*3) % 256)})
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 90}))
	require.NoError(t, f.Close())
}

// writeCorpus creates two originals, one attack and one extra attack.
func writeCorpus(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for i, name := range []string{"a.jpg", "b.jpg"} {
		writeImage(t, filepath.Join(root, "originals", name), i+1)
		writeImage(t, filepath.Join(root, "attacks", "identity", name), i+1)
		writeImage(t, filepath.Join(root, "attacks-extra", "swap", name), 2-i)
	}
	return root
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// =============================================================================
// run Tests
// =============================================================================

func TestRun_PrintsReport(t *testing.T) {
	root := writeCorpus(t)

	stdout, stderr, err := execute(t, "run", "--root", root, "--fuzziness", "0,5", "--resolutions", "8,4", "-j", "2")
	require.NoError(t, err, stderr)

	assert.Contains(t, stdout, "Distances of the first input image (a.jpg) to all other inputs, originals only:")
	assert.Contains(t, stdout, "A - identity")
	assert.NotContains(t, stdout, "swap")
	assert.Contains(t, stdout, "A total of 2 images under 1 attacks were examined.")
	assert.Contains(t, stderr, "OK: evaluating "+root)
}

func TestRun_Unfair(t *testing.T) {
	root := writeCorpus(t)

	stdout, _, err := execute(t, "run", "--root", root, "--unfair", "--fuzziness", "0", "--resolutions", "8")
	require.NoError(t, err)

	assert.Contains(t, stdout, "B - swap (extra)")
	assert.Contains(t, stdout, "A total of 2 images under 2 attacks were examined.")
}

func TestRun_DebugOutAndMetricsFile(t *testing.T) {
	root := writeCorpus(t)
	debugDir := filepath.Join(t.TempDir(), "var")
	metrics := filepath.Join(t.TempDir(), "hashprobe.prom")

	_, stderr, err := execute(t, "run", "--root", root, "--fuzziness", "0,5", "--resolutions", "4",
		"--debug-out", debugDir, "--metrics-file", metrics, "--run-id", "cli-test", "--json-logs")
	require.NoError(t, err, stderr)

	entries, err := os.ReadDir(debugDir)
	require.NoError(t, err)
	// 2 originals + 2 attacked images, first fuzziness only.
	assert.Len(t, entries, 4)

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hashprobe_sweep_hashes_total")
	assert.Contains(t, stderr, `"run_id":"cli-test"`)
}

func TestRun_Trace(t *testing.T) {
	root := writeCorpus(t)

	_, stderr, err := execute(t, "run", "--root", root, "--fuzziness", "0", "--resolutions", "4", "--trace")
	require.NoError(t, err)
	assert.Contains(t, stderr, "hasheval.Run")
}

func TestRun_ConfigFileWithOverride(t *testing.T) {
	root := writeCorpus(t)
	path := filepath.Join(t.TempDir(), "hashprobe.yaml")
	yaml := "corpus:\n  root: /does/not/exist\nmatrix:\n  fuzziness: [0]\n  resolutions: [4]\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	_, _, err := execute(t, "run", "--config", path)
	require.Error(t, err)

	stdout, _, err := execute(t, "run", "--config", path, "--root", root)
	require.NoError(t, err)
	assert.Contains(t, stdout, "res=4")
	assert.NotContains(t, stdout, "res=8")
}

func TestRun_FlagOverridesInvalidConfigValue(t *testing.T) {
	root := writeCorpus(t)
	path := filepath.Join(t.TempDir(), "hashprobe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("matrix:\n  fuzziness: [0]\n  resolutions: [128]\n"), 0o644))

	_, _, err := execute(t, "run", "--config", path, "--root", root)
	require.Error(t, err)

	stdout, stderr, err := execute(t, "run", "--config", path, "--root", root, "--resolutions", "8")
	require.NoError(t, err, stderr)
	assert.Contains(t, stdout, "res=8")
}

func TestRun_Errors(t *testing.T) {
	root := writeCorpus(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing corpus", []string{"run", "--root", filepath.Join(root, "missing")}},
		{"negative concurrency", []string{"run", "--root", root, "-j", "-1"}},
		{"bad log level", []string{"run", "--root", root, "--log-level", "loud"}},
		{"resolution too large", []string{"run", "--root", root, "--resolutions", "128"}},
		{"unexpected argument", []string{"run", "extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, tt.args...)
			assert.Error(t, err)
			assert.Empty(t, stdout, "nothing is reported for a failed run")
		})
	}
}

func TestRun_CorruptImageFailsWithoutReport(t *testing.T) {
	root := writeCorpus(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "attacks", "identity", "b.jpg"), []byte("junk"), 0o644))

	stdout, stderr, err := execute(t, "run", "--root", root, "--fuzziness", "0", "--resolutions", "4")
	require.Error(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, err.Error(), "b.jpg")
	assert.Contains(t, stderr, "ERROR: evaluating")
}

// =============================================================================
// attacks / config Tests
// =============================================================================

func TestAttacks_ListsLegend(t *testing.T) {
	root := writeCorpus(t)

	stdout, _, err := execute(t, "attacks", "--root", root, "--unfair")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	assert.Equal(t, []string{"Attacks", "A - identity", "B - swap (extra)", "", "2 images, 1 attacks, 1 extra attacks"}, lines)
}

func TestAttacks_UnfairWithoutExtrasWarns(t *testing.T) {
	root := writeCorpus(t)
	require.NoError(t, os.RemoveAll(filepath.Join(root, "attacks-extra")))

	stdout, stderr, err := execute(t, "attacks", "--root", root, "--unfair")
	require.NoError(t, err)
	assert.Contains(t, stderr, "WARN: --unfair set but the corpus has no extra attacks")
	assert.Contains(t, stdout, "A - identity")

	_, stderr, err = execute(t, "attacks", "--root", root)
	require.NoError(t, err)
	assert.Empty(t, stderr)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "hashprobe.yaml")

	_, stderr, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "wrote "+path)

	_, _, err = execute(t, "config", "init", path)
	assert.Error(t, err, "existing file is kept without --force")

	_, _, err = execute(t, "config", "init", "--force", path)
	assert.NoError(t, err)
}
