// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"runtime"

	"github.com/AleutianAI/hashprobe/services/hasheval"
	"github.com/AleutianAI/hashprobe/services/hasheval/corpus"
	"github.com/AleutianAI/hashprobe/services/hasheval/sweep"
)

// Config is the hashprobe configuration file.
//
// Every section has defaults; a file only needs the keys it changes.
type Config struct {
	// Corpus locates the originals and attack directories.
	Corpus corpus.Layout `yaml:"corpus"`

	// Matrix is the fuzziness x resolution grid.
	Matrix sweep.Grid `yaml:"matrix"`

	// Sweep controls concurrency, extra attacks and debug artifacts.
	Sweep sweep.Options `yaml:"sweep"`

	// Oracle tunes the gradient hash.
	Oracle OracleConfig `yaml:"oracle"`

	// Logging configures the stderr logger and the optional log file.
	Logging LoggingConfig `yaml:"logging"`

	// Telemetry enables the metrics textfile and span export.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// OracleConfig tunes the gradient hash.
type OracleConfig struct {
	// Interpolation is the scaling kernel: nearest, bilinear, bicubic,
	// mitchell, lanczos2 or lanczos3. Default: bilinear
	Interpolation string `yaml:"interpolation" validate:"interpolation"`

	// BlurSigma applies a Gaussian blur before scaling when > 0.
	BlurSigma float32 `yaml:"blur_sigma" validate:"gte=0,lte=20"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is debug, info, warn or error. Default: info
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`

	// Dir enables a JSON log file in this directory when set.
	Dir string `yaml:"dir"`

	// JSON switches the stderr logger to JSON.
	JSON bool `yaml:"json"`
}

// TelemetryConfig configures metrics and tracing output.
type TelemetryConfig struct {
	// MetricsFile receives the Prometheus textfile after a run when set.
	MetricsFile string `yaml:"metrics_file"`

	// Trace prints finished spans to stderr.
	Trace bool `yaml:"trace"`

	// TracePretty indents the printed spans.
	TracePretty bool `yaml:"trace_pretty"`
}

// DefaultConfig returns the reference evaluation over ./corpus, with one
// in-flight hash per available CPU.
func DefaultConfig() Config {
	opts := sweep.DefaultOptions()
	opts.Concurrency = runtime.GOMAXPROCS(0)

	return Config{
		Corpus: corpus.DefaultLayout("corpus"),
		Matrix: sweep.DefaultGrid(),
		Sweep:  opts,
		Oracle: OracleConfig{
			Interpolation: "bilinear",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Evaluation returns the pipeline configuration of c.
func (c Config) Evaluation() hasheval.Config {
	return hasheval.Config{
		Layout: c.Corpus,
		Grid:   c.Matrix,
		Sweep:  c.Sweep,
	}
}
