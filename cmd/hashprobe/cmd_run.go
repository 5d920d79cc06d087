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
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/hashprobe/cmd/hashprobe/config"
	"github.com/AleutianAI/hashprobe/pkg/logging"
	"github.com/AleutianAI/hashprobe/pkg/ux"
	"github.com/AleutianAI/hashprobe/services/hasheval"
	"github.com/AleutianAI/hashprobe/services/hasheval/oracle"
	"github.com/AleutianAI/hashprobe/services/hasheval/telemetry"
)

const tracingShutdownTimeout = 5 * time.Second

// runEvaluation loads the configuration, runs the matrix with the gradient
// hash and prints the report to stdout.
//
// Nothing is written to stdout unless the whole run succeeds.
func runEvaluation(cmd *cobra.Command, rf *runFlags) error {
	cfg, err := config.Load(rf.configPath)
	if err != nil {
		return err
	}
	applyRunFlags(cmd, &cfg, rf)
	if err := config.Validate(cfg); err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "hashprobe",
		JSON:    cfg.Logging.JSON,
		Writer:  cmd.ErrOrStderr(),
	})
	defer logger.Close()

	registry := prometheus.NewRegistry()
	options := []hasheval.RunOption{
		hasheval.WithLogger(logger),
		hasheval.WithMetrics(telemetry.NewMetrics(registry)),
	}
	if rf.runID != "" {
		options = append(options, hasheval.WithRunID(rf.runID))
	}

	if cfg.Telemetry.Trace {
		tcfg := telemetry.DefaultTracingConfig()
		tcfg.Writer = cmd.ErrOrStderr()
		tcfg.PrettyPrint = cfg.Telemetry.TracePretty
		tracing, err := telemetry.NewTracing(tcfg)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
			defer cancel()
			if err := tracing.Shutdown(ctx); err != nil {
				logger.Warn("tracing shutdown failed", "error", err)
			}
		}()
		options = append(options, hasheval.WithTracer(tracing.Tracer()))
	}

	interpolation, err := oracle.ParseInterpolation(cfg.Oracle.Interpolation)
	if err != nil {
		return err
	}
	ghash := &oracle.GHash{Interpolation: interpolation, BlurSigma: cfg.Oracle.BlurSigma}

	var result *hasheval.Result
	err = ux.WithSpinner(cmd.ErrOrStderr(), "evaluating "+cfg.Corpus.Root, func(s *ux.Spinner) error {
		var runErr error
		result, runErr = hasheval.Run[oracle.BitVector](cmd.Context(), cfg.Evaluation(), ghash, oracle.Hamming,
			append(options, hasheval.WithProgress(s.Stage))...)
		return runErr
	})
	if err != nil {
		return err
	}

	if err := result.Render(cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if cfg.Telemetry.MetricsFile != "" {
		if err := telemetry.WriteTextfile(cfg.Telemetry.MetricsFile, registry); err != nil {
			return err
		}
		logger.Info("metrics written", "path", cfg.Telemetry.MetricsFile)
	}
	return nil
}

// applyRunFlags copies explicitly set flags over the loaded configuration.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config, rf *runFlags) {
	flags := cmd.Flags()
	if flags.Changed("root") {
		cfg.Corpus.Root = rf.root
	}
	if flags.Changed("unfair") {
		cfg.Sweep.IncludeExtraAttacks = rf.unfair
	}
	if flags.Changed("debug-out") {
		cfg.Sweep.EmitDebugArtifacts = rf.debugOut != ""
		cfg.Sweep.DebugDir = rf.debugOut
	}
	if flags.Changed("concurrency") {
		cfg.Sweep.Concurrency = rf.concurrency
	}
	if flags.Changed("rate-limit") {
		cfg.Sweep.RateLimit = rf.rateLimit
	}
	if flags.Changed("fuzziness") {
		cfg.Matrix.Fuzziness = rf.fuzziness
	}
	if flags.Changed("resolutions") {
		cfg.Matrix.Resolutions = rf.resolutions
	}
	if flags.Changed("metrics-file") {
		cfg.Telemetry.MetricsFile = rf.metricsFile
	}
	if flags.Changed("trace") {
		cfg.Telemetry.Trace = rf.trace
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = rf.logLevel
	}
	if flags.Changed("json-logs") {
		cfg.Logging.JSON = rf.jsonLogs
	}
}
