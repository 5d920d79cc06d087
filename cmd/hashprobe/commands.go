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
	"github.com/spf13/cobra"
)

// runFlags are the command line overrides of the run command. A flag only
// replaces the configuration value when it was set explicitly.
type runFlags struct {
	configPath  string
	root        string
	unfair      bool
	debugOut    string
	concurrency int
	rateLimit   float64
	fuzziness   []int
	resolutions []int
	metricsFile string
	trace       bool
	logLevel    string
	jsonLogs    bool
	runID       string
}

// newRootCmd assembles the command tree. Each call returns fresh commands
// and flag storage.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hashprobe",
		Short: "Evaluate a perceptual hash against a corpus of attacked images",
		Long: `hashprobe sweeps a perceptual hash over a grid of fuzziness and
resolution settings and reports how often distinct originals collide
and how often attacked copies still match their original.`,
		SilenceUsage: true,
	}

	// --- Evaluation ---
	rf := &runFlags{}
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the evaluation matrix and print the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluation(cmd, rf)
		},
	}
	runCmd.Flags().StringVarP(&rf.configPath, "config", "c", "", "Path to a hashprobe YAML config file")
	runCmd.Flags().StringVarP(&rf.root, "root", "r", "", "Corpus root directory")
	runCmd.Flags().BoolVar(&rf.unfair, "unfair", false, "Also evaluate the extra attacks")
	runCmd.Flags().StringVar(&rf.debugOut, "debug-out", "", "Write the preprocessed images to this directory")
	runCmd.Flags().IntVarP(&rf.concurrency, "concurrency", "j", 0, "Maximum concurrent hash computations (0 = unbounded)")
	runCmd.Flags().Float64Var(&rf.rateLimit, "rate-limit", 0, "Maximum hash computations per second (0 = unlimited)")
	runCmd.Flags().IntSliceVar(&rf.fuzziness, "fuzziness", nil, "Fuzziness values of the matrix, e.g. 0,5,10")
	runCmd.Flags().IntSliceVar(&rf.resolutions, "resolutions", nil, "Resolution values of the matrix, e.g. 8,4,3")
	runCmd.Flags().StringVar(&rf.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the run")
	runCmd.Flags().BoolVar(&rf.trace, "trace", false, "Print finished spans to stderr")
	runCmd.Flags().StringVar(&rf.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	runCmd.Flags().BoolVar(&rf.jsonLogs, "json-logs", false, "Write logs as JSON")
	runCmd.Flags().StringVar(&rf.runID, "run-id", "", "Run identifier for logs and spans (default: random UUID)")
	rootCmd.AddCommand(runCmd)

	// --- Corpus ---
	var attacksRoot string
	var attacksUnfair bool
	attacksCmd := &cobra.Command{
		Use:   "attacks",
		Short: "List the attacks of a corpus with their report codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListAttacks(cmd, attacksRoot, attacksUnfair)
		},
	}
	attacksCmd.Flags().StringVarP(&attacksRoot, "root", "r", "corpus", "Corpus root directory")
	attacksCmd.Flags().BoolVar(&attacksUnfair, "unfair", false, "Include the extra attacks")
	rootCmd.AddCommand(attacksCmd)

	// --- Configuration ---
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage hashprobe configuration files",
	}
	var force bool
	configInitCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration (default path: hashprobe.yaml)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd, args, force)
		},
	}
	configInitCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)

	return rootCmd
}
