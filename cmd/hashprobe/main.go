// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command hashprobe measures how well a perceptual hash tells images apart
// and how well it survives attacks.
//
// Usage:
//
//	hashprobe run --root ./corpus
//	hashprobe run --root ./corpus --unfair --debug-out var
//	hashprobe run --config hashprobe.yaml --metrics-file hashprobe.prom
//	hashprobe attacks --root ./corpus
//	hashprobe config init hashprobe.yaml
//
// The corpus root holds originals/ with the reference images, attacks/
// with one directory of attacked copies per attack and, optionally,
// attacks-extra/ with attacks that are only evaluated with --unfair.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
