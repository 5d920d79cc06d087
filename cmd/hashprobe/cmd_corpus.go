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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/hashprobe/cmd/hashprobe/config"
	"github.com/AleutianAI/hashprobe/pkg/logging"
	"github.com/AleutianAI/hashprobe/pkg/ux"
	"github.com/AleutianAI/hashprobe/services/hasheval/corpus"
	"github.com/AleutianAI/hashprobe/services/hasheval/report"
)

const defaultConfigPath = "hashprobe.yaml"

// runListAttacks prints the attack legend of the corpus at root.
func runListAttacks(cmd *cobra.Command, root string, unfair bool) error {
	c, err := corpus.Discover(corpus.DefaultLayout(root), logging.Discard())
	if err != nil {
		return err
	}
	if unfair && len(c.ExtraAttacks) == 0 {
		ux.NewPrinter(cmd.ErrOrStderr()).Warning("--unfair set but the corpus has no extra attacks")
	}
	if err := report.New(cmd.OutOrStdout()).Legend(c.AttackSet(unfair)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d images, %d attacks, %d extra attacks\n",
		len(c.Images), len(c.Attacks), len(c.ExtraAttacks))
	return nil
}

// runConfigInit writes the default configuration file.
func runConfigInit(cmd *cobra.Command, args []string, force bool) error {
	path := defaultConfigPath
	if len(args) == 1 {
		path = args[0]
	}
	if err := config.WriteDefault(path, force); err != nil {
		return err
	}
	ux.NewPrinter(cmd.ErrOrStderr()).Success("wrote " + path)
	return nil
}
