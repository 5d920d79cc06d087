// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package corpus

import (
	"errors"
	"fmt"
)

// Sentinel errors for corpus discovery.
var (
	// ErrNoImages is returned when the originals directory holds no file
	// with a recognized image extension.
	ErrNoImages = errors.New("no images found")

	// ErrNoAttacks is returned when no attack directory is available for
	// the attacked sweep.
	ErrNoAttacks = errors.New("no attack directories found")

	// ErrInvalidLayout is returned when a Layout is missing a directory name.
	ErrInvalidLayout = errors.New("invalid corpus layout")
)

// DiscoveryError reports a corpus that cannot be evaluated.
//
// It is fatal: a run stops before any sweep starts. Dir names the
// directory that was being listed so the operator can fix it.
//
//	var derr *corpus.DiscoveryError
//	if errors.As(err, &derr) && errors.Is(err, corpus.ErrNoImages) {
//	    fmt.Println("add some images to", derr.Dir)
//	}
type DiscoveryError struct {
	// Dir is the directory being listed.
	Dir string

	// Err is the underlying cause (ErrNoImages, ErrNoAttacks or an I/O error).
	Err error
}

// Error returns "corpus discovery in <dir>: <cause>".
func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("corpus discovery in %s: %v", e.Dir, e.Err)
}

// Unwrap returns the underlying cause.
func (e *DiscoveryError) Unwrap() error {
	return e.Err
}
