// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sweep

import (
	"errors"
	"fmt"
)

// Sentinel errors for sweep configuration.
var (
	// ErrInvalidGrid is returned for an empty or out-of-range grid.
	ErrInvalidGrid = errors.New("invalid sweep grid")

	// ErrInvalidOptions is returned for inconsistent executor options.
	ErrInvalidOptions = errors.New("invalid sweep options")
)

// Operations named by HashError.
const (
	OpHash          = "hash"
	OpWriteArtifact = "write artifact"
)

// HashError reports the first failing task of a sweep.
//
// It wraps the oracle error, so errors.Is(err, oracle.ErrDecode) works
// through it.
type HashError struct {
	// Sweep is "originals" or "attacked".
	Sweep string

	// Op is OpHash or OpWriteArtifact. Empty reads as OpHash.
	Op string

	// Path is the image file that failed.
	Path string

	// Cell is the configuration being hashed.
	Cell Cell

	// Image is the image index.
	Image int

	// Attack is the attack name, empty in the originals sweep.
	Attack string

	// Err is the oracle error.
	Err error
}

func (e *HashError) Error() string {
	op := e.Op
	if op == "" {
		op = OpHash
	}
	if e.Attack != "" {
		return fmt.Sprintf("%s sweep: %s %s (%s, attack %s): %v", e.Sweep, op, e.Path, e.Cell, e.Attack, e.Err)
	}
	return fmt.Sprintf("%s sweep: %s %s (%s): %v", e.Sweep, op, e.Path, e.Cell, e.Err)
}

func (e *HashError) Unwrap() error {
	return e.Err
}

// ShapeMismatchError reports a table that does not have the expected
// dimensions, or a coordinate written twice or never.
type ShapeMismatchError struct {
	// Table names the offending table.
	Table string

	// Want is the expected shape.
	Want Shape

	// Got is the actual shape.
	Got Shape

	// Reason describes the violation.
	Reason string
}

func (e *ShapeMismatchError) Error() string {
	if e.Want == e.Got {
		return fmt.Sprintf("%s table %s: %s", e.Table, e.Got, e.Reason)
	}
	return fmt.Sprintf("%s table: want shape %s, got %s: %s", e.Table, e.Want, e.Got, e.Reason)
}
