// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package oracle defines the hashing oracle consumed by the evaluation
// engine and ships the production perceptual hash (GHash).
//
// The engine never looks inside a hash value. It only hands values of
// type H to a Distance[H]. Tests substitute tiny oracles whose hashes are
// plain integers.
package oracle

import (
	"context"
	"errors"
)

// Sentinel errors for oracle operations.
var (
	// ErrInvalidParams is returned for a resolution or fuzziness outside
	// the range the oracle supports.
	ErrInvalidParams = errors.New("invalid hash parameters")

	// ErrDecode is returned when an image cannot be decoded.
	ErrDecode = errors.New("image decode failed")
)

// Oracle computes the perceptual hash of one image for one configuration.
//
// Thread Safety: implementations must be safe for concurrent use; the
// sweep executor calls Compute from many goroutines without locking.
type Oracle[H any] interface {
	// Compute hashes the image at path.
	//
	// Inputs:
	//   - ctx: Cancelled when a sibling task of the same sweep fails.
	//   - path: Image file path.
	//   - resolution: Side length of the hash grid.
	//   - fuzziness: Tolerance to small brightness differences.
	//
	// Outputs:
	//   - H: The hash value.
	//   - error: Non-nil for unreadable or corrupt input.
	Compute(ctx context.Context, path string, resolution, fuzziness int) (H, error)
}

// Func adapts a plain function to the Oracle interface.
type Func[H any] func(ctx context.Context, path string, resolution, fuzziness int) (H, error)

// Compute calls f.
func (f Func[H]) Compute(ctx context.Context, path string, resolution, fuzziness int) (H, error) {
	return f(ctx, path, resolution, fuzziness)
}

// Distance returns a non-negative dissimilarity between two hashes of the
// same configuration. It must be pure.
type Distance[H any] func(a, b H) int

// ArtifactWriter is implemented by oracles that can dump their
// preprocessed input for inspection.
//
// The sweep executor calls it when debug artifacts are enabled.
type ArtifactWriter interface {
	// WriteArtifact writes the preprocessed image of path at the given
	// resolution to dest.
	WriteArtifact(ctx context.Context, path string, resolution int, dest string) error
}
