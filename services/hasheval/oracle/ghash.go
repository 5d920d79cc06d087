// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package oracle

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/gift"
	"github.com/nfnt/resize"
)

const (
	// MinResolution is the smallest supported hash grid side.
	MinResolution = 2

	// MaxResolution is the largest supported hash grid side.
	MaxResolution = 64

	// MaxFuzziness is the largest brightness tolerance (8-bit luma).
	MaxFuzziness = 255
)

// GHash is a gradient perceptual hash.
//
// The image is converted to grayscale (optionally blurred), scaled to
// resolution x resolution and read in row-major order. Bit i is set when
// pixel i is brighter than pixel i+1 (wrapping to pixel 0) by more than
// fuzziness. A resolution of 8 yields a 64-bit hash.
//
// Thread Safety: GHash holds no mutable state and is safe for concurrent use.
type GHash struct {
	// Interpolation is the scaling kernel. The zero value is
	// resize.NearestNeighbor; NewGHash uses resize.Bilinear.
	Interpolation resize.InterpolationFunction

	// BlurSigma applies a Gaussian blur before scaling when > 0.
	BlurSigma float32
}

// NewGHash returns a GHash with bilinear scaling and no blur.
func NewGHash() *GHash {
	return &GHash{Interpolation: resize.Bilinear}
}

// ParseInterpolation maps a kernel name to a resize interpolation.
//
// Accepts nearest, bilinear, bicubic, mitchell, lanczos2 and lanczos3.
func ParseInterpolation(name string) (resize.InterpolationFunction, error) {
	switch strings.ToLower(name) {
	case "nearest":
		return resize.NearestNeighbor, nil
	case "", "bilinear":
		return resize.Bilinear, nil
	case "bicubic":
		return resize.Bicubic, nil
	case "mitchell":
		return resize.MitchellNetravali, nil
	case "lanczos2":
		return resize.Lanczos2, nil
	case "lanczos3":
		return resize.Lanczos3, nil
	default:
		return resize.Bilinear, fmt.Errorf("unknown interpolation %q", name)
	}
}

// Compute implements Oracle[BitVector].
func (g *GHash) Compute(ctx context.Context, path string, resolution, fuzziness int) (BitVector, error) {
	if err := checkParams(resolution, fuzziness); err != nil {
		return BitVector{}, err
	}
	scaled, err := g.preprocess(ctx, path, resolution)
	if err != nil {
		return BitVector{}, err
	}
	return gradientBits(scaled, resolution, fuzziness), nil
}

// WriteArtifact implements ArtifactWriter. The preprocessed grid is
// written as PNG, creating parent directories as needed.
func (g *GHash) WriteArtifact(ctx context.Context, path string, resolution int, dest string) error {
	if err := checkParams(resolution, 0); err != nil {
		return err
	}
	scaled, err := g.preprocess(ctx, path, resolution)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	if err := png.Encode(out, scaled); err != nil {
		out.Close()
		return fmt.Errorf("encode artifact %s: %w", dest, err)
	}
	return out.Close()
}

// preprocess decodes path and returns the grayscale image scaled to
// resolution x resolution.
func (g *GHash) preprocess(ctx context.Context, path string, resolution int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := decode(path)
	if err != nil {
		return nil, err
	}

	filters := gift.New(gift.Grayscale())
	if g.BlurSigma > 0 {
		filters.Add(gift.GaussianBlur(g.BlurSigma))
	}
	gray := image.NewGray(filters.Bounds(src.Bounds()))
	filters.Draw(gray, src)

	return resize.Resize(uint(resolution), uint(resolution), gray, g.Interpolation), nil
}

// gradientBits extracts one bit per pixel from a resolution x resolution image.
func gradientBits(img image.Image, resolution, fuzziness int) BitVector {
	bounds := img.Bounds()
	n := resolution * resolution
	luma := make([]int, 0, n)
	for y := bounds.Min.Y; y < bounds.Min.Y+resolution; y++ {
		for x := bounds.Min.X; x < bounds.Min.X+resolution; x++ {
			luma = append(luma, int(color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y))
		}
	}

	v := NewBitVector(n)
	for i := range luma {
		if luma[i]-luma[(i+1)%n] > fuzziness {
			v.set(i)
		}
	}
	return v
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	return img, nil
}

func checkParams(resolution, fuzziness int) error {
	if resolution < MinResolution || resolution > MaxResolution {
		return fmt.Errorf("%w: resolution %d outside [%d, %d]", ErrInvalidParams, resolution, MinResolution, MaxResolution)
	}
	if fuzziness < 0 || fuzziness > MaxFuzziness {
		return fmt.Errorf("%w: fuzziness %d outside [0, %d]", ErrInvalidParams, fuzziness, MaxFuzziness)
	}
	return nil
}

var (
	_ Oracle[BitVector] = (*GHash)(nil)
	_ ArtifactWriter    = (*GHash)(nil)
)
