// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package aggregate turns completed hash tables into distances and
// collision statistics.
//
// Aggregation only reads tables that a sweep has fully joined; both entry
// points verify the table shapes first and return a
// *sweep.ShapeMismatchError instead of comparing misaligned data.
package aggregate

import (
	"fmt"
	"slices"

	"github.com/AleutianAI/hashprobe/services/hasheval/corpus"
	"github.com/AleutianAI/hashprobe/services/hasheval/oracle"
	"github.com/AleutianAI/hashprobe/services/hasheval/sweep"
)

// =============================================================================
// Originals
// =============================================================================

// OriginalStats holds the distance of every original to image 0.
//
// Thread Safety: Immutable; safe for concurrent reads.
type OriginalStats struct {
	grid       sweep.Grid
	images     []string
	shape      sweep.Shape
	distances  []int // [f][r][i]
	collisions []int // [f][r]
}

// Originals compares every image to image 0, per cell.
//
// Image 0 is the reference row and never counts as a collision.
//
// Outputs:
//   - *OriginalStats: Distances and collision counts.
//   - error: *sweep.ShapeMismatchError for an incomplete table, or
//     ErrNegativeDistance.
func Originals[H any](table *sweep.Table[H], distance oracle.Distance[H]) (*OriginalStats, error) {
	if table == nil {
		return nil, &sweep.ShapeMismatchError{Table: sweep.SweepOriginals, Reason: "table is missing"}
	}
	grid, images := table.Grid(), table.Images()
	want := sweep.Shape{Fuzziness: len(grid.Fuzziness), Resolutions: len(grid.Resolutions), Images: len(images)}
	if err := table.Verify(sweep.SweepOriginals, want); err != nil {
		return nil, err
	}

	s := &OriginalStats{
		grid:      grid,
		images:    images,
		shape:     want,
		distances: make([]int, want.Size()),
	}
	var zeros []observation
	for _, cell := range grid.Cells() {
		ref := table.At(sweep.Coord{Fuzz: cell.FuzzIdx, Res: cell.ResIdx})
		for i := range images {
			c := sweep.Coord{Fuzz: cell.FuzzIdx, Res: cell.ResIdx, Image: i}
			d := distance(ref, table.At(c))
			if d < 0 {
				return nil, fmt.Errorf("%w: %d for image %s (%s)", ErrNegativeDistance, d, images[i], cell)
			}
			s.distances[s.index(cell.FuzzIdx, cell.ResIdx, i)] = d
			if i > 0 {
				zeros = append(zeros, observation{key: s.cellIndex(cell.FuzzIdx, cell.ResIdx), distance: d})
			}
		}
	}
	s.collisions = tally(want.Fuzziness*want.Resolutions, zeros)
	return s, nil
}

// Grid returns the grid of the statistics.
func (s *OriginalStats) Grid() sweep.Grid { return s.grid }

// Images returns the image names, in row order.
func (s *OriginalStats) Images() []string { return s.images }

// Distance returns the distance of image i to image 0 in cell (f, r).
func (s *OriginalStats) Distance(f, r, i int) int {
	return s.distances[s.index(f, r, i)]
}

// Unexpected reports a zero distance between image 0 and a different
// image: a collision between distinct inputs. It is independent of the
// collision counters.
func (s *OriginalStats) Unexpected(f, r, i int) bool {
	return i > 0 && s.Distance(f, r, i) == 0
}

// Collisions returns the number of images other than image 0 with
// distance 0 in cell (f, r).
func (s *OriginalStats) Collisions(f, r int) int {
	return s.collisions[s.cellIndex(f, r)]
}

// TotalCollisions sums Collisions over all cells.
func (s *OriginalStats) TotalCollisions() int {
	return sum(s.collisions)
}

// Comparisons returns the number of non-reference comparisons per cell.
func (s *OriginalStats) Comparisons() int {
	if len(s.images) == 0 {
		return 0
	}
	return len(s.images) - 1
}

// CollisionPercent returns Collisions(f, r) / Comparisons() * 100, or 0
// for a single-image corpus.
func (s *OriginalStats) CollisionPercent(f, r int) float64 {
	return percent(s.Collisions(f, r), s.Comparisons())
}

func (s *OriginalStats) index(f, r, i int) int {
	return (f*s.shape.Resolutions+r)*s.shape.Images + i
}

func (s *OriginalStats) cellIndex(f, r int) int {
	return f*s.shape.Resolutions + r
}

// =============================================================================
// Attacked
// =============================================================================

// AttackedStats holds the distance of every attacked derivative to its own
// original.
//
// Thread Safety: Immutable; safe for concurrent reads.
type AttackedStats struct {
	grid       sweep.Grid
	images     []string
	attacks    []corpus.Attack
	shape      sweep.Shape
	distances  []int // [f][r][i][a]
	collisions []int // [f][r][a]
}

// Attacked compares every attacked hash to the original hash of the same
// image, cell by cell.
//
// Inputs:
//   - originals: The completed originals table.
//   - attacked: The completed attacked table over the same grid and images.
//   - distance: The distance primitive.
//
// Outputs:
//   - *AttackedStats: Distances and per-attack collision counts.
//   - error: *sweep.ShapeMismatchError when the tables are incomplete or
//     do not line up, or ErrNegativeDistance.
func Attacked[H any](originals, attacked *sweep.Table[H], distance oracle.Distance[H]) (*AttackedStats, error) {
	if originals == nil {
		return nil, &sweep.ShapeMismatchError{Table: sweep.SweepOriginals, Reason: "table is missing"}
	}
	if attacked == nil {
		return nil, &sweep.ShapeMismatchError{Table: sweep.SweepAttacked, Reason: "table is missing"}
	}

	grid, images, attacks := originals.Grid(), originals.Images(), attacked.Attacks()
	origShape := sweep.Shape{Fuzziness: len(grid.Fuzziness), Resolutions: len(grid.Resolutions), Images: len(images)}
	if err := originals.Verify(sweep.SweepOriginals, origShape); err != nil {
		return nil, err
	}
	want := origShape
	want.Attacks = len(attacks)
	if want.Attacks == 0 {
		return nil, &sweep.ShapeMismatchError{Table: sweep.SweepAttacked, Want: want, Got: attacked.Shape(), Reason: "no attack axis"}
	}
	if err := attacked.Verify(sweep.SweepAttacked, want); err != nil {
		return nil, err
	}
	ag := attacked.Grid()
	if !slices.Equal(grid.Fuzziness, ag.Fuzziness) || !slices.Equal(grid.Resolutions, ag.Resolutions) {
		return nil, &sweep.ShapeMismatchError{Table: sweep.SweepAttacked, Want: want, Got: want, Reason: "grid differs from originals"}
	}
	if !slices.Equal(images, attacked.Images()) {
		return nil, &sweep.ShapeMismatchError{Table: sweep.SweepAttacked, Want: want, Got: want, Reason: "image axis differs from originals"}
	}

	s := &AttackedStats{
		grid:      grid,
		images:    images,
		attacks:   attacks,
		shape:     want,
		distances: make([]int, want.Size()),
	}
	zeros := make([]observation, 0, want.Size())
	for _, cell := range grid.Cells() {
		for i := range images {
			ref := originals.At(sweep.Coord{Fuzz: cell.FuzzIdx, Res: cell.ResIdx, Image: i})
			for a := range attacks {
				c := sweep.Coord{Fuzz: cell.FuzzIdx, Res: cell.ResIdx, Image: i, Attack: a}
				d := distance(ref, attacked.At(c))
				if d < 0 {
					return nil, fmt.Errorf("%w: %d for image %s under %s (%s)",
						ErrNegativeDistance, d, images[i], attacks[a].Name, cell)
				}
				s.distances[s.index(cell.FuzzIdx, cell.ResIdx, i, a)] = d
				zeros = append(zeros, observation{key: s.attackIndex(cell.FuzzIdx, cell.ResIdx, a), distance: d})
			}
		}
	}
	s.collisions = tally(want.Fuzziness*want.Resolutions*want.Attacks, zeros)
	return s, nil
}

// Grid returns the grid of the statistics.
func (s *AttackedStats) Grid() sweep.Grid { return s.grid }

// Images returns the image names, in row order.
func (s *AttackedStats) Images() []string { return s.images }

// Attacks returns the attacks, in column order.
func (s *AttackedStats) Attacks() []corpus.Attack { return s.attacks }

// Codes returns the display code of every attack column.
func (s *AttackedStats) Codes() []string { return corpus.Codes(s.attacks) }

// Distance returns the distance of image i under attack a to its original
// in cell (f, r).
func (s *AttackedStats) Distance(f, r, i, a int) int {
	return s.distances[s.index(f, r, i, a)]
}

// Collisions returns the number of images whose attack-a derivative has
// distance 0 to the original in cell (f, r).
func (s *AttackedStats) Collisions(f, r, a int) int {
	return s.collisions[s.attackIndex(f, r, a)]
}

// TotalCollisions sums Collisions over all attacks of cell (f, r).
func (s *AttackedStats) TotalCollisions(f, r int) int {
	start := s.attackIndex(f, r, 0)
	return sum(s.collisions[start : start+s.shape.Attacks])
}

// Total sums Collisions over the whole matrix.
func (s *AttackedStats) Total() int {
	return sum(s.collisions)
}

// Comparisons returns the number of (image, attack) pairs per cell.
func (s *AttackedStats) Comparisons() int {
	return len(s.images) * len(s.attacks)
}

// SummaryPercent returns TotalCollisions(f, r) / Comparisons() * 100.
func (s *AttackedStats) SummaryPercent(f, r int) float64 {
	return percent(s.TotalCollisions(f, r), s.Comparisons())
}

func (s *AttackedStats) index(f, r, i, a int) int {
	return ((f*s.shape.Resolutions+r)*s.shape.Images+i)*s.shape.Attacks + a
}

func (s *AttackedStats) attackIndex(f, r, a int) int {
	return (f*s.shape.Resolutions+r)*s.shape.Attacks + a
}
