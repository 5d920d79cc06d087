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
	"fmt"
)

// Grid is the configuration space of a sweep: every fuzziness paired with
// every resolution.
type Grid struct {
	// Fuzziness values, in report order. Default: [0, 5, 10]
	Fuzziness []int `yaml:"fuzziness" validate:"required,min=1,unique,dive,gte=0,lte=255"`

	// Resolutions values, in report order. Default: [8, 4, 3]
	Resolutions []int `yaml:"resolutions" validate:"required,min=1,unique,dive,gte=2,lte=64"`
}

// DefaultGrid returns the grid of the reference evaluation.
func DefaultGrid() Grid {
	return Grid{
		Fuzziness:   []int{0, 5, 10},
		Resolutions: []int{8, 4, 3},
	}
}

// Validate checks that both axes are non-empty and in range.
func (g Grid) Validate() error {
	if len(g.Fuzziness) == 0 {
		return fmt.Errorf("%w: no fuzziness values", ErrInvalidGrid)
	}
	if len(g.Resolutions) == 0 {
		return fmt.Errorf("%w: no resolutions", ErrInvalidGrid)
	}
	for _, f := range g.Fuzziness {
		if f < 0 {
			return fmt.Errorf("%w: negative fuzziness %d", ErrInvalidGrid, f)
		}
	}
	for _, r := range g.Resolutions {
		if r < 1 {
			return fmt.Errorf("%w: resolution %d must be positive", ErrInvalidGrid, r)
		}
	}
	return nil
}

// Cells enumerates the grid fuzziness-major, then resolution.
func (g Grid) Cells() []Cell {
	cells := make([]Cell, 0, len(g.Fuzziness)*len(g.Resolutions))
	for fi, f := range g.Fuzziness {
		for ri, r := range g.Resolutions {
			cells = append(cells, Cell{FuzzIdx: fi, ResIdx: ri, Fuzziness: f, Resolution: r})
		}
	}
	return cells
}

// clone returns a deep copy so a table's grid cannot be changed through
// the caller's slices.
func (g Grid) clone() Grid {
	return Grid{
		Fuzziness:   append([]int(nil), g.Fuzziness...),
		Resolutions: append([]int(nil), g.Resolutions...),
	}
}

// Cell is one configuration of the grid.
type Cell struct {
	FuzzIdx    int
	ResIdx     int
	Fuzziness  int
	Resolution int
}

func (c Cell) String() string {
	return fmt.Sprintf("fuzz=%d res=%d", c.Fuzziness, c.Resolution)
}
