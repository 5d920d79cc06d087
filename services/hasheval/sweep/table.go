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
	"sync"

	"github.com/AleutianAI/hashprobe/services/hasheval/corpus"
)

// Shape is the dimension of a hash table. Attacks is 0 for the originals
// table, which has no attack axis.
type Shape struct {
	Fuzziness   int
	Resolutions int
	Images      int
	Attacks     int
}

// Size returns the number of coordinates.
func (s Shape) Size() int {
	return s.Fuzziness * s.Resolutions * s.Images * s.attackSpan()
}

func (s Shape) attackSpan() int {
	if s.Attacks == 0 {
		return 1
	}
	return s.Attacks
}

func (s Shape) String() string {
	if s.Attacks == 0 {
		return fmt.Sprintf("[%d][%d][%d]", s.Fuzziness, s.Resolutions, s.Images)
	}
	return fmt.Sprintf("[%d][%d][%d][%d]", s.Fuzziness, s.Resolutions, s.Images, s.Attacks)
}

// Coord addresses one hash. Attack is always 0 in the originals table.
type Coord struct {
	Fuzz   int
	Res    int
	Image  int
	Attack int
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", c.Fuzz, c.Res, c.Image, c.Attack)
}

// Table is a complete, read-only hash table produced by a sweep.
//
// Thread Safety: Immutable; safe for concurrent reads.
type Table[H any] struct {
	name    string
	shape   Shape
	grid    Grid
	images  []string
	attacks []corpus.Attack
	values  []H
	filled  []bool
}

// Name returns "originals" or "attacked".
func (t *Table[H]) Name() string { return t.name }

// Shape returns the table dimensions.
func (t *Table[H]) Shape() Shape { return t.shape }

// Grid returns a copy of the grid the table was swept over.
func (t *Table[H]) Grid() Grid { return t.grid.clone() }

// Images returns the image names of the image axis.
func (t *Table[H]) Images() []string { return append([]string(nil), t.images...) }

// Attacks returns the attacks of the attack axis, nil for originals.
func (t *Table[H]) Attacks() []corpus.Attack { return append([]corpus.Attack(nil), t.attacks...) }

// At returns the hash at c. It panics if c is outside the table, like a
// slice index.
func (t *Table[H]) At(c Coord) H {
	i, ok := t.index(c)
	if !ok {
		panic(fmt.Sprintf("sweep: coordinate %s outside %s table %s", c, t.name, t.shape))
	}
	return t.values[i]
}

// Verify checks that the table has shape want and every coordinate was
// written. A nil table fails verification.
func (t *Table[H]) Verify(name string, want Shape) error {
	if t == nil {
		return &ShapeMismatchError{Table: name, Want: want, Reason: "table is missing"}
	}
	if t.shape != want {
		return &ShapeMismatchError{Table: name, Want: want, Got: t.shape, Reason: "dimensions differ"}
	}
	if len(t.values) != want.Size() || len(t.filled) != want.Size() {
		return &ShapeMismatchError{Table: name, Want: want, Got: t.shape, Reason: "storage size differs"}
	}
	for i, ok := range t.filled {
		if !ok {
			return &ShapeMismatchError{
				Table:  name,
				Want:   want,
				Got:    t.shape,
				Reason: fmt.Sprintf("coordinate %s never written", t.coord(i)),
			}
		}
	}
	return nil
}

func (t *Table[H]) index(c Coord) (int, bool) {
	s := t.shape
	if c.Fuzz < 0 || c.Fuzz >= s.Fuzziness ||
		c.Res < 0 || c.Res >= s.Resolutions ||
		c.Image < 0 || c.Image >= s.Images ||
		c.Attack < 0 || c.Attack >= s.attackSpan() {
		return 0, false
	}
	return ((c.Fuzz*s.Resolutions+c.Res)*s.Images+c.Image)*s.attackSpan() + c.Attack, true
}

func (t *Table[H]) coord(i int) Coord {
	s := t.shape
	var c Coord
	c.Attack = i % s.attackSpan()
	i /= s.attackSpan()
	c.Image = i % s.Images
	i /= s.Images
	c.Res = i % s.Resolutions
	c.Fuzz = i / s.Resolutions
	return c
}

// =============================================================================
// Builder
// =============================================================================

// Builder fills a table one coordinate at a time.
//
// Every coordinate must be set exactly once. Build hands out the table and
// retires the builder, so a table is never mutated after it was returned.
//
// Thread Safety: Safe for concurrent Set calls.
type Builder[H any] struct {
	mu    sync.Mutex
	table *Table[H]
	built bool
}

// NewBuilder starts a table over grid x images, plus an attack axis when
// attacks is non-empty.
func NewBuilder[H any](name string, grid Grid, images []string, attacks []corpus.Attack) *Builder[H] {
	shape := Shape{
		Fuzziness:   len(grid.Fuzziness),
		Resolutions: len(grid.Resolutions),
		Images:      len(images),
		Attacks:     len(attacks),
	}
	var attackAxis []corpus.Attack
	if len(attacks) > 0 {
		attackAxis = append(attackAxis, attacks...)
	}
	return &Builder[H]{
		table: &Table[H]{
			name:    name,
			shape:   shape,
			grid:    grid.clone(),
			images:  append([]string(nil), images...),
			attacks: attackAxis,
			values:  make([]H, shape.Size()),
			filled:  make([]bool, shape.Size()),
		},
	}
}

// Shape returns the shape of the table being built.
func (b *Builder[H]) Shape() Shape {
	return b.table.shape
}

// Set stores v at c. Setting a coordinate twice, outside the table or
// after Build is a *ShapeMismatchError.
func (b *Builder[H]) Set(c Coord, v H) error {
	t := b.table
	i, ok := t.index(c)
	if !ok {
		return &ShapeMismatchError{Table: t.name, Want: t.shape, Got: t.shape,
			Reason: fmt.Sprintf("coordinate %s out of range", c)}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.built {
		return &ShapeMismatchError{Table: t.name, Want: t.shape, Got: t.shape,
			Reason: fmt.Sprintf("coordinate %s written after build", c)}
	}
	if t.filled[i] {
		return &ShapeMismatchError{Table: t.name, Want: t.shape, Got: t.shape,
			Reason: fmt.Sprintf("coordinate %s written twice", c)}
	}
	t.values[i] = v
	t.filled[i] = true
	return nil
}

// Build verifies that every coordinate was set and returns the table.
func (b *Builder[H]) Build() (*Table[H], error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.built {
		return nil, &ShapeMismatchError{Table: b.table.name, Want: b.table.shape, Got: b.table.shape,
			Reason: "table already built"}
	}
	if err := b.table.Verify(b.table.name, b.table.shape); err != nil {
		return nil, err
	}
	b.built = true
	return b.table, nil
}
