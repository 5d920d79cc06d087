// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report renders evaluation statistics as fixed-width text tables.
//
// Three views are produced, always in this order: the originals view
// (distance of every image to image 0), the attacked view (distance of
// every attacked derivative to its original) and the summary view
// (collision percentage per configuration cell).
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/AleutianAI/hashprobe/services/hasheval/aggregate"
	"github.com/AleutianAI/hashprobe/services/hasheval/corpus"
)

const (
	// nameWidth is the width of the image name column.
	nameWidth = 40

	// valueWidth is the width of a distance or percentage column.
	valueWidth = 7

	// summaryWidth is the width of a summary percentage column.
	summaryWidth = 10

	// UnexpectedZero marks a zero distance between distinct originals.
	UnexpectedZero = "0 !"
)

const (
	tableIndent  = "        "
	attackIndent = "            "
	headerIndent = "    "
)

// Renderer writes reports to an io.Writer.
//
// The first write error is kept: every later call writes nothing and
// returns that error.
//
// Thread Safety: Not safe for concurrent use.
type Renderer struct {
	w   io.Writer
	err error
}

// New returns a Renderer writing to w.
func New(w io.Writer) *Renderer {
	return &Renderer{w: w}
}

// All writes the originals, attacked and summary views in that order.
func (r *Renderer) All(orig *aggregate.OriginalStats, attacked *aggregate.AttackedStats) error {
	r.Originals(orig)
	r.Attacked(attacked)
	return r.Summary(attacked)
}

// Originals writes one table per fuzziness: a row per image, a column per
// resolution, and a footer with the collision percentage per resolution.
func (r *Renderer) Originals(s *aggregate.OriginalStats) error {
	grid, images := s.Grid(), s.Images()
	if len(images) == 0 {
		return r.err
	}

	r.line("Distances of the first input image (%s) to all other inputs, originals only:", images[0])
	r.line("")

	header := make([]string, len(grid.Resolutions))
	for ri, res := range grid.Resolutions {
		header[ri] = "res=" + strconv.Itoa(res)
	}
	separator := tableIndent + dashes(len(grid.Resolutions))

	for fi, fuzz := range grid.Fuzziness {
		r.line("%sfuzziness = %d", headerIndent, fuzz)
		r.line("")
		r.row(tableIndent, "Input", header, valueWidth)
		r.line("%s", separator)
		for i, name := range images {
			cells := make([]string, len(grid.Resolutions))
			for ri := range grid.Resolutions {
				if s.Unexpected(fi, ri, i) {
					cells[ri] = UnexpectedZero
				} else {
					cells[ri] = strconv.Itoa(s.Distance(fi, ri, i))
				}
			}
			r.row(tableIndent, name, cells, valueWidth)
		}
		r.line("%s", separator)

		percents := make([]string, len(grid.Resolutions))
		for ri := range grid.Resolutions {
			percents[ri] = fmt.Sprintf("%.2f", s.CollisionPercent(fi, ri))
		}
		r.row(tableIndent, "Percentage of collisions:", percents, valueWidth)
		r.line("")
	}
	return r.err
}

// Legend writes the attack display codes and names.
func (r *Renderer) Legend(attacks []corpus.Attack) error {
	r.line("Attacks")
	for i, a := range attacks {
		if a.Extra {
			r.line("%s - %s (extra)", corpus.Code(i), a.Name)
		} else {
			r.line("%s - %s", corpus.Code(i), a.Name)
		}
	}
	r.line("")
	return r.err
}

// Attacked writes the legend and one table per fuzziness and resolution: a
// row per image, a column per attack, and a footer with the collision
// count per attack.
func (r *Renderer) Attacked(s *aggregate.AttackedStats) error {
	grid, images, codes := s.Grid(), s.Images(), s.Codes()

	r.line("Distances of the original input images to their attacked versions:")
	r.line("")
	r.Legend(s.Attacks())

	separator := attackIndent + dashes(len(codes))
	for fi, fuzz := range grid.Fuzziness {
		r.line("%sfuzziness = %d", headerIndent, fuzz)
		r.line("")
		for ri, res := range grid.Resolutions {
			r.line("%sresolution = %d", tableIndent, res)
			r.line("")
			r.row(attackIndent, "Input", codes, valueWidth)
			r.line("%s", separator)
			for i, name := range images {
				cells := make([]string, len(codes))
				for a := range codes {
					cells[a] = strconv.Itoa(s.Distance(fi, ri, i, a))
				}
				r.row(attackIndent, name, cells, valueWidth)
			}
			r.line("%s", separator)

			totals := make([]string, len(codes))
			for a := range codes {
				totals[a] = strconv.Itoa(s.Collisions(fi, ri, a))
			}
			r.row(attackIndent, "Total collisions:", totals, valueWidth)
			r.line("")
		}
	}
	return r.err
}

// Summary writes the collision percentage across all attacks per
// fuzziness (rows) and resolution (columns), followed by the corpus size.
func (r *Renderer) Summary(s *aggregate.AttackedStats) error {
	grid := s.Grid()

	r.line("Percentage of collisions across all attacks per resolution/fuzziness pair:")
	r.line("")

	var b strings.Builder
	fmt.Fprintf(&b, "%s     %-6s", headerIndent, "")
	for _, res := range grid.Resolutions {
		fmt.Fprintf(&b, " res=%-6d", res)
	}
	r.line("%s", b.String())
	r.line("%s---------+%s", headerIndent, strings.Repeat("-", summaryWidth*len(grid.Resolutions)))

	for fi, fuzz := range grid.Fuzziness {
		b.Reset()
		fmt.Fprintf(&b, "%sfuzz=%-3d %-3s", headerIndent, fuzz, "|")
		for ri := range grid.Resolutions {
			fmt.Fprintf(&b, "%-*.2f ", summaryWidth, s.SummaryPercent(fi, ri))
		}
		r.line("%s", b.String())
	}

	r.line("")
	r.line("A total of %d images under %d attacks were examined.", len(s.Images()), len(s.Attacks()))
	return r.err
}

// row writes a name column followed by value columns.
func (r *Renderer) row(indent, name string, cells []string, width int) {
	var b strings.Builder
	b.WriteString(indent)
	fmt.Fprintf(&b, "%-*s", nameWidth, name)
	for _, c := range cells {
		fmt.Fprintf(&b, " %-*s", width, c)
	}
	r.line("%s", b.String())
}

// line writes one formatted line without trailing blanks.
func (r *Renderer) line(format string, args ...any) {
	if r.err != nil {
		return
	}
	text := fmt.Sprintf(format, args...)
	_, r.err = io.WriteString(r.w, strings.TrimRight(text, " ")+"\n")
}

// dashes returns the separator under a name column and n value columns.
func dashes(n int) string {
	return strings.Repeat("-", nameWidth+n*(valueWidth+1))
}
