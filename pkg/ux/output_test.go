// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

// =============================================================================
// Icon.Render Tests
// =============================================================================

func TestIcon_Render(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError} {
		if !strings.Contains(icon.Render(), string(icon)) {
			t.Errorf("Render(%q) lost the icon", icon)
		}
	}
}

// =============================================================================
// Printer Tests
// =============================================================================

func TestPrinter_PlainForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	if !p.Plain() {
		t.Fatal("a bytes.Buffer is not a terminal")
	}

	p.Success("evaluation completed")
	p.Warning("no extra attacks")
	p.Error("hash failed")

	want := "OK: evaluation completed\nWARN: no extra attacks\nERROR: hash failed\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestPrinter_Styled(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{w: &buf}

	p.Success("done")
	if !strings.Contains(buf.String(), string(IconSuccess)) {
		t.Errorf("styled success line %q has no icon", buf.String())
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("bytes.Buffer reported as terminal")
	}
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if IsTerminal(f) {
		t.Error("regular file reported as terminal")
	}
}

// =============================================================================
// ProgressBar Tests
// =============================================================================

func TestProgressBar(t *testing.T) {
	if got := ProgressBar(3, 12, 10, true); got != "3/12" {
		t.Errorf("plain bar = %q, want 3/12", got)
	}
	if got := ProgressBar(0, 0, 10, false); got != "0/0" {
		t.Errorf("empty bar = %q, want 0/0", got)
	}

	bar := ProgressBar(5, 10, 10, false)
	if !strings.HasSuffix(bar, " 50%") {
		t.Errorf("bar %q does not end in 50%%", bar)
	}
	if strings.Count(bar, "█") != 5 {
		t.Errorf("bar %q should have 5 filled cells", bar)
	}

	full := ProgressBar(15, 10, 4, false)
	if !strings.HasSuffix(full, "100%") {
		t.Errorf("overfull bar %q not clamped", full)
	}
}
