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
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// stage is one named counter shown next to the spinner.
type stage struct {
	name        string
	done, total int
}

// Spinner provides an animated loading indicator with per-stage counters.
//
// On a non-terminal writer nothing is animated; Stop* still prints the
// final status line.
//
// Thread Safety: Stage and Status may be called from any goroutine.
type Spinner struct {
	printer *Printer
	stop    chan struct{}
	done    chan struct{}

	mu         sync.Mutex
	message    string
	stages     []stage
	isRunning  bool
	frameIndex int
}

// NewSpinner creates a new spinner writing to w.
func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{
		printer: NewPrinter(w),
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins the animation. Calling it again has no effect.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	if s.printer.Plain() {
		close(s.done)
		return
	}

	go func() {
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				fmt.Fprint(s.printer.w, "\r\033[K")
				close(s.done)
				return
			case <-ticker.C:
				fmt.Fprintf(s.printer.w, "\r\033[K%s", s.frame())
			}
		}
	}()
}

// frame renders the next animation frame and advances the index.
func (s *Spinner) frame() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	glyph := Styles.Title.Render(spinnerFrames[s.frameIndex])
	s.frameIndex = (s.frameIndex + 1) % len(spinnerFrames)
	return glyph + " " + s.line()
}

// line is the message plus stage counters. Callers hold mu.
func (s *Spinner) line() string {
	parts := []string{s.message}
	for _, st := range s.stages {
		parts = append(parts, fmt.Sprintf("%s %s", st.name, ProgressBar(st.done, st.total, 12, s.printer.Plain())))
	}
	return strings.Join(parts, "  ")
}

// Stop halts the animation and clears the spinner line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	if !s.printer.Plain() {
		close(s.stop)
	}
	<-s.done
}

// Stage records progress for a named stage. Stages are shown in the
// order they first report.
func (s *Spinner) Stage(name string, done, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.stages {
		if s.stages[i].name == name {
			s.stages[i].done, s.stages[i].total = done, total
			return
		}
	}
	s.stages = append(s.stages, stage{name: name, done: done, total: total})
}

// Status returns the current message and stage counters as plain text.
func (s *Spinner) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	parts := []string{s.message}
	for _, st := range s.stages {
		parts = append(parts, fmt.Sprintf("%s %d/%d", st.name, st.done, st.total))
	}
	return strings.Join(parts, "  ")
}

// StopWithSuccess stops the spinner and prints message as a success.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	s.printer.Success(message)
}

// StopWithError stops the spinner and prints message as an error.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	s.printer.Error(message)
}

// WithSpinner runs fn with a spinner on w and prints the outcome. fn
// receives the spinner so it can report stages. A failure line carries the
// stage counters reached before the error.
func WithSpinner(w io.Writer, message string, fn func(*Spinner) error) error {
	spin := NewSpinner(w, message)
	spin.Start()

	err := fn(spin)

	if err != nil {
		spin.StopWithError(fmt.Sprintf("%s: %v", spin.Status(), err))
		return err
	}

	spin.StopWithSuccess(message)
	return nil
}
