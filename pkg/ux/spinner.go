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
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates on the Printer's stderr while a Java tool runs. It is
// silent unless the personality is standard.
type Spinner struct {
	p       *Printer
	message string
	stop    chan struct{}
	done    chan struct{}

	mu      sync.Mutex
	running bool
}

// Spinner creates a stopped spinner.
func (p *Printer) Spinner(message string) *Spinner {
	return &Spinner{p: p, message: message}
}

// Start begins the animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.p.level != PersonalityStandard {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go func(stop, done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i = (i + 1) % len(spinnerFrames) {
			select {
			case <-stop:
				fmt.Fprint(s.p.err, "\r\033[K")
				return
			case <-ticker.C:
				s.mu.Lock()
				msg := s.message
				s.mu.Unlock()
				fmt.Fprintf(s.p.err, "\r%s %s", Styles.Highlight.Render(spinnerFrames[i]), msg)
			}
		}
	}(s.stop, s.done)
}

// Update changes the message while running.
func (s *Spinner) Update(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Stop halts the animation and clears the line. Safe to call when not
// running.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
}
