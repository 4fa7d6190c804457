// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sany

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/photoszzt/vscode-tlaplus/services/tla/archive"
	"github.com/photoszzt/vscode-tlaplus/services/tla/process"
	"github.com/photoszzt/vscode-tlaplus/services/tla/tools"
)

// MainClass is the SANY entry point.
const MainClass = "tla2sany.SANY"

// ErrNoStore is returned when an archive URI is checked without a store.
var ErrNoStore = errors.New("archive store not configured")

// Checker runs SANY on a file and interprets its output.
//
// Thread Safety: Safe for concurrent use; every Check starts its own
// process.
type Checker struct {
	runner  process.Starter
	install *tools.Install
	store   *archive.Store
	timeout time.Duration
	logger  *slog.Logger
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithStore enables checking modules addressed by archive URIs.
func WithStore(s *archive.Store) CheckerOption {
	return func(c *Checker) {
		c.store = s
	}
}

// WithTimeout bounds each SANY run.
func WithTimeout(d time.Duration) CheckerOption {
	return func(c *Checker) {
		c.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) CheckerOption {
	return func(c *Checker) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewChecker creates a Checker for the given installation.
func NewChecker(runner process.Starter, install *tools.Install, opts ...CheckerOption) *Checker {
	c := &Checker{
		runner:  runner,
		install: install,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check parses and level-checks file.
//
// Description:
//
//	file is an absolute path or an archive URI. SANY runs in the file's
//	directory with the file's base name as its only argument. Plain
//	library directories are passed with -DTLA-Library. All output is
//	drained through the Interpreter before waiting for the exit.
//
// Inputs:
//
//	ctx - Cancelling ctx terminates SANY.
//	file - The module to check.
//	javaHome - Optional runtime override.
//
// Outputs:
//
//	*Result - Diagnostics. A failed check is not an error.
//	error - Launch, timeout, cancellation or archive resolution failure.
func (c *Checker) Check(ctx context.Context, file, javaHome string) (*Result, error) {
	ctx, span := startCheckSpan(ctx, file)
	defer span.End()
	start := time.Now()

	path, err := c.resolve(ctx, file)
	if err != nil {
		return nil, err
	}

	h, err := c.runner.Run(ctx, process.Spec{
		ClassPath:   c.install.ClassPath(),
		MainClass:   MainClass,
		Args:        []string{filepath.Base(path)},
		JavaOptions: c.install.LibraryOption(),
		JavaHome:    javaHome,
		WorkDir:     filepath.Dir(path),
		Timeout:     c.timeout,
	})
	if err != nil {
		return nil, err
	}
	defer h.Close()

	interp := NewInterpreter()
	if err := h.Lines(func(line string) bool {
		interp.Feed(line)
		return true
	}); err != nil {
		return nil, fmt.Errorf("read SANY output: %w", err)
	}
	if _, err := h.Wait(); err != nil {
		return nil, err
	}

	res := interp.Finish()
	recordCheck(ctx, time.Since(start), res)
	c.logger.Debug("SANY check finished",
		slog.String("file", path),
		slog.Bool("success", res.Success),
		slog.Int("errors", len(res.Errors)),
		slog.Int("warnings", len(res.Warnings)),
	)
	return &res, nil
}

func (c *Checker) resolve(ctx context.Context, file string) (string, error) {
	if !archive.IsURI(file) {
		return file, nil
	}
	if c.store == nil {
		return "", fmt.Errorf("%w: cannot resolve %s", ErrNoStore, file)
	}
	return c.store.Resolve(ctx, file)
}

// FormatText renders r the way editors expect a one-shot check summary.
func FormatText(file string, r *Result) string {
	if r.Success {
		return fmt.Sprintf("No errors found in the TLA+ specification %s.", file)
	}
	lines := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		lines = append(lines, fmt.Sprintf("Parsing of file %s failed at line %d with error: '%s'", e.File, e.Line, e.Message))
	}
	return strings.Join(lines, "\n")
}
