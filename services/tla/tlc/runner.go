// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tlc

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/photoszzt/vscode-tlaplus/services/tla/process"
	"github.com/photoszzt/vscode-tlaplus/services/tla/tools"
)

// Request describes one TLC run.
type Request struct {
	// File is the absolute path of the module.
	File string `json:"file" validate:"required"`

	// Mode defaults to ModeCheck.
	Mode Mode `json:"mode"`

	// CfgFile overrides the discovered configuration when it exists.
	CfgFile string `json:"cfgFile,omitempty"`

	// Depth is the behavior length for ModeExplore.
	Depth int `json:"behaviorLength,omitempty"`

	// Options are extra TLC options appended after the mode options.
	Options []string `json:"extraOpts,omitempty"`

	// JavaOptions are extra JVM options appended after the mode options.
	JavaOptions []string `json:"extraJavaOpts,omitempty"`

	// JavaHome overrides runtime lookup.
	JavaHome string `json:"javaHome,omitempty"`
}

func (req Request) mode() Mode {
	if req.Mode == "" {
		return ModeCheck
	}
	return req.Mode
}

// Result is a finished run.
type Result struct {
	Mode     Mode      `json:"mode"`
	Files    SpecFiles `json:"files"`
	ExitCode int       `json:"exitCode"`
	Output   []string  `json:"output"`
}

// Text renders the run summary followed by the cleaned output.
func (r *Result) Text() string {
	return fmt.Sprintf("%s completed with exit code %d.\n\nOutput:\n%s",
		r.Mode.Title(), r.ExitCode, strings.Join(r.Output, "\n"))
}

// Runner starts TLC.
//
// Thread Safety: Safe for concurrent use.
type Runner struct {
	starter process.Starter
	install *tools.Install
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout bounds each run. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(starter process.Starter, install *tools.Install, opts ...Option) *Runner {
	r := &Runner{starter: starter, install: install, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Plan resolves the files and builds the process spec for req without
// starting anything.
func (r *Runner) Plan(req Request) (process.Spec, *SpecFiles, error) {
	mode := req.mode()
	tlcOpts, javaOpts, err := mode.Options(req.Depth)
	if err != nil {
		return process.Spec{}, nil, err
	}

	files, err := FindSpecFiles(req.File)
	if err != nil {
		return process.Spec{}, nil, err
	}
	if req.CfgFile != "" && isFile(req.CfgFile) {
		files.CfgFile = req.CfgFile
	}

	workDir := filepath.Dir(files.TLAFile)
	cfgArg := files.CfgFile
	if filepath.Dir(cfgArg) == workDir {
		cfgArg = filepath.Base(cfgArg)
	}

	args := []string{filepath.Base(files.TLAFile), "-tool", "-modelcheck", "-config", cfgArg}
	args = append(args, tlcOpts...)
	args = append(args, req.Options...)

	java := append(javaOpts, req.JavaOptions...)
	java = append(java, r.install.LibraryOption()...)

	return process.Spec{
		ClassPath:   r.install.ClassPath(),
		MainClass:   MainClass,
		Args:        args,
		JavaOptions: java,
		JavaHome:    req.JavaHome,
		WorkDir:     workDir,
		Timeout:     r.timeout,
	}, files, nil
}

// Stream runs TLC and calls fn with every cleaned output line as it
// arrives. It returns the exit code once the process has exited.
func (r *Runner) Stream(ctx context.Context, req Request, fn func(line string)) (*SpecFiles, int, error) {
	spec, files, err := r.Plan(req)
	if err != nil {
		return nil, 0, err
	}

	mode := req.mode()
	ctx, span := startRunSpan(ctx, mode, files.TLAFile)
	defer span.End()
	start := time.Now()

	h, err := r.starter.Run(ctx, spec)
	if err != nil {
		return nil, 0, err
	}
	defer h.Close()

	if err := h.Lines(func(line string) bool {
		if clean, ok := CleanLine(line); ok {
			fn(clean)
		}
		return true
	}); err != nil {
		return nil, 0, fmt.Errorf("read TLC output: %w", err)
	}

	code, err := h.Wait()
	recordRun(ctx, mode, time.Since(start), code, err == nil)
	if err != nil {
		return nil, code, err
	}
	if code < 0 {
		code = 0
	}

	r.logger.Info("TLC finished",
		slog.String("mode", string(mode)),
		slog.String("file", files.TLAFile),
		slog.String("cfg", files.CfgFile),
		slog.Int("exit_code", code),
		slog.Duration("elapsed", time.Since(start)),
	)
	return files, code, nil
}

// Run runs TLC to completion and collects the cleaned output.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	output := []string{}
	files, code, err := r.Stream(ctx, req, func(line string) {
		output = append(output, line)
	})
	if err != nil {
		return nil, err
	}
	return &Result{Mode: req.mode(), Files: *files, ExitCode: code, Output: output}, nil
}
