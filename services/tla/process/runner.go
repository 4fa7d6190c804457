// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/photoszzt/vscode-tlaplus/services/tla/fault"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidSpec indicates a Spec is missing required fields.
	ErrInvalidSpec = errors.New("invalid process spec")

	// ErrCancelled indicates the process was terminated through Cancel or
	// context cancellation.
	ErrCancelled = errors.New("process cancelled")
)

// DefaultKillGrace is the wait between SIGTERM and SIGKILL.
const DefaultKillGrace = 3 * time.Second

// =============================================================================
// SPEC
// =============================================================================

// Spec describes one tool invocation.
type Spec struct {
	// ClassPath is the default classpath (the tool archives).
	ClassPath string

	// MainClass is the Java entry point, e.g. "tla2sany.SANY".
	MainClass string

	// Args follow the main class.
	Args []string

	// JavaOptions are caller JVM options; defaults are merged in.
	JavaOptions []string

	// JavaHome overrides runtime lookup when set.
	JavaHome string

	// WorkDir is the process working directory. Empty means the current one.
	WorkDir string

	// Timeout force-terminates the process when positive.
	Timeout time.Duration

	// SplitStreams keeps stderr out of Output; it is buffered and
	// available through Handle.Stderr once the process has exited.
	SplitStreams bool

	// Env is appended to the inherited environment.
	Env []string
}

// =============================================================================
// RUNNER
// =============================================================================

// Starter launches tool processes. *Runner implements it.
type Starter interface {
	Run(ctx context.Context, spec Spec) (*Handle, error)
}

var _ Starter = (*Runner)(nil)

// Runner starts tool processes.
//
// Thread Safety: Safe for concurrent use. Each Run produces an
// independent Handle.
type Runner struct {
	logger    *slog.Logger
	policy    fault.Policy
	killGrace time.Duration
	lookupEnv func(string) (string, bool)
	goos      string
	goarch    string
}

// Option configures the Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRetryPolicy sets the spawn retry policy. The policy is always
// narrowed to spawn failures.
func WithRetryPolicy(p fault.Policy) Option {
	return func(r *Runner) {
		r.policy = p
	}
}

// WithKillGrace sets the wait before the forced kill.
func WithKillGrace(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.killGrace = d
		}
	}
}

// WithLookupEnv replaces os.LookupEnv for java home discovery.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(r *Runner) {
		if fn != nil {
			r.lookupEnv = fn
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		logger:    slog.Default(),
		policy:    fault.DefaultPolicy(),
		killGrace: DefaultKillGrace,
		lookupEnv: os.LookupEnv,
		goos:      runtime.GOOS,
		goarch:    runtime.GOARCH,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.policy = r.policy.Only(fault.KindJavaSpawnFailed, fault.KindProcessSpawn)
	return r
}

// Run launches the tool described by spec.
//
// Description:
//
//	Resolves java, merges options, and starts the process under the spawn
//	retry policy. Only the act of starting the OS process is retried; once
//	the process is running its outcome belongs to the Handle.
//
// Inputs:
//
//	ctx - Cancelling ctx terminates the process.
//	spec - The invocation.
//
// Outputs:
//
//	*Handle - The running process. The caller owns it.
//	error - *fault.Error with KindJavaNotFound or KindJavaSpawnFailed.
//
// Thread Safety: Safe for concurrent use.
func (r *Runner) Run(ctx context.Context, spec Spec) (*Handle, error) {
	if spec.MainClass == "" {
		return nil, fmt.Errorf("%w: main class is required", ErrInvalidSpec)
	}

	ctx, span := startRunSpan(ctx, spec.MainClass)
	defer span.End()

	javaPath, err := r.findJava(spec.JavaHome)
	if err != nil {
		recordSpawn(ctx, spec.MainClass, false)
		return nil, err
	}

	argv := append(BuildOptions(spec.JavaOptions, spec.ClassPath), spec.MainClass)
	argv = append(argv, spec.Args...)

	p := r.policy
	p.OnRetry = func(attempt int, err *fault.Error, delay time.Duration) {
		r.logger.Warn("Retrying java spawn",
			slog.String("main_class", spec.MainClass),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)
	}

	h, err := fault.Do(ctx, p, func(ctx context.Context, attempt int) (*Handle, error) {
		return r.start(ctx, javaPath, argv, spec)
	})
	if err != nil {
		recordSpawn(ctx, spec.MainClass, false)
		return nil, fault.Enhance(err, map[string]any{
			"javaPath":  javaPath,
			"mainClass": spec.MainClass,
			"args":      truncateArgs(spec.Args, 3),
		})
	}

	recordSpawn(ctx, spec.MainClass, true)
	setRunSpanResult(span, h.PID(), h.ID)

	r.logger.Debug("Tool process started",
		slog.String("id", h.ID),
		slog.String("main_class", spec.MainClass),
		slog.Int("pid", h.PID()),
		slog.String("java", javaPath),
		slog.String("dir", spec.WorkDir),
	)
	return h, nil
}

// start performs one spawn attempt.
func (r *Runner) start(ctx context.Context, javaPath string, argv []string, spec Spec) (*Handle, error) {
	cmd := exec.Command(javaPath, argv...)
	cmd.Dir = spec.WorkDir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	configureProcAttr(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fault.Wrap(fault.KindProcessSpawn, err, "")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fault.Wrap(fault.KindProcessSpawn, err, "")
	}

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fault.Wrap(fault.KindJavaNotFound, err,
				fmt.Sprintf("Java executable not found: %q is not on PATH. Install Java or set JAVA_HOME", javaPath))
		}
		return nil, fault.Wrap(fault.KindJavaSpawnFailed, err,
			fmt.Sprintf("Failed to launch Java process using %q: %v", javaPath, err))
	}

	h := newHandle(cmd, stdout, stderr, handleConfig{
		id:        uuid.NewString(),
		mainClass: spec.MainClass,
		split:     spec.SplitStreams,
		timeout:   spec.Timeout,
		killGrace: r.killGrace,
		logger:    r.logger,
	})
	h.watch(ctx)
	return h, nil
}

func truncateArgs(args []string, n int) []string {
	if len(args) <= n {
		return args
	}
	return args[:n]
}
