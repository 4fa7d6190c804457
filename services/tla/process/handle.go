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
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/photoszzt/vscode-tlaplus/services/tla/fault"
)

// maxLineBytes bounds a single scanned output line.
const maxLineBytes = 4 * 1024 * 1024

type handleConfig struct {
	id        string
	mainClass string
	split     bool
	timeout   time.Duration
	killGrace time.Duration
	logger    *slog.Logger
}

// Handle owns one running tool process.
//
// Description:
//
//	Output yields stdout and stderr merged line by line; each channel
//	keeps its own order, interleaving between them is best effort. The
//	stream ends once both channels are drained. Wait reports the exit
//	status after that.
//
// Thread Safety: Cancel, Close, Wait and the accessors are safe for
// concurrent use. Output must be consumed by a single reader.
type Handle struct {
	// ID identifies the invocation in logs and spans.
	ID string

	cmd    *exec.Cmd
	cfg    handleConfig
	output *io.PipeReader
	stderr lockedBuffer
	start  time.Time

	done     chan struct{}
	exitCode int
	waitErr  error

	timedOut  atomic.Bool
	cancelled atomic.Bool
	killOnce  sync.Once
	closeOnce sync.Once
	timer     *time.Timer
}

func newHandle(cmd *exec.Cmd, stdout, stderr io.Reader, cfg handleConfig) *Handle {
	pr, pw := io.Pipe()
	h := &Handle{
		ID:     cfg.id,
		cmd:    cmd,
		cfg:    cfg,
		output: pr,
		start:  time.Now(),
		done:   make(chan struct{}),
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.Go(func() error { return copyLines(pw, &mu, stdout) })
	if cfg.split {
		g.Go(func() error {
			_, err := io.Copy(&h.stderr, stderr)
			return err
		})
	} else {
		g.Go(func() error { return copyLines(pw, &mu, stderr) })
	}

	if cfg.timeout > 0 {
		h.timer = time.AfterFunc(cfg.timeout, func() {
			h.timedOut.Store(true)
			cfg.logger.Warn("Tool process timed out",
				slog.String("id", h.ID),
				slog.String("main_class", cfg.mainClass),
				slog.Duration("timeout", cfg.timeout),
			)
			h.terminate()
		})
	}

	go func() {
		copyErr := g.Wait()
		waitErr := cmd.Wait()
		if h.timer != nil {
			h.timer.Stop()
		}
		h.exitCode, h.waitErr = h.classifyExit(waitErr)
		if copyErr != nil {
			pw.CloseWithError(copyErr)
		} else {
			pw.Close()
		}
		recordExit(context.Background(), cfg.mainClass, time.Since(h.start), h.exitCode, h.timedOut.Load())
		close(h.done)
	}()

	return h
}

// watch terminates the process when ctx ends before it exits.
func (h *Handle) watch(ctx context.Context) {
	if ctx.Done() == nil {
		return
	}
	go func() {
		select {
		case <-ctx.Done():
			h.cancelled.Store(true)
			h.terminate()
		case <-h.done:
		}
	}()
}

// copyLines forwards src to dst one complete line at a time. When dst is
// closed the remainder of src is discarded so the child never blocks on a
// full pipe.
func copyLines(dst io.Writer, mu *sync.Mutex, src io.Reader) error {
	br := bufio.NewReader(src)
	discard := false
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 && !discard {
			mu.Lock()
			_, werr := dst.Write(line)
			mu.Unlock()
			if werr != nil {
				discard = true
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if errors.Is(err, io.ErrClosedPipe) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}
	}
}

func (h *Handle) classifyExit(err error) (int, error) {
	code := 0
	if h.cmd.ProcessState != nil {
		code = h.cmd.ProcessState.ExitCode()
	}
	switch {
	case h.timedOut.Load():
		return code, fault.Newf(fault.KindProcessTimeout,
			"Process timed out after %dms", h.cfg.timeout.Milliseconds()).
			WithContext("mainClass", h.cfg.mainClass)
	case h.cancelled.Load():
		return code, ErrCancelled
	}
	var exitErr *exec.ExitError
	if err == nil || errors.As(err, &exitErr) {
		return code, nil
	}
	return code, fault.Wrap(fault.KindIOError, err, "")
}

// PID returns the operating system process id.
func (h *Handle) PID() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Output returns the merged output stream (stdout only when streams are
// split).
func (h *Handle) Output() io.Reader {
	return h.output
}

// Lines calls fn for every output line until the stream ends.
//
// Description:
//
//	Lines are delivered without the trailing newline; a trailing "\r" is
//	also removed. Returning false from fn stops reading; the remaining
//	output is discarded by Close.
func (h *Handle) Lines(fn func(line string) bool) error {
	sc := bufio.NewScanner(h.output)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := bytes.TrimSuffix(sc.Bytes(), []byte{'\r'})
		if !fn(string(line)) {
			return nil
		}
	}
	return sc.Err()
}

// Stderr returns buffered stderr when streams are split. Complete only
// after the process has exited.
func (h *Handle) Stderr() string {
	return h.stderr.String()
}

// Done is closed once the process has exited and output is closed.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Exited reports whether the exit status is already known.
func (h *Handle) Exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the process exits.
//
// Outputs:
//
//	int - Exit code (-1 when killed by a signal).
//	error - nil for any normal exit including non-zero codes;
//	        KindProcessTimeout after a timeout; ErrCancelled after Cancel.
//
// Wait does not consume Output. If nobody reads Output the process can
// block on a full pipe; use Close in that case.
func (h *Handle) Wait() (int, error) {
	<-h.done
	return h.exitCode, h.waitErr
}

// TimedOut reports whether the timeout fired.
func (h *Handle) TimedOut() bool {
	return h.timedOut.Load()
}

// Cancel terminates the process with the same semantics as a timeout.
// It is a no-op once the process has exited.
func (h *Handle) Cancel() {
	if h.Exited() {
		return
	}
	h.cancelled.Store(true)
	h.terminate()
}

// Close cancels the process if still running, drains the remaining
// output and waits for exit. Safe to call more than once.
func (h *Handle) Close() error {
	var err error
	h.closeOnce.Do(func() {
		h.Cancel()
		_, _ = io.Copy(io.Discard, h.output)
		<-h.done
		err = h.output.Close()
	})
	return err
}

func (h *Handle) terminate() {
	h.killOnce.Do(func() {
		if h.cmd.Process == nil {
			return
		}
		if err := terminateTree(h.cmd.Process, h.cfg.killGrace, h.done); err != nil {
			h.cfg.logger.Warn("Failed to terminate tool process",
				slog.String("id", h.ID),
				slog.Int("pid", h.cmd.Process.Pid),
				slog.String("error", err.Error()),
			)
		}
	})
}

// lockedBuffer is a bytes.Buffer safe for one writer and concurrent readers.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
