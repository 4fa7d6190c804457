// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

//go:build unix

package process

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// configureProcAttr puts the child in its own process group so the whole
// JVM tree can be signalled at once.
func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminateTree sends SIGTERM to the process group and escalates to
// SIGKILL if the process is still alive after grace. If SIGTERM cannot be
// delivered SIGKILL is sent immediately.
func terminateTree(p *os.Process, grace time.Duration, done <-chan struct{}) error {
	pgid, err := unix.Getpgid(p.Pid)
	if err != nil {
		pgid = p.Pid
	}

	if err := unix.Kill(-pgid, unix.SIGTERM); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return nil
		}
		if kerr := unix.Kill(-pgid, unix.SIGKILL); kerr != nil && !errors.Is(kerr, unix.ESRCH) {
			return p.Kill()
		}
		return nil
	}

	go func() {
		timer := time.NewTimer(grace)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			_ = unix.Kill(-pgid, unix.SIGKILL)
		}
	}()
	return nil
}
