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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/photoszzt/vscode-tlaplus/services/tla/fault"
)

// MainClass is the TLC entry point.
const MainClass = "tlc2.TLC"

// stopAfterOption limits simulation runs to three seconds.
const stopAfterOption = "-Dtlc2.TLC.stopAfter=3"

// ErrInvalidMode is returned for an unknown mode or a bad explore depth.
var ErrInvalidMode = errors.New("invalid TLC mode")

// =============================================================================
// MODES
// =============================================================================

// Mode selects how TLC runs.
type Mode string

const (
	// ModeCheck is exhaustive model checking.
	ModeCheck Mode = "check"

	// ModeSmoke is a short random simulation.
	ModeSmoke Mode = "smoke"

	// ModeExplore simulates behaviors of a fixed length.
	ModeExplore Mode = "explore"
)

// ParseMode validates s.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeCheck, ModeSmoke, ModeExplore:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q (want check, smoke or explore)", ErrInvalidMode, s)
}

// Options returns the TLC and JVM options for the mode. depth is only
// used by ModeExplore and must be at least 1 there.
func (m Mode) Options(depth int) (tlcOpts, javaOpts []string, err error) {
	switch m {
	case ModeCheck:
		return []string{"-cleanup", "-modelcheck"}, nil, nil
	case ModeSmoke:
		return []string{"-cleanup", "-simulate"}, []string{stopAfterOption}, nil
	case ModeExplore:
		if depth < 1 {
			return nil, nil, fmt.Errorf("%w: behavior length must be at least 1, got %d", ErrInvalidMode, depth)
		}
		return []string{"-cleanup", "-simulate", "-invlevel", strconv.Itoa(depth)}, []string{stopAfterOption}, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrInvalidMode, string(m))
}

// Title is the summary prefix used when reporting a finished run.
func (m Mode) Title() string {
	switch m {
	case ModeSmoke:
		return "Smoke test"
	case ModeExplore:
		return "Behavior exploration"
	default:
		return "Model check"
	}
}

// =============================================================================
// SPEC FILES
// =============================================================================

// SpecFiles is the module and configuration TLC runs.
type SpecFiles struct {
	TLAFile string `json:"tlaFile"`
	CfgFile string `json:"cfgFile"`
}

// FindSpecFiles locates the configuration for tla.
//
// Description:
//
//	X.tla uses X.cfg when it exists. Otherwise MCX.tla and MCX.cfg in the
//	same directory are used together, and TLAFile becomes MCX.tla.
//
// Errors:
//
//	fault.KindFileNotFound - neither layout exists.
func FindSpecFiles(tla string) (*SpecFiles, error) {
	dir := filepath.Dir(tla)
	base := strings.TrimSuffix(filepath.Base(tla), ".tla")

	if cfg := filepath.Join(dir, base+".cfg"); isFile(cfg) {
		return &SpecFiles{TLAFile: tla, CfgFile: cfg}, nil
	}

	mcTLA := filepath.Join(dir, "MC"+base+".tla")
	mcCfg := filepath.Join(dir, "MC"+base+".cfg")
	if isFile(mcTLA) && isFile(mcCfg) {
		return &SpecFiles{TLAFile: mcTLA, CfgFile: mcCfg}, nil
	}

	return nil, fault.Newf(fault.KindFileNotFound,
		"No %[1]s.cfg or MC%[1]s.tla/MC%[1]s.cfg files found for %[2]s. Please create an MC%[1]s.tla and MC%[1]s.cfg file according to the provided TLC guidelines.",
		base, tla).WithContext("file", tla)
}

// =============================================================================
// OUTPUT
// =============================================================================

var markerRe = regexp.MustCompile(`@!@!@(START|END)MSG \d+(:\d+)? @!@!@`)

// CleanLine removes TLC's tool-mode message markers.
//
// An empty input line is kept; a line that becomes empty only because
// markers were removed is dropped (ok is false).
func CleanLine(line string) (string, bool) {
	if line == "" {
		return "", true
	}
	clean := markerRe.ReplaceAllString(line, "")
	return clean, clean != ""
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
