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
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// EnvPersonality overrides terminal detection.
const EnvPersonality = "TLAPLUS_PERSONALITY"

// PersonalityLevel selects how rich CLI output is.
type PersonalityLevel string

const (
	// PersonalityStandard uses colors, icons and boxes.
	PersonalityStandard PersonalityLevel = "standard"

	// PersonalityMinimal uses icons without colors.
	PersonalityMinimal PersonalityLevel = "minimal"

	// PersonalityMachine prints plain, parseable lines.
	PersonalityMachine PersonalityLevel = "machine"
)

// ParsePersonalityLevel converts s; unknown values are standard.
func ParsePersonalityLevel(s string) PersonalityLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal", "min", "m":
		return PersonalityMinimal
	case "machine", "quiet", "q", "plain":
		return PersonalityMachine
	default:
		return PersonalityStandard
	}
}

// DetectPersonality picks a level from TLAPLUS_PERSONALITY, falling back
// to machine output when f is not a terminal.
func DetectPersonality(f *os.File) PersonalityLevel {
	if env := os.Getenv(EnvPersonality); env != "" {
		return ParsePersonalityLevel(env)
	}
	if !IsTerminal(f) {
		return PersonalityMachine
	}
	return PersonalityStandard
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
