// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package workspace confines caller supplied paths to a working
// directory.
package workspace

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/photoszzt/vscode-tlaplus/services/tla/fault"
)

// Resolve turns p into an absolute path.
//
// Description:
//
//	Absolute paths are kept; relative paths are joined to workDir, or to
//	the current directory when workDir is empty. With a workDir the
//	result must stay inside it.
//
// Errors:
//
//	fault.KindPathTraversal - p resolves outside workDir.
func Resolve(p, workDir string) (string, error) {
	abs := p
	if !filepath.IsAbs(p) {
		base := workDir
		if base == "" {
			wd, err := os.Getwd()
			if err != nil {
				return "", fault.Wrap(fault.KindIOError, err, "")
			}
			base = wd
		}
		abs = filepath.Join(base, p)
	}
	abs = filepath.Clean(abs)

	if workDir == "" {
		return abs, nil
	}

	rel, err := filepath.Rel(workDir, abs)
	if err != nil || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return "", fault.Newf(fault.KindPathTraversal,
			"Access denied: Path %s is outside the working directory %s", p, workDir).
			WithContext("path", p)
	}
	return abs, nil
}

// RequireFile fails unless p exists.
//
// Errors:
//
//	fault.KindFileNotFound - p does not exist.
func RequireFile(p string) error {
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fault.Newf(fault.KindFileNotFound, "File %s does not exist on disk.", p)
		}
		return fault.Wrap(fault.Classify(err), err, "")
	}
	return nil
}

// ResolveFile is Resolve followed by RequireFile.
func ResolveFile(p, workDir string) (string, error) {
	abs, err := Resolve(p, workDir)
	if err != nil {
		return "", err
	}
	if err := RequireFile(abs); err != nil {
		return "", err
	}
	return abs, nil
}

// ValidateDir fails unless dir is an existing directory. name labels the
// directory in the message.
//
// Errors:
//
//	fault.KindInvalidConfigPath - dir is missing or not a directory.
func ValidateDir(dir, name string) error {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return fault.Newf(fault.KindInvalidConfigPath,
			"%s directory not found: %s\n\nPlease ensure the directory exists or specify a different path.", name, dir)
	}
	if err != nil {
		return fault.Wrap(fault.Classify(err), err, "")
	}
	if !info.IsDir() {
		return fault.Newf(fault.KindInvalidConfigPath, "%s path exists but is not a directory: %s", name, dir)
	}
	return nil
}
