// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tools describes a TLA+ tools installation: the two archives,
// the classpath built from them and the module search paths SANY and TLC
// use.
package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/photoszzt/vscode-tlaplus/services/tla/archive"
	"github.com/photoszzt/vscode-tlaplus/services/tla/fault"
	"github.com/photoszzt/vscode-tlaplus/services/tla/process"
)

const (
	// CommunityArchiveName is the community modules archive.
	CommunityArchiveName = "CommunityModules-deps.jar"

	// StandardModulesDir holds the standard modules inside tla2tools.jar.
	StandardModulesDir = "tla2sany/StandardModules"
)

// Install is a located tools directory.
type Install struct {
	// Dir is the tools directory.
	Dir string `json:"dir"`

	// ToolsArchive is the path of tla2tools.jar.
	ToolsArchive string `json:"toolsArchive"`

	// CommunityArchive is the path of CommunityModules-deps.jar.
	CommunityArchive string `json:"communityArchive"`

	// Libraries are extra plain module directories.
	Libraries []string `json:"libraries,omitempty"`
}

// SearchPathModules lists the modules found on one search path.
type SearchPathModules struct {
	SearchPath string   `json:"searchPath"`
	Modules    []string `json:"modules"`
}

// Locate checks dir for both archives.
//
// Errors:
//
//	fault.KindToolsNotFound - dir is empty or an archive is missing.
func Locate(dir string, libraries ...string) (*Install, error) {
	if dir == "" {
		return nil, fault.New(fault.KindToolsNotFound,
			"TLA+ tools directory not configured. Use --tools-dir to specify the location.")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fault.Wrap(fault.KindInvalidConfigPath, err, "")
	}

	toolsJar := filepath.Join(abs, process.ToolsArchiveName)
	if !isFile(toolsJar) {
		return nil, fault.Newf(fault.KindToolsNotFound,
			"TLA+ tools jar not found: %s\n\nPlease ensure %s exists in the tools directory, or use --tools-dir to specify the correct location.",
			toolsJar, process.ToolsArchiveName).WithContext("toolsDir", abs)
	}
	cmodsJar := filepath.Join(abs, CommunityArchiveName)
	if !isFile(cmodsJar) {
		return nil, fault.Newf(fault.KindToolsNotFound,
			"Community modules jar not found: %s\n\nPlease ensure %s exists in the tools directory, or use --tools-dir to specify the correct location.",
			cmodsJar, CommunityArchiveName).WithContext("toolsDir", abs)
	}

	return &Install{
		Dir:              abs,
		ToolsArchive:     toolsJar,
		CommunityArchive: cmodsJar,
		Libraries:        append([]string(nil), libraries...),
	}, nil
}

// ClassPath joins both archives with the OS path-list separator.
func (i *Install) ClassPath() string {
	return i.ToolsArchive + string(os.PathListSeparator) + i.CommunityArchive
}

// SearchPaths returns the module search paths: the two archive locations
// as URIs followed by the extra library directories.
func (i *Install) SearchPaths() []string {
	paths := []string{
		archive.NewURI(i.ToolsArchive, StandardModulesDir).String(),
		archive.NewURI(i.CommunityArchive, "").String(),
	}
	return append(paths, i.Libraries...)
}

// LibraryPaths joins the search paths that are plain directories. The
// archive paths are already on the classpath.
func (i *Install) LibraryPaths() string {
	var plain []string
	for _, p := range i.SearchPaths() {
		if !archive.IsURI(p) {
			plain = append(plain, p)
		}
	}
	return strings.Join(plain, string(os.PathListSeparator))
}

// LibraryOption returns the -DTLA-Library java option, or nil when there
// are no plain library directories.
func (i *Install) LibraryOption() []string {
	lib := i.LibraryPaths()
	if lib == "" {
		return nil
	}
	return []string{"-DTLA-Library=" + lib}
}

// ListModules lists the modules available on every search path.
//
// Description:
//
//	Archive paths are read through store; plain directories are read
//	from disk. Modules whose name starts with "_" are skipped. Search
//	paths without modules are left out of the result.
//
// Inputs:
//
//	fullURI - Render archive modules as URIs and directory modules as
//	          full paths instead of file names.
func ListModules(ctx context.Context, store *archive.Store, inst *Install, fullURI bool) ([]SearchPathModules, error) {
	var out []SearchPathModules
	for _, sp := range inst.SearchPaths() {
		var (
			mods []string
			err  error
		)
		if archive.IsURI(sp) {
			u, perr := archive.ParseURI(sp)
			if perr != nil {
				return nil, perr
			}
			mods, err = store.ListModules(ctx, u.Archive, u.Inner, fullURI)
		} else {
			mods, err = listDirModules(sp, fullURI)
		}
		if err != nil {
			return nil, fmt.Errorf("list modules in %s: %w", sp, err)
		}
		if len(mods) > 0 {
			out = append(out, SearchPathModules{SearchPath: sp, Modules: mods})
		}
	}
	return out, nil
}

func listDirModules(dir string, fullPath bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fault.Wrap(fault.Classify(err), err, "")
	}
	var mods []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".tla") || strings.HasPrefix(name, "_") {
			continue
		}
		if fullPath {
			mods = append(mods, filepath.Join(dir, name))
		} else {
			mods = append(mods, name)
		}
	}
	sort.Strings(mods)
	return mods, nil
}

// AutoDetect returns the first candidate directory containing
// tla2tools.jar.
func AutoDetect(candidates ...string) (string, bool) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if isFile(filepath.Join(c, process.ToolsArchiveName)) {
			return c, true
		}
	}
	return "", false
}

// DefaultCandidates returns the directories AutoDetect checks by default:
// "tools" next to the executable, one level above it, and in the working
// directory.
func DefaultCandidates() []string {
	var out []string
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		out = append(out, filepath.Join(dir, "tools"), filepath.Join(dir, "..", "tools"))
	}
	if wd, err := os.Getwd(); err == nil {
		out = append(out, filepath.Join(wd, "tools"))
	}
	return out
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
