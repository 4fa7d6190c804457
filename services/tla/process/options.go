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
	"os"
	"slices"
	"strings"
)

const (
	// DefaultGCOption is appended unless the caller picked a collector.
	DefaultGCOption = "-XX:+UseParallelGC"

	// ToolsArchiveName is the archive whose presence on a caller
	// classpath suppresses the default classpath.
	ToolsArchiveName = "tla2tools.jar"
)

// BuildOptions merges caller JVM options with the defaults.
//
// Description:
//
//	Returns a new slice; customOptions is not modified. The default
//	classpath is appended to (or added as) the -cp/-classpath value unless
//	the caller's classpath already contains tla2tools.jar. The default GC
//	flag is added when no -XX:+Use...GC option is present.
//
// Inputs:
//
//	customOptions - Caller options in order. May be nil.
//	defaultClassPath - Path-list separated classpath of the tool archives.
//
// Outputs:
//
//	[]string - The merged option vector.
func BuildOptions(customOptions []string, defaultClassPath string) []string {
	opts := slices.Clone(customOptions)
	opts = mergeClassPath(opts, defaultClassPath, string(os.PathListSeparator))
	return mergeGC(opts, DefaultGCOption)
}

func mergeGC(opts []string, defaultGC string) []string {
	for _, o := range opts {
		if strings.HasPrefix(o, "-XX:+Use") && strings.HasSuffix(o, "GC") {
			return opts
		}
	}
	return append(opts, defaultGC)
}

func mergeClassPath(opts []string, defaultClassPath, sep string) []string {
	cpIdx := -1
	for i, o := range opts {
		if o == "-cp" || o == "-classpath" {
			cpIdx = i + 1
			break
		}
	}
	if cpIdx < 0 || cpIdx >= len(opts) {
		return append(opts, "-cp", defaultClassPath)
	}

	cp := opts[cpIdx]
	if containsToolsArchive(cp, sep) {
		return opts
	}
	if cp != "" {
		cp += sep
	}
	opts[cpIdx] = cp + defaultClassPath
	return opts
}

// containsToolsArchive reports whether any classpath element names
// tla2tools.jar, with either separator convention.
func containsToolsArchive(classPath, sep string) bool {
	for _, p := range strings.Split(classPath, sep) {
		if p == ToolsArchiveName ||
			strings.HasSuffix(p, "/"+ToolsArchiveName) ||
			strings.HasSuffix(p, `\`+ToolsArchiveName) {
			return true
		}
	}
	return false
}
