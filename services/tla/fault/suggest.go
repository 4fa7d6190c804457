// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fault

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

var suggestions = map[Kind][]string{
	KindJavaNotFound: {
		"Install Java 17 or later",
		"Set JAVA_HOME environment variable",
		"Use --java-home to specify Java location",
	},
	KindJavaSpawnFailed: {
		"Verify the Java executable is runnable",
		"Check system resource limits (processes, memory)",
	},
	KindProcessSpawn: {
		"Verify the Java executable is runnable",
		"Check system resource limits (processes, memory)",
	},
	KindProcessTimeout: {
		"Increase the process timeout",
		"Reduce the model size or use smoke testing",
	},
	KindJavaTimeout: {
		"Increase the process timeout",
	},
	KindToolsNotFound: {
		"Use --tools-dir to specify TLA+ tools location",
		"Ensure tla2tools.jar exists in tools directory",
	},
	KindFileNotFound: {
		"Verify the file path is correct",
		"Check file permissions",
	},
	KindPathTraversal: {
		"Use a path inside the configured working directory",
	},
	KindArchiveLocked: {
		"Close other programs using the JAR file",
		"Check for antivirus software locking files",
	},
	KindEntryNotFound: {
		"Verify the jarfile URI is correct",
		"Check that the JAR file contains the expected module",
	},
	KindExtractionFailed: {
		"Check available disk space",
		"Verify write permissions to temp directory",
	},
	KindArchiveCorrupted: {
		"Re-download the TLA+ tools archive",
	},
	KindMalformedXML: {
		"Run the syntax check first; the XML exporter fails on invalid modules",
	},
}

var defaultSuggestion = []string{"Check error message for details"}

// Suggestions returns remediation hints for kind k.
func Suggestions(k Kind) []string {
	if s, ok := suggestions[k]; ok {
		return slices.Clone(s)
	}
	return slices.Clone(defaultSuggestion)
}

// Format renders err for humans:
//
//	Error [KIND]: message
//
//	Suggested Actions:
//	- ...
//
// When verbose is set the error context is appended.
func Format(err error, verbose bool) string {
	if err == nil {
		return ""
	}
	fe := Enhance(err, nil)

	var b strings.Builder
	fmt.Fprintf(&b, "Error [%s]: %s\n\nSuggested Actions:\n", fe.Kind, fe.Error())
	for _, s := range Suggestions(fe.Kind) {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	if fe.RetriesExhausted {
		fmt.Fprintf(&b, "\nFailed after %d retry attempts.\n", fe.Attempt)
	}
	if verbose && len(fe.Context) > 0 {
		b.WriteString("\nContext:\n")
		keys := make([]string, 0, len(fe.Context))
		for k := range fe.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %v\n", k, fe.Context[k])
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
