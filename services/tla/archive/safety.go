// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package archive

import (
	"path/filepath"
	"strings"

	"github.com/photoszzt/vscode-tlaplus/services/tla/fault"
)

// checkInner rejects inner paths that could escape the extraction root.
// The path is never normalized first: "a/../b" is refused even though it
// would stay inside.
func checkInner(inner string) error {
	p := strings.ReplaceAll(inner, `\`, "/")
	if isAbsInner(p) {
		return fault.Newf(fault.KindPathTraversal,
			"Path traversal detected: absolute inner path %q is not allowed", inner).
			WithContext("innerPath", inner)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return fault.Newf(fault.KindPathTraversal,
				"Path traversal detected: inner path %q contains '..'", inner).
				WithContext("innerPath", inner)
		}
	}
	return nil
}

func isAbsInner(p string) bool {
	if strings.HasPrefix(p, "/") || filepath.IsAbs(p) {
		return true
	}
	// Drive letters are absolute regardless of the host OS.
	return len(p) >= 2 && p[1] == ':' &&
		(p[0] >= 'a' && p[0] <= 'z' || p[0] >= 'A' && p[0] <= 'Z')
}

// ensureWithin fails when target is not strictly inside root.
func ensureWithin(root, target string) error {
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || rel == ".." ||
		strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fault.Newf(fault.KindPathTraversal,
			"Path traversal detected: %q is outside the cache root %q", target, root)
	}
	return nil
}
