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
	"strings"

	"github.com/photoszzt/vscode-tlaplus/services/tla/fault"
)

// Scheme prefixes every archive URI.
const Scheme = "jarfile:"

// URI addresses a path inside an archive.
type URI struct {
	// Archive is the archive file path, as written in the URI.
	Archive string `json:"archive"`

	// Inner is the slash separated path inside the archive, without a
	// leading slash. Empty means the archive root.
	Inner string `json:"inner"`
}

// NewURI builds a URI, dropping one leading slash from inner.
func NewURI(archive, inner string) URI {
	return URI{Archive: archive, Inner: strings.TrimPrefix(inner, "/")}
}

// IsURI reports whether s uses the archive scheme.
func IsURI(s string) bool {
	return strings.HasPrefix(s, Scheme)
}

// ParseURI splits an archive URI into its parts.
//
// Errors:
//
//	fault.KindInvalidURI - missing scheme, missing "!" or empty archive.
func ParseURI(s string) (URI, error) {
	if !IsURI(s) {
		return URI{}, fault.Newf(fault.KindInvalidURI,
			"Invalid jarfile URI: must start with '%s' - got: %s", Scheme, s)
	}
	rest := s[len(Scheme):]
	sep := strings.IndexByte(rest, '!')
	if sep < 0 {
		return URI{}, fault.Newf(fault.KindInvalidURI,
			"Invalid jarfile URI: missing '!' separator - got: %s", s)
	}
	if sep == 0 {
		return URI{}, fault.Newf(fault.KindInvalidURI,
			"Invalid jarfile URI: empty jar path - got: %s", s)
	}
	return NewURI(rest[:sep], rest[sep+1:]), nil
}

// String renders the canonical form jarfile:<archive>!/<inner>.
func (u URI) String() string {
	return Scheme + u.Archive + "!/" + u.Inner
}
