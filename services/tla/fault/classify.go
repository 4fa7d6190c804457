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
	"context"
	"errors"
	"io/fs"
	"strings"
	"syscall"
)

// messageRule maps a lower-cased message substring to a kind.
type messageRule struct {
	substr string
	kind   Kind
}

// messageRules are checked in order; the first match wins.
var messageRules = []messageRule{
	{"java executable not found", KindJavaNotFound},
	{"failed to launch java process", KindJavaSpawnFailed},
	{"path traversal", KindPathTraversal},
	{"outside the working directory", KindPathTraversal},
	{"invalid jarfile uri", KindInvalidURI},
	{"not found in jar", KindEntryNotFound},
}

// Classify maps an arbitrary error to exactly one Kind.
//
// # Description
//
// An *Error already in the chain wins. Otherwise OS error codes are
// consulted, then context deadlines, then known message substrings.
// Anything unrecognised is KindIOError.
//
// # Inputs
//
//   - err: Any error. nil classifies as KindIOError.
//
// # Outputs
//
//   - Kind: Never empty.
func Classify(err error) Kind {
	if err == nil {
		return KindIOError
	}

	var fe *Error
	if errors.As(err, &fe) && fe.Kind != "" {
		return fe.Kind
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return KindFileNotFound
	case errors.Is(err, fs.ErrPermission):
		return KindAccessDenied
	case errors.Is(err, syscall.EBUSY):
		return KindFileBusy
	case errors.Is(err, context.DeadlineExceeded):
		return KindProcessTimeout
	}

	msg := strings.ToLower(err.Error())
	for _, r := range messageRules {
		if strings.Contains(msg, r.substr) {
			return r.kind
		}
	}
	return KindIOError
}
