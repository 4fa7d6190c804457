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
	"errors"
	"fmt"
	"maps"
	"time"
)

// Error is a classified adapter failure.
//
// # Description
//
// Error wraps the raw cause with its taxonomy kind and retry metadata.
// Values are never mutated after construction; the retry loop derives
// new values through withAttempt.
//
// # Thread Safety
//
// Immutable, safe to share.
type Error struct {
	// Kind is the taxonomy code.
	Kind Kind

	// Message is the human readable description.
	Message string

	// Attempt is the number of attempts made before the error surfaced.
	// Zero when the error did not pass through a retry loop.
	Attempt int

	// RetriesExhausted is true when the kind was retryable but the
	// attempt budget ran out.
	RetriesExhausted bool

	// Context holds small diagnostic values (paths, main class, ...).
	Context map[string]any

	// Timestamp is when the error was constructed.
	Timestamp time.Time

	// Err is the underlying cause, if any.
	Err error
}

// New creates an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Timestamp: time.Now()}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap creates an Error of the given kind around cause.
//
// When msg is empty the cause's message is used.
func Wrap(kind Kind, cause error, msg string) *Error {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: kind, Message: msg, Err: cause, Timestamp: time.Now()}
}

// Enhance returns err as an *Error, classifying it when it is not one yet.
//
// Context values are merged into a copy; the original error is untouched.
func Enhance(err error, ctx map[string]any) *Error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		if len(ctx) == 0 {
			return fe
		}
		cp := *fe
		cp.Context = mergeContext(fe.Context, ctx)
		return &cp
	}
	e := Wrap(Classify(err), err, "")
	e.Context = mergeContext(nil, ctx)
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same kind, so sentinel-style
// comparisons such as errors.Is(err, fault.New(fault.KindFileNotFound, ""))
// work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable reports whether the error's kind is transient.
func (e *Error) Retryable() bool {
	return IsRetryable(e.Kind)
}

// WithContext returns a copy of e with key set in its context.
func (e *Error) WithContext(key string, value any) *Error {
	cp := *e
	cp.Context = mergeContext(e.Context, map[string]any{key: value})
	return &cp
}

func (e *Error) withAttempt(attempt int, exhausted bool) *Error {
	cp := *e
	cp.Attempt = attempt
	cp.RetriesExhausted = exhausted
	return &cp
}

// KindOf returns the kind of err, classifying it when needed.
func KindOf(err error) Kind {
	return Classify(err)
}

func mergeContext(base, extra map[string]any) map[string]any {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	out := make(map[string]any, len(base)+len(extra))
	maps.Copy(out, base)
	maps.Copy(out, extra)
	return out
}
