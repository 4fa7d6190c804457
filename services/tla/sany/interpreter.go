// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sany

import (
	"bufio"
	"io"
	"regexp"
	"runtime"
	"strconv"
	"strings"
)

// =============================================================================
// TYPES
// =============================================================================

// Severity of a Diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is one located error or warning.
type Diagnostic struct {
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Column   int      `json:"column"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Result is the outcome of one check.
type Result struct {
	Success  bool         `json:"success"`
	Errors   []Diagnostic `json:"errors"`
	Warnings []Diagnostic `json:"warnings"`
}

type state int

const (
	stateNormal state = iota
	stateErrorBlock
	stateWarningBlock
)

// Output markers.
const (
	markerParsingFile  = "Parsing file "
	markerSemantic     = "Semantic processing of module "
	markerErrors       = "*** Errors:"
	markerParseError   = "***Parse Error***"
	markerFatal        = "Fatal errors while parsing TLA+ spec"
	markerWarnings     = "*** Warnings:"
	markerAbort        = "*** Abort messages:"
	markerStackTrace   = "Residual stack trace follows:"
	markerFinished     = "SANY finished."
	markerBlockComment = "***"
)

var (
	lexicalRe = regexp.MustCompile(`^\s*Lexical error at line (\d+), column (\d+)\.\s*(.*)$`)
	rangeRe   = regexp.MustCompile(`^\s*line (\d+), col (\d+) to line \d+, col \d+ of module \w+\s*$`)
	atLineRe  = regexp.MustCompile(`\bat line (\d+), col(?:umn)? (\d+)\s+.*$`)
)

type position struct {
	line, column int
}

// =============================================================================
// INTERPRETER
// =============================================================================

// Interpreter turns SANY output into diagnostics one line at a time.
//
// Description:
//
//	A line state machine with three states: normal, in an error block
//	and in a warning block. Block markers switch state; inside a block
//	location lines set a pending range and other lines accumulate into a
//	pending message. A message with a range is committed as soon as both
//	exist. "Residual stack trace follows:" returns to normal so JVM stack
//	frames never end up in messages. Lexical errors are committed
//	directly. Memory use is bounded by the largest single message.
//
//	File paths use "/" internally and are converted back to the host
//	convention when a diagnostic is committed.
//
// Thread Safety: Not safe for concurrent use.
type Interpreter struct {
	state    state
	file     string
	message  strings.Builder
	severity Severity
	pending  *position
	finished bool

	errors   []Diagnostic
	warnings []Diagnostic

	onDiagnostic func(Diagnostic)
	goos         string
}

// InterpreterOption configures an Interpreter.
type InterpreterOption func(*Interpreter)

// OnDiagnostic registers fn to receive each diagnostic as it is
// committed, before Finish. Paths passed to fn are already in host form.
func OnDiagnostic(fn func(Diagnostic)) InterpreterOption {
	return func(i *Interpreter) {
		i.onDiagnostic = fn
	}
}

// NewInterpreter creates an Interpreter in the normal state.
func NewInterpreter(opts ...InterpreterOption) *Interpreter {
	i := &Interpreter{goos: runtime.GOOS}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Done reports whether the terminal marker was seen. Feed ignores further
// lines after that.
func (i *Interpreter) Done() bool {
	return i.finished
}

// Feed consumes one line without its trailing newline.
func (i *Interpreter) Feed(line string) {
	if i.finished {
		return
	}

	switch {
	case strings.HasPrefix(line, markerParsingFile):
		i.file = strings.ReplaceAll(strings.TrimSpace(line[len(markerParsingFile):]), `\`, "/")
		return
	case strings.HasPrefix(line, markerSemantic):
		return
	case strings.HasPrefix(line, markerErrors):
		i.enter(stateErrorBlock)
		return
	case strings.HasPrefix(line, markerParseError), strings.HasPrefix(line, markerFatal):
		i.enter(stateErrorBlock)
		i.appendMessage(strings.TrimSpace(line))
		return
	case strings.HasPrefix(line, markerWarnings):
		i.enter(stateWarningBlock)
		return
	case strings.HasPrefix(line, markerAbort):
		i.enter(stateErrorBlock)
		return
	case strings.HasPrefix(line, markerStackTrace):
		i.state = stateNormal
		return
	case line == markerFinished:
		i.flush()
		i.finished = true
		return
	}

	if m := lexicalRe.FindStringSubmatch(line); m != nil && i.file != "" {
		i.commit(Diagnostic{
			File:     i.file,
			Line:     atoi(m[1]),
			Column:   atoi(m[2]),
			Message:  m[3],
			Severity: SeverityError,
		})
		return
	}

	if i.state != stateNormal {
		if m := rangeRe.FindStringSubmatch(line); m != nil {
			i.pending = &position{atoi(m[1]), atoi(m[2])}
			return
		}
		if m := atLineRe.FindStringSubmatch(line); m != nil {
			i.pending = &position{atoi(m[1]), atoi(m[2])}
		}

		if trimmed := strings.TrimSpace(line); trimmed != "" && !strings.HasPrefix(line, markerBlockComment) {
			i.appendMessage(trimmed)
		}

		if i.message.Len() > 0 && i.pending != nil && i.file != "" {
			i.commit(Diagnostic{
				File:     i.file,
				Line:     i.pending.line,
				Column:   i.pending.column,
				Message:  i.message.String(),
				Severity: i.blockSeverity(),
			})
			i.resetPending()
		}
	}
}

// Finish commits any pending message at line 1, column 1 and returns the
// result. The Interpreter must not be used afterwards.
func (i *Interpreter) Finish() Result {
	if !i.finished {
		i.flush()
		i.finished = true
	}
	errs := i.errors
	if errs == nil {
		errs = []Diagnostic{}
	}
	warns := i.warnings
	if warns == nil {
		warns = []Diagnostic{}
	}
	return Result{
		Success:  len(errs) == 0,
		Errors:   errs,
		Warnings: warns,
	}
}

// Interpret runs r through a fresh Interpreter.
func Interpret(r io.Reader, opts ...InterpreterOption) (Result, error) {
	i := NewInterpreter(opts...)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		i.Feed(strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return Result{}, err
	}
	return i.Finish(), nil
}

func (i *Interpreter) enter(s state) {
	i.state = s
	i.resetPending()
}

func (i *Interpreter) appendMessage(text string) {
	if i.message.Len() == 0 {
		i.severity = i.blockSeverity()
	} else {
		i.message.WriteByte('\n')
	}
	i.message.WriteString(text)
}

func (i *Interpreter) blockSeverity() Severity {
	if i.state == stateWarningBlock {
		return SeverityWarning
	}
	return SeverityError
}

func (i *Interpreter) resetPending() {
	i.message.Reset()
	i.pending = nil
}

// flush commits a message that never received a location.
func (i *Interpreter) flush() {
	if i.message.Len() == 0 {
		return
	}
	i.commit(Diagnostic{
		File:     i.file,
		Line:     1,
		Column:   1,
		Message:  i.message.String(),
		Severity: i.severity,
	})
	i.resetPending()
}

func (i *Interpreter) commit(d Diagnostic) {
	if i.goos == "windows" {
		d.File = strings.ReplaceAll(d.File, "/", `\`)
	}
	if d.Severity == SeverityWarning {
		i.warnings = append(i.warnings, d)
	} else {
		i.errors = append(i.errors, d)
	}
	if i.onDiagnostic != nil {
		i.onDiagnostic(d)
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
