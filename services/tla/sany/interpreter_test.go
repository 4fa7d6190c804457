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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func interpret(t *testing.T, text string) Result {
	t.Helper()
	res, err := Interpret(strings.NewReader(text))
	require.NoError(t, err)
	return res
}

func TestInterpret_LexicalError(t *testing.T) {
	res := interpret(t, "Parsing file /x/M.tla\n  Lexical error at line 5, column 3. Unexpected token\nSANY finished.\n")

	assert.False(t, res.Success)
	assert.Equal(t, []Diagnostic{{
		File: "/x/M.tla", Line: 5, Column: 3, Message: "Unexpected token", Severity: SeverityError,
	}}, res.Errors)
	assert.Empty(t, res.Warnings)
}

func TestInterpret_EmptyInput(t *testing.T) {
	res := interpret(t, "")
	assert.True(t, res.Success)
	assert.NotNil(t, res.Errors)
	assert.Empty(t, res.Errors)
	assert.NotNil(t, res.Warnings)
	assert.Empty(t, res.Warnings)
}

func TestInterpret_CleanRun(t *testing.T) {
	res := interpret(t, strings.Join([]string{
		"****** SANY2 Version 2.2 created 2023",
		"Parsing file /specs/Clock.tla",
		"Parsing file /tools/StandardModules/Naturals.tla",
		"Semantic processing of module Naturals",
		"Semantic processing of module Clock",
		"SANY finished.",
	}, "\n"))
	assert.True(t, res.Success)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
}

func TestInterpret_SemanticError(t *testing.T) {
	res := interpret(t, strings.Join([]string{
		"Parsing file /specs/Spec.tla",
		"Semantic processing of module Spec",
		"Semantic errors:",
		"",
		"*** Errors: 1",
		"",
		"line 5, col 8 to line 5, col 8 of module Spec",
		"",
		"Unknown operator: `x'.",
		"",
		"",
		"SANY finished.",
	}, "\n"))

	require.Len(t, res.Errors, 1)
	assert.Equal(t, Diagnostic{
		File: "/specs/Spec.tla", Line: 5, Column: 8, Message: "Unknown operator: `x'.", Severity: SeverityError,
	}, res.Errors[0])
	assert.False(t, res.Success)
}

func TestInterpret_ParseError(t *testing.T) {
	res := interpret(t, strings.Join([]string{
		"Parsing file /specs/Spec.tla",
		"***Parse Error***",
		`Encountered "Beginning of definition" at line 7, column 1 and token "Next"`,
		"",
		"Fatal errors while parsing TLA+ spec in file Spec",
		"",
		"SANY finished.",
	}, "\n"))

	require.Len(t, res.Errors, 2)
	assert.Equal(t, 7, res.Errors[0].Line)
	assert.Equal(t, 1, res.Errors[0].Column)
	assert.Equal(t, "***Parse Error***\nEncountered \"Beginning of definition\" at line 7, column 1 and token \"Next\"", res.Errors[0].Message)

	// The fatal marker starts a message that never gets a location.
	assert.Equal(t, 1, res.Errors[1].Line)
	assert.Equal(t, 1, res.Errors[1].Column)
	assert.Equal(t, "Fatal errors while parsing TLA+ spec in file Spec", res.Errors[1].Message)
}

func TestInterpret_Warnings(t *testing.T) {
	res := interpret(t, strings.Join([]string{
		"Parsing file /specs/Spec.tla",
		"*** Warnings: 1",
		"",
		"line 3, col 1 to line 3, col 10 of module Spec",
		"",
		"Multiply-defined symbol 'x': this definition will be ignored.",
		"SANY finished.",
	}, "\n"))

	assert.True(t, res.Success)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, SeverityWarning, res.Warnings[0].Severity)
	assert.Equal(t, 3, res.Warnings[0].Line)
}

func TestInterpret_MultiLineMessage(t *testing.T) {
	res := interpret(t, strings.Join([]string{
		"Parsing file /specs/Spec.tla",
		"*** Errors: 1",
		"Operator used with the wrong number of arguments",
		"  expected 2, found 1",
		"line 9, col 4 to line 9, col 12 of module Spec",
		"",
	}, "\n"))

	// A range line only records the location; the commit happens on the
	// following line.
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 9, res.Errors[0].Line)
	assert.Equal(t, 4, res.Errors[0].Column)
	assert.Equal(t, "Operator used with the wrong number of arguments\nexpected 2, found 1", res.Errors[0].Message)
}

func TestInterpret_ResidualStackTrace(t *testing.T) {
	res := interpret(t, strings.Join([]string{
		"Parsing file /specs/Spec.tla",
		"*** Abort messages: 1",
		"",
		"In evaluating : Next",
		"Residual stack trace follows:",
		"java.lang.NullPointerException",
		"\tat tla2sany.semantic.Generator.generate(Generator.java:12) at line 4, col 2 foo",
		"SANY finished.",
	}, "\n"))

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "In evaluating : Next", res.Errors[0].Message)
	assert.Equal(t, 1, res.Errors[0].Line)
	assert.NotContains(t, res.Errors[0].Message, "java.lang")
}

func TestInterpret_PendingAtEndOfStream(t *testing.T) {
	res := interpret(t, "Parsing file /specs/Spec.tla\n*** Warnings: 1\nSomething odd happened\n")

	assert.True(t, res.Success)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, Diagnostic{
		File: "/specs/Spec.tla", Line: 1, Column: 1, Message: "Something odd happened", Severity: SeverityWarning,
	}, res.Warnings[0])
}

func TestInterpret_LexicalNeedsFile(t *testing.T) {
	res := interpret(t, "Lexical error at line 1, column 1. Oops\n")
	assert.True(t, res.Success)
}

func TestInterpret_IgnoresLinesAfterFinish(t *testing.T) {
	res := interpret(t, "Parsing file /a/B.tla\nSANY finished.\n  Lexical error at line 2, column 2. late\n")
	assert.True(t, res.Success)
}

func TestInterpret_BackslashPaths(t *testing.T) {
	text := "Parsing file C:\\specs\\M.tla\n  Lexical error at line 1, column 2. bad\n"

	t.Run("unix", func(t *testing.T) {
		i := NewInterpreter()
		i.goos = "linux"
		for _, l := range strings.Split(text, "\n") {
			i.Feed(l)
		}
		res := i.Finish()
		require.Len(t, res.Errors, 1)
		assert.Equal(t, "C:/specs/M.tla", res.Errors[0].File)
	})

	t.Run("windows", func(t *testing.T) {
		i := NewInterpreter()
		i.goos = "windows"
		for _, l := range strings.Split(text, "\n") {
			i.Feed(l)
		}
		res := i.Finish()
		require.Len(t, res.Errors, 1)
		assert.Equal(t, `C:\specs\M.tla`, res.Errors[0].File)
	})
}

func TestInterpret_OnDiagnostic(t *testing.T) {
	var got []Diagnostic
	_, err := Interpret(strings.NewReader(strings.Join([]string{
		"Parsing file /s/A.tla",
		"Lexical error at line 1, column 1. one",
		"*** Warnings:",
		"line 2, col 2 to line 2, col 3 of module A",
		"two",
		"SANY finished.",
	}, "\n")), OnDiagnostic(func(d Diagnostic) { got = append(got, d) }))
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, SeverityError, got[0].Severity)
	assert.Equal(t, SeverityWarning, got[1].Severity)
}

func TestInterpret_Done(t *testing.T) {
	i := NewInterpreter()
	assert.False(t, i.Done())
	i.Feed("SANY finished.")
	assert.True(t, i.Done())
}

func TestFormatText(t *testing.T) {
	assert.Equal(t, "No errors found in the TLA+ specification /s/A.tla.",
		FormatText("/s/A.tla", &Result{Success: true}))

	got := FormatText("/s/A.tla", &Result{Errors: []Diagnostic{
		{File: "/s/A.tla", Line: 3, Message: "boom"},
		{File: "/s/B.tla", Line: 1, Message: "bang"},
	}})
	assert.Equal(t, "Parsing of file /s/A.tla failed at line 3 with error: 'boom'\nParsing of file /s/B.tla failed at line 1 with error: 'bang'", got)
}
