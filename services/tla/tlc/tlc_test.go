// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tlc

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoszzt/vscode-tlaplus/services/tla/fault"
	"github.com/photoszzt/vscode-tlaplus/services/tla/tools"
)

func touch(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}
}

func TestCleanLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", "", true},
		{"@!@!@STARTMSG 2262:0 @!@!@", "", false},
		{"@!@!@ENDMSG 2262 @!@!@", "", false},
		{"@!@!@STARTMSG 2185:0 @!@!@Starting...", "Starting...", true},
		{"Model checking completed. No error has been found.", "Model checking completed. No error has been found.", true},
		{"a@!@!@ENDMSG 1 @!@!@b@!@!@STARTMSG 2:1 @!@!@c", "abc", true},
		{"@!@!@STARTMSG x @!@!@", "@!@!@STARTMSG x @!@!@", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := CleanLine(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModeOptions(t *testing.T) {
	tests := []struct {
		mode     Mode
		depth    int
		wantTLC  []string
		wantJava []string
	}{
		{ModeCheck, 0, []string{"-cleanup", "-modelcheck"}, nil},
		{ModeSmoke, 0, []string{"-cleanup", "-simulate"}, []string{"-Dtlc2.TLC.stopAfter=3"}},
		{ModeExplore, 7, []string{"-cleanup", "-simulate", "-invlevel", "7"}, []string{"-Dtlc2.TLC.stopAfter=3"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			tlcOpts, javaOpts, err := tt.mode.Options(tt.depth)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTLC, tlcOpts)
			assert.Equal(t, tt.wantJava, javaOpts)
		})
	}

	_, _, err := ModeExplore.Options(0)
	assert.True(t, errors.Is(err, ErrInvalidMode))
	_, _, err = Mode("fuzz").Options(1)
	assert.True(t, errors.Is(err, ErrInvalidMode))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("smoke")
	require.NoError(t, err)
	assert.Equal(t, ModeSmoke, m)

	_, err = ParseMode("SMOKE")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestFindSpecFiles(t *testing.T) {
	t.Run("plain cfg", func(t *testing.T) {
		dir := t.TempDir()
		tla := filepath.Join(dir, "Spec.tla")
		touch(t, tla, filepath.Join(dir, "Spec.cfg"), filepath.Join(dir, "MCSpec.tla"), filepath.Join(dir, "MCSpec.cfg"))

		got, err := FindSpecFiles(tla)
		require.NoError(t, err)
		assert.Equal(t, &SpecFiles{TLAFile: tla, CfgFile: filepath.Join(dir, "Spec.cfg")}, got)
	})

	t.Run("MC pair", func(t *testing.T) {
		dir := t.TempDir()
		tla := filepath.Join(dir, "Spec.tla")
		touch(t, tla, filepath.Join(dir, "MCSpec.tla"), filepath.Join(dir, "MCSpec.cfg"))

		got, err := FindSpecFiles(tla)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "MCSpec.tla"), got.TLAFile)
		assert.Equal(t, filepath.Join(dir, "MCSpec.cfg"), got.CfgFile)
	})

	t.Run("MC tla without cfg", func(t *testing.T) {
		dir := t.TempDir()
		tla := filepath.Join(dir, "Spec.tla")
		touch(t, tla, filepath.Join(dir, "MCSpec.tla"))

		_, err := FindSpecFiles(tla)
		require.Error(t, err)
		assert.Equal(t, fault.KindFileNotFound, fault.Classify(err))
		assert.Equal(t,
			"No Spec.cfg or MCSpec.tla/MCSpec.cfg files found for "+tla+". Please create an MCSpec.tla and MCSpec.cfg file according to the provided TLC guidelines.",
			err.Error())
	})
}

func TestPlan(t *testing.T) {
	dir := t.TempDir()
	tla := filepath.Join(dir, "Spec.tla")
	other := filepath.Join(t.TempDir(), "Other.cfg")
	touch(t, tla, filepath.Join(dir, "Spec.cfg"), other)

	inst := &tools.Install{
		ToolsArchive:     "/t/tla2tools.jar",
		CommunityArchive: "/t/CommunityModules-deps.jar",
		Libraries:        []string{"/lib"},
	}
	r := NewRunner(nil, inst)

	spec, files, err := r.Plan(Request{
		File:        tla,
		Mode:        ModeExplore,
		Depth:       4,
		CfgFile:     other,
		Options:     []string{"-workers", "2"},
		JavaOptions: []string{"-Xmx1g"},
		JavaHome:    "/jdk",
	})
	require.NoError(t, err)
	assert.Equal(t, other, files.CfgFile)
	assert.Equal(t, MainClass, spec.MainClass)
	assert.Equal(t, []string{"Spec.tla", "-tool", "-modelcheck", "-config", other,
		"-cleanup", "-simulate", "-invlevel", "4", "-workers", "2"}, spec.Args)
	assert.Equal(t, []string{"-Dtlc2.TLC.stopAfter=3", "-Xmx1g", "-DTLA-Library=/lib"}, spec.JavaOptions)
	assert.Equal(t, dir, spec.WorkDir)
	assert.Equal(t, "/jdk", spec.JavaHome)

	t.Run("missing cfg override falls back", func(t *testing.T) {
		_, files, err := r.Plan(Request{File: tla, CfgFile: filepath.Join(dir, "nope.cfg")})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "Spec.cfg"), files.CfgFile)
	})

	t.Run("cfg override next to the spec stays relative", func(t *testing.T) {
		alt := filepath.Join(dir, "Alt.cfg")
		touch(t, alt)
		spec, files, err := r.Plan(Request{File: tla, CfgFile: alt})
		require.NoError(t, err)
		assert.Equal(t, alt, files.CfgFile)
		assert.Equal(t, "Alt.cfg", spec.Args[4])
	})

	t.Run("default mode is check", func(t *testing.T) {
		spec, _, err := r.Plan(Request{File: tla})
		require.NoError(t, err)
		assert.Equal(t, []string{"Spec.tla", "-tool", "-modelcheck", "-config", "Spec.cfg", "-cleanup", "-modelcheck"}, spec.Args)
	})
}

func TestResultText(t *testing.T) {
	r := &Result{Mode: ModeSmoke, ExitCode: 12, Output: []string{"a", "", "b"}}
	assert.Equal(t, "Smoke test completed with exit code 12.\n\nOutput:\na\n\nb", r.Text())

	r.Mode = ModeCheck
	assert.Contains(t, r.Text(), "Model check completed")
	r.Mode = ModeExplore
	assert.Contains(t, r.Text(), "Behavior exploration completed")
}
