// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoszzt/vscode-tlaplus/services/tla/fault"
)

func TestResolve(t *testing.T) {
	work := t.TempDir()
	other := t.TempDir()

	tests := []struct {
		name    string
		path    string
		workDir string
		want    string
		wantErr bool
	}{
		{"relative in workdir", "specs/A.tla", work, filepath.Join(work, "specs", "A.tla"), false},
		{"absolute in workdir", filepath.Join(work, "A.tla"), work, filepath.Join(work, "A.tla"), false},
		{"workdir itself", work, work, work, false},
		{"dot segments stay inside", "specs/../A.tla", work, filepath.Join(work, "A.tla"), false},
		{"escape with dots", "../A.tla", work, "", true},
		{"absolute outside", filepath.Join(other, "A.tla"), work, "", true},
		{"absolute without workdir", filepath.Join(other, "A.tla"), "", filepath.Join(other, "A.tla"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.path, tt.workDir)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, fault.KindPathTraversal, fault.Classify(err))
				assert.Contains(t, err.Error(), "is outside the working directory")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_RelativeWithoutWorkDir(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	got, err := Resolve("A.tla", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "A.tla"), got)
}

func TestResolveFile(t *testing.T) {
	work := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(work, "A.tla"), nil, 0o644))

	got, err := ResolveFile("A.tla", work)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(work, "A.tla"), got)

	_, err = ResolveFile("B.tla", work)
	require.Error(t, err)
	assert.Equal(t, fault.KindFileNotFound, fault.Classify(err))
	assert.Equal(t, "File "+filepath.Join(work, "B.tla")+" does not exist on disk.", err.Error())
}

func TestValidateDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	assert.NoError(t, ValidateDir(dir, "Tools"))

	err := ValidateDir(filepath.Join(dir, "missing"), "Tools")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Tools directory not found")
	assert.Equal(t, fault.KindInvalidConfigPath, fault.Classify(err))

	err = ValidateDir(file, "Knowledge base")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Knowledge base path exists but is not a directory")
}
