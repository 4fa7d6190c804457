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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoszzt/vscode-tlaplus/services/tla/fault"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want URI
	}{
		{"inner path", "jarfile:/path/to/archive.jar!/inner/path/Module.tla", URI{"/path/to/archive.jar", "inner/path/Module.tla"}},
		{"root with slash", "jarfile:/path/to/archive.jar!/", URI{"/path/to/archive.jar", ""}},
		{"root without slash", "jarfile:/path/to/archive.jar!", URI{"/path/to/archive.jar", ""}},
		{"windows archive", "jarfile:C:/Users/test/tools/archive.jar!/StandardModules/Naturals.tla", URI{"C:/Users/test/tools/archive.jar", "StandardModules/Naturals.tla"}},
		{"only one slash stripped", "jarfile:/a.jar!//etc/passwd", URI{"/a.jar", "/etc/passwd"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseURI(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseURI_Invalid(t *testing.T) {
	for _, in := range []string{
		"/path/to/archive.jar!/inner",
		"jarfile:/path/to/archive.jar",
		"jarfile:!/inner/path",
		"jarfile:",
		"",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseURI(in)
			require.Error(t, err)
			assert.Equal(t, fault.KindInvalidURI, fault.Classify(err))
			assert.Contains(t, err.Error(), "Invalid jarfile URI")
		})
	}
}

func TestURI_RoundTrip(t *testing.T) {
	for _, in := range []string{
		"jarfile:/tools/tla2tools.jar!/tla2sany/StandardModules/Naturals.tla",
		"jarfile:/tools/CommunityModules-deps.jar!/",
		"jarfile:C:/tools/tla2tools.jar!/tla2sany/StandardModules/TLC.tla",
	} {
		u, err := ParseURI(in)
		require.NoError(t, err)
		assert.Equal(t, in, u.String())

		again, err := ParseURI(u.String())
		require.NoError(t, err)
		assert.Equal(t, u, again)
	}
}

func TestURI_BareSeparatorNormalizes(t *testing.T) {
	u, err := ParseURI("jarfile:/t.jar!")
	require.NoError(t, err)
	assert.Equal(t, "jarfile:/t.jar!/", u.String())
}

func TestIsURI(t *testing.T) {
	assert.True(t, IsURI("jarfile:/a.jar!/"))
	assert.False(t, IsURI("/a/b/Spec.tla"))
	assert.False(t, IsURI("file:/a.jar"))
}

func TestCheckInner(t *testing.T) {
	tests := []struct {
		inner string
		ok    bool
	}{
		{"", true},
		{"tla2sany/StandardModules", true},
		{"tla2sany/StandardModules/Naturals.tla", true},
		{"a/..b/c", true},
		{"..", false},
		{"../etc", false},
		{"a/../b", false},
		{`a\..\b`, false},
		{"/etc/passwd", false},
		{`C:\Windows`, false},
		{"c:/x", false},
	}
	for _, tt := range tests {
		t.Run(tt.inner, func(t *testing.T) {
			err := checkInner(tt.inner)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, fault.KindPathTraversal, fault.Classify(err))
		})
	}
}
