// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.level.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{" error ", LevelError, false},
		{"trace", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelWarn, Output: &buf})

	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_JSONWithService(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{JSON: true, Service: "tlaplus", Output: &buf})
	l.With("file", "Spec.tla").Info("checked", "errors", 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "tlaplus", rec["service"])
	assert.Equal(t, "Spec.tla", rec["file"])
	assert.Equal(t, float64(2), rec["errors"])
	assert.Equal(t, "checked", rec["msg"])
}

func TestNew_FileLogging(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var buf bytes.Buffer
	l := New(Config{LogDir: dir, Service: "svc", Output: &buf})

	l.Slog().Info("to both")
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "svc_"))

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to both"`)
	assert.Contains(t, buf.String(), "to both")
}

func TestNew_Quiet(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Quiet: true, Output: &buf})
	l.Error("nowhere")
	assert.Empty(t, buf.String())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".tlaplus"), expandPath("~/.tlaplus"))
	assert.Equal(t, "/var/log", expandPath("/var/log"))
}
