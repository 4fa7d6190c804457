// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoszzt/vscode-tlaplus/services/tla/config"
	"github.com/photoszzt/vscode-tlaplus/services/tla/server"
)

type cliEnv struct {
	kbDir    string
	cacheDir string
	workDir  string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	for _, k := range []string{config.EnvConfig, config.EnvToolsDir, config.EnvJavaHome,
		config.EnvWorkingDir, config.EnvKBDir, config.EnvCacheDir} {
		t.Setenv(k, "")
	}
	env := cliEnv{kbDir: t.TempDir(), cacheDir: t.TempDir(), workDir: t.TempDir()}
	article := "---\ntitle: TLA+ Basics\ndescription: First steps\n---\n\n# Basics\nVARIABLES x\n"
	require.NoError(t, os.WriteFile(filepath.Join(env.kbDir, "basics.md"), []byte(article), 0o644))
	return env
}

func (e cliEnv) run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	base := []string{"--kb-dir", e.kbDir, "--cache-dir", e.cacheDir, "--working-dir", e.workDir}
	code := run(context.Background(), append(args, base...), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestCLI_KnowledgeBase(t *testing.T) {
	env := newCLIEnv(t)

	code, out, _ := env.run(t, "kb", "list")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "basics.md\tTLA+ Basics\n", out)

	code, out, _ = env.run(t, "kb", "show", "basics.md")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "# Basics\nVARIABLES x\n", out)

	code, out, _ = env.run(t, "kb", "list", "--json")
	require.Equal(t, exitOK, code)
	var list server.ArticlesResponse
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list.Articles, 1)
	assert.Equal(t, "tlaplus://knowledge/basics.md", list.Articles[0].URI)
	assert.Equal(t, "First steps", list.Articles[0].Description)

	code, _, errOut := env.run(t, "kb", "show", "missing.md")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, errOut, "FILE_NOT_FOUND")
}

func TestCLI_CacheClear(t *testing.T) {
	env := newCLIEnv(t)

	code, out, _ := env.run(t, "cache", "clear")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "OK: Cache cleared\n", out)
}

func TestCLI_ToolsMissing(t *testing.T) {
	env := newCLIEnv(t)
	empty := t.TempDir()

	tests := [][]string{
		{"check", "Spec.tla"},
		{"symbols", "Spec.tla"},
		{"modules"},
		{"tlc", "check", "Spec.tla"},
	}
	for _, args := range tests {
		code, _, errOut := env.run(t, append(args, "--tools-dir", empty)...)
		assert.Equal(t, exitFailure, code, args)
		assert.Contains(t, errOut, "CONFIG_TOOLS_NOT_FOUND", args)
		assert.Contains(t, errOut, "Suggested Actions", args)
	}
}

func TestCLI_JSONError(t *testing.T) {
	env := newCLIEnv(t)

	code, out, _ := env.run(t, "check", "Spec.tla", "--tools-dir", t.TempDir(), "--json")
	require.Equal(t, exitFailure, code)

	var resp server.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "CONFIG_TOOLS_NOT_FOUND", string(resp.Kind))
	assert.NotEmpty(t, resp.Suggestions)
}

func TestCLI_Usage(t *testing.T) {
	env := newCLIEnv(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"explore needs length", []string{"tlc", "explore", "Spec.tla"}, "length"},
		{"explore length positive", []string{"tlc", "explore", "Spec.tla", "--length", "0"}, "behavior length"},
		{"missing argument", []string{"check"}, "accepts 1 arg"},
		{"unknown command", []string{"frobnicate"}, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := env.run(t, tt.args...)
			assert.Equal(t, exitFailure, code)
			assert.Contains(t, errOut, tt.want)
		})
	}
}

func TestCLI_InvalidConfig(t *testing.T) {
	env := newCLIEnv(t)

	code, _, errOut := env.run(t, "kb", "list", "--tools-dir", filepath.Join(t.TempDir(), "nope"))
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, errOut, "CONFIG_INVALID_PATH")

	cfgFile := filepath.Join(t.TempDir(), "tlaplus.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("server:\n  rate_limit: 0\n"), 0o644))
	code, _, errOut = env.run(t, "kb", "list", "--config", cfgFile)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, errOut, "RateLimit")
}
