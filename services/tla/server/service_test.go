// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoszzt/vscode-tlaplus/services/tla/config"
	"github.com/photoszzt/vscode-tlaplus/services/tla/fault"
	"github.com/photoszzt/vscode-tlaplus/services/tla/process"
	"github.com/photoszzt/vscode-tlaplus/services/tla/tlc"
	"github.com/photoszzt/vscode-tlaplus/services/tla/tools"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Cache.Dir = t.TempDir()
	cfg.Cache.Index = config.IndexMemory
	cfg.WorkingDir = t.TempDir()

	cfg.KBDir = t.TempDir()
	article := "---\ntitle: Intro\ndescription: Getting started\n---\n# Intro\n"
	require.NoError(t, os.WriteFile(filepath.Join(cfg.KBDir, "intro.md"), []byte(article), 0o644))
	return cfg
}

func withTools(t *testing.T, cfg *config.Config) {
	t.Helper()
	cfg.ToolsDir = t.TempDir()
	for _, name := range []string{process.ToolsArchiveName, tools.CommunityArchiveName} {
		require.NoError(t, os.WriteFile(filepath.Join(cfg.ToolsDir, name), nil, 0o644))
	}
}

func newTestService(t *testing.T, cfg *config.Config) *Service {
	t.Helper()
	svc, err := NewService(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestNewService_WithoutTools(t *testing.T) {
	cfg := testConfig(t)
	cfg.ToolsDir = filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.Mkdir(cfg.ToolsDir, 0o755))
	svc := newTestService(t, cfg)

	h := svc.Health()
	assert.Equal(t, "degraded", h.Status)
	assert.NotEmpty(t, h.ToolsError)
	assert.Equal(t, cfg.KBDir, h.KnowledgeBase)

	_, err := svc.Check(context.Background(), "Spec.tla")
	assert.Equal(t, fault.KindToolsNotFound, fault.KindOf(err))
	_, err = svc.Modules(context.Background(), false)
	assert.Equal(t, fault.KindToolsNotFound, fault.KindOf(err))
	_, err = svc.RunTLC(context.Background(), tlc.Request{File: "Spec.tla"})
	assert.Equal(t, fault.KindToolsNotFound, fault.KindOf(err))

	// The knowledge base and cache work without the tools.
	articles, err := svc.Articles()
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Intro", articles[0].Title)

	_, content, err := svc.Article("intro.md")
	require.NoError(t, err)
	assert.Equal(t, "# Intro\n", content)

	assert.NoError(t, svc.ClearCache(context.Background()))
}

func TestNewService_WithTools(t *testing.T) {
	cfg := testConfig(t)
	withTools(t, cfg)
	svc := newTestService(t, cfg)

	h := svc.Health()
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, cfg.ToolsDir, h.ToolsDir)

	inst, err := svc.Install()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.ToolsDir, process.ToolsArchiveName), inst.ToolsArchive)

	tests := []struct {
		file string
		kind fault.Kind
	}{
		{"../outside.tla", fault.KindPathTraversal},
		{"Missing.tla", fault.KindFileNotFound},
	}
	for _, tt := range tests {
		_, err := svc.Check(context.Background(), tt.file)
		assert.Equal(t, tt.kind, fault.KindOf(err), tt.file)

		_, err = svc.Symbols(context.Background(), tt.file, false)
		assert.Equal(t, tt.kind, fault.KindOf(err), tt.file)

		_, err = svc.RunTLC(context.Background(), tlc.Request{File: tt.file})
		assert.Equal(t, tt.kind, fault.KindOf(err), tt.file)
	}
}

func TestService_ArchiveURIConfinement(t *testing.T) {
	cfg := testConfig(t)
	withTools(t, cfg)
	svc := newTestService(t, cfg)
	ctx := context.Background()

	outside := filepath.Join(t.TempDir(), "other.zip")
	require.NoError(t, os.WriteFile(outside, nil, 0o644))
	inside := filepath.Join(cfg.WorkingDir, "lib.jar")
	toolsJar := filepath.Join(cfg.ToolsDir, process.ToolsArchiveName)
	cmodsJar := filepath.Join(cfg.ToolsDir, tools.CommunityArchiveName)

	tests := []struct {
		name string
		file string
		want string
		kind fault.Kind
	}{
		{"tools archive", "jarfile:" + toolsJar + "!/tla2sany/StandardModules/Naturals.tla",
			"jarfile:" + toolsJar + "!/tla2sany/StandardModules/Naturals.tla", ""},
		{"community archive", "jarfile:" + cmodsJar + "!/Functions.tla",
			"jarfile:" + cmodsJar + "!/Functions.tla", ""},
		{"archive in working dir", "jarfile:" + inside + "!/A.tla", "jarfile:" + inside + "!/A.tla", ""},
		{"relative archive joins working dir", "jarfile:lib.jar!/A.tla", "jarfile:" + inside + "!/A.tla", ""},
		{"archive outside working dir", "jarfile:" + outside + "!/X.tla", "", fault.KindPathTraversal},
		{"relative escape", "jarfile:../other.zip!/X.tla", "", fault.KindPathTraversal},
		{"malformed", "jarfile:" + outside, "", fault.KindInvalidURI},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.resolve(tt.file)
			if tt.kind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.kind, fault.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := svc.Check(ctx, "jarfile:"+outside+"!/X.tla")
	assert.Equal(t, fault.KindPathTraversal, fault.KindOf(err))
	_, err = svc.Symbols(ctx, "jarfile:"+outside+"!/X.tla", false)
	assert.Equal(t, fault.KindPathTraversal, fault.KindOf(err))

	// Nothing was extracted from the rejected archive.
	entries, err := svc.Store().Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewService_BadgerIndex(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Index = config.IndexBadger
	svc := newTestService(t, cfg)

	assert.Equal(t, config.IndexBadger, svc.Health().CacheIndex)
	assert.DirExists(t, filepath.Join(cfg.Cache.Dir, "index"))

	// A second service on the same directory cannot take the lock and
	// falls back to memory.
	second := newTestService(t, cfg)
	assert.Equal(t, config.IndexMemory, second.Health().CacheIndex)
}

func TestNewService_MissingKnowledgeBase(t *testing.T) {
	cfg := testConfig(t)
	cfg.KBDir = filepath.Join(t.TempDir(), "nope")
	svc := newTestService(t, cfg)

	_, err := svc.Articles()
	assert.Equal(t, fault.KindInvalidConfigPath, fault.KindOf(err))
	_, _, err = svc.Article("intro.md")
	assert.Equal(t, fault.KindInvalidConfigPath, fault.KindOf(err))
}
