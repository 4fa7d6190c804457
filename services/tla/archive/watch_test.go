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
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_EvictsChangedArchive(t *testing.T) {
	jar := fixtureJar(t)
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := s.Resolve(ctx, "jarfile:"+jar+"!/RootModule.tla")
	require.NoError(t, err)
	require.NoError(t, s.Watch(ctx, jar))

	writeJar(t, jar, map[string]string{"RootModule.tla": "---- MODULE RootModule ---- \\* v2"})

	assert.Eventually(t, func() bool {
		entries, err := s.Entries(context.Background())
		return err == nil && len(entries) == 0
	}, 5*time.Second, 20*time.Millisecond)
	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Dir(p))
		return os.IsNotExist(err)
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	jar := fixtureJar(t)
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := s.Resolve(ctx, "jarfile:"+jar+"!/RootModule.tla")
	require.NoError(t, err)
	require.NoError(t, s.Watch(ctx, jar))

	writeJar(t, filepath.Join(filepath.Dir(jar), "unrelated.jar"), map[string]string{"A.tla": "a"})

	time.Sleep(200 * time.Millisecond)
	entries, err := s.Entries(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWatch_MissingDirectory(t *testing.T) {
	s := newTestStore(t)
	err := s.Watch(context.Background(), filepath.Join(t.TempDir(), "gone", "tla2tools.jar"))
	assert.Error(t, err)
}
