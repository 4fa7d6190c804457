// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

//go:build unix

package symbols

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoszzt/vscode-tlaplus/services/tla/process"
	"github.com/photoszzt/vscode-tlaplus/services/tla/tools"
)

// fakeExporter writes its arguments as an XML comment followed by the
// document, and a line to stderr.
const fakeExporter = `#!/bin/sh
echo "<!-- $* -->"
echo '<modules><context><entry><UserDefinedOpKind><uniquename>Spec!Init</uniquename><level>1</level></UserDefinedOpKind></entry></context></modules>'
echo "exporter warning" >&2
`

func TestExporter_Export(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, "bin", "java"), []byte(fakeExporter), 0o755))

	runner := process.NewRunner(
		process.WithLookupEnv(func(string) (string, bool) { return "", false }),
		process.WithKillGrace(100*time.Millisecond),
	)
	inst := &tools.Install{ToolsArchive: "/t/tla2tools.jar", CommunityArchive: "/t/CommunityModules-deps.jar"}
	exp := NewExporter(runner, inst, time.Minute)

	file := filepath.Join(t.TempDir(), "Spec.tla")
	xml, stderr, err := exp.Export(context.Background(), file, false, home)
	require.NoError(t, err)
	assert.Contains(t, string(xml), "tla2sany.xml.XMLExporter -o -u -r Spec.tla")
	assert.NotContains(t, string(xml), "exporter warning")
	assert.Equal(t, "exporter warning\n", stderr)

	res, err := NewExtractor(exp).Extract(context.Background(), file, false, home)
	require.NoError(t, err)
	require.NotNil(t, res.BestGuess.Init)
	assert.Equal(t, "Init", res.BestGuess.Init.Name)
}
