// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package symbols

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/photoszzt/vscode-tlaplus/services/tla/process"
	"github.com/photoszzt/vscode-tlaplus/services/tla/tools"
)

// ExporterMainClass is the XML export entry point.
const ExporterMainClass = "tla2sany.xml.XMLExporter"

// Source produces XMLExporter output for a module.
type Source interface {
	Export(ctx context.Context, file string, includeExtended bool, javaHome string) (xml []byte, stderr string, err error)
}

// Exporter runs XMLExporter as a tool process.
type Exporter struct {
	runner  process.Starter
	install *tools.Install
	timeout time.Duration
}

// NewExporter creates an Exporter. A zero timeout disables the limit.
func NewExporter(runner process.Starter, install *tools.Install, timeout time.Duration) *Exporter {
	return &Exporter{runner: runner, install: install, timeout: timeout}
}

// ExportArgs returns the XMLExporter arguments: "-o -u", then "-r"
// (root module only) unless extended modules are wanted, then the file's
// base name.
func ExportArgs(file string, includeExtended bool) []string {
	args := []string{"-o", "-u"}
	if !includeExtended {
		args = append(args, "-r")
	}
	return append(args, filepath.Base(file))
}

// Export runs XMLExporter in the file's directory and returns stdout as
// the XML document together with stderr.
func (e *Exporter) Export(ctx context.Context, file string, includeExtended bool, javaHome string) ([]byte, string, error) {
	h, err := e.runner.Run(ctx, process.Spec{
		ClassPath:    e.install.ClassPath(),
		MainClass:    ExporterMainClass,
		Args:         ExportArgs(file, includeExtended),
		JavaOptions:  e.install.LibraryOption(),
		JavaHome:     javaHome,
		WorkDir:      filepath.Dir(file),
		Timeout:      e.timeout,
		SplitStreams: true,
	})
	if err != nil {
		return nil, "", err
	}
	defer h.Close()

	xml, err := io.ReadAll(h.Output())
	if err != nil {
		return nil, "", fmt.Errorf("read XMLExporter output: %w", err)
	}
	if _, err := h.Wait(); err != nil {
		return nil, h.Stderr(), err
	}
	return xml, h.Stderr(), nil
}
