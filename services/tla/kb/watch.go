// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package kb

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces bursts of events from editors that write
// through temporary files.
const reloadDebounce = 200 * time.Millisecond

// Watch reloads the catalog whenever a markdown file in its directory
// changes, until ctx ends. The optional onReload callback runs after
// every reload.
func (c *Catalog) Watch(ctx context.Context, onReload func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create knowledge base watcher: %w", err)
	}
	if err := w.Add(c.dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", c.dir, err)
	}
	go c.watchLoop(ctx, w, onReload)
	return nil
}

func (c *Catalog) watchLoop(ctx context.Context, w *fsnotify.Watcher, onReload func()) {
	defer w.Close()

	timer := time.NewTimer(reloadDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(ev.Name, ".md") || ev.Op == fsnotify.Chmod {
				continue
			}
			timer.Reset(reloadDebounce)
		case <-timer.C:
			if err := c.Reload(); err != nil {
				c.logger.Warn("Knowledge base reload failed", slog.String("error", err.Error()))
				continue
			}
			if onReload != nil {
				onReload()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			c.logger.Warn("Knowledge base watcher error", slog.String("error", err.Error()))
		}
	}
}

// =============================================================================
// DISCOVERY
// =============================================================================

// AutoDetectDir returns the first candidate directory that holds at least
// one markdown file.
func AutoDetectDir(candidates ...string) (string, bool) {
	for _, dir := range candidates {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
				abs, err := filepath.Abs(dir)
				if err != nil {
					return dir, true
				}
				return abs, true
			}
		}
	}
	return "", false
}

// DefaultCandidates lists the usual knowledge base locations relative to
// the executable.
func DefaultCandidates() []string {
	exe, err := os.Executable()
	if err != nil {
		return nil
	}
	dir := filepath.Dir(exe)
	return []string{
		filepath.Join(dir, "..", "..", "resources", "knowledgebase"),
		filepath.Join(dir, "..", "resources", "knowledgebase"),
		filepath.Join(dir, "resources", "knowledgebase"),
	}
}
