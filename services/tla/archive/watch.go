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
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch evicts index entries of archives that change on disk until ctx
// ends.
//
// Description:
//
//	Parent directories are watched rather than the archives themselves so
//	that replacing an archive by rename is noticed. A changed archive
//	already gets a new cache key through its mtime; eviction only keeps
//	the index from accumulating dead entries.
//
// Outputs:
//
//	error - Non-nil if the watcher cannot be created or a directory
//	        cannot be watched. The watch itself runs in the background.
func (s *Store) Watch(ctx context.Context, archives ...string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create archive watcher: %w", err)
	}

	watched := make(map[string]struct{}, len(archives))
	dirs := make(map[string]struct{})
	for _, a := range archives {
		abs, err := filepath.Abs(a)
		if err != nil {
			w.Close()
			return fmt.Errorf("resolve archive %s: %w", a, err)
		}
		watched[abs] = struct{}{}
		dir := filepath.Dir(abs)
		if _, ok := dirs[dir]; ok {
			continue
		}
		if err := w.Add(dir); err != nil {
			w.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = struct{}{}
	}

	go s.watchLoop(ctx, w, watched)
	return nil
}

func (s *Store) watchLoop(ctx context.Context, w *fsnotify.Watcher, watched map[string]struct{}) {
	defer w.Close()
	const changed = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			name := filepath.Clean(ev.Name)
			if _, ok := watched[name]; !ok || ev.Op&changed == 0 {
				continue
			}
			n, err := s.Evict(ctx, name)
			if err != nil {
				s.logger.Warn("Failed to evict changed archive",
					slog.String("archive", name),
					slog.String("error", err.Error()),
				)
				continue
			}
			if n > 0 {
				s.logger.Info("Archive changed, cache entries evicted",
					slog.String("archive", name),
					slog.Int("entries", n),
				)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn("Archive watcher error", slog.String("error", err.Error()))
		}
	}
}
