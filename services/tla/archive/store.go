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
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/photoszzt/vscode-tlaplus/services/tla/fault"
)

const (
	lockFileName   = ".lock"
	completeMarker = ".complete"
)

// DefaultCacheRoot is used when no cache root is configured.
func DefaultCacheRoot() string {
	return filepath.Join(os.TempDir(), "tlaplus-archive-cache")
}

// Stats counts cache activity since the Store was created.
type Stats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Extractions int64 `json:"extractions"`
}

// Store lists and extracts archive content.
//
// Thread Safety: Safe for concurrent use. Concurrent requests for the
// same cache key share one extraction.
type Store struct {
	root   string
	index  Index
	locker FileLocker
	policy fault.Policy
	logger *slog.Logger
	flight singleflight.Group

	hits        atomic.Int64
	misses      atomic.Int64
	extractions atomic.Int64
}

// Option configures a Store.
type Option func(*Store)

// WithCacheRoot sets the directory extractions are written under.
func WithCacheRoot(dir string) Option {
	return func(s *Store) {
		if dir != "" {
			s.root = dir
		}
	}
}

// WithIndex replaces the default MemoryIndex.
func WithIndex(idx Index) Option {
	return func(s *Store) {
		if idx != nil {
			s.index = idx
		}
	}
}

// WithLocker replaces the platform file locker.
func WithLocker(l FileLocker) Option {
	return func(s *Store) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRetryPolicy sets the extraction retry policy. It is narrowed to
// lock and extraction failures.
func WithRetryPolicy(p fault.Policy) Option {
	return func(s *Store) {
		s.policy = p
	}
}

// NewStore creates a Store.
//
// Errors: returned when the cache root cannot be made absolute.
func NewStore(opts ...Option) (*Store, error) {
	s := &Store{
		root:   DefaultCacheRoot(),
		index:  NewMemoryIndex(),
		locker: DefaultLocker(),
		policy: fault.DefaultPolicy(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	abs, err := filepath.Abs(s.root)
	if err != nil {
		return nil, fmt.Errorf("resolve cache root %s: %w", s.root, err)
	}
	s.root = abs
	s.policy = s.policy.Only(fault.KindArchiveLocked, fault.KindExtractionFailed)
	return s, nil
}

// CacheRoot returns the absolute cache root.
func (s *Store) CacheRoot() string { return s.root }

// Stats returns a snapshot of the cache counters.
func (s *Store) Stats() Stats {
	return Stats{
		Hits:        s.hits.Load(),
		Misses:      s.misses.Load(),
		Extractions: s.extractions.Load(),
	}
}

// Entries returns the indexed extractions.
func (s *Store) Entries(ctx context.Context) ([]CacheEntry, error) {
	return s.index.Entries(ctx)
}

// =============================================================================
// LISTING
// =============================================================================

// ListEntries lists the files directly under dir inside the archive.
//
// Description:
//
//	dir is normalized: surrounding slashes are ignored and "" means the
//	archive root. Subdirectories and their content are not listed. A
//	directory that does not exist yields an empty list.
//
// Errors:
//
//	fault.KindPathTraversal - dir escapes the archive root.
//	fault.KindFileNotFound - the archive does not exist.
//	fault.KindArchiveCorrupted - the archive is not a readable zip.
func (s *Store) ListEntries(ctx context.Context, archivePath, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkInner(dir); err != nil {
		return nil, err
	}
	abs, _, err := statArchive(archivePath)
	if err != nil {
		return nil, err
	}
	zr, err := openZip(abs)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	prefix := normalizeInner(dir)
	if prefix != "" {
		prefix += "/"
	}

	names := []string{}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") || !strings.HasPrefix(f.Name, prefix) {
			continue
		}
		rest := f.Name[len(prefix):]
		if rest == "" || strings.Contains(rest, "/") {
			continue
		}
		names = append(names, rest)
	}
	sort.Strings(names)
	return names, nil
}

// ListModules lists the TLA+ modules directly under dir.
//
// Description:
//
//	Keeps ".tla" files whose name does not start with "_" (internal
//	modules). With fullURI each module is rendered as an archive URI,
//	otherwise as a file name.
func (s *Store) ListModules(ctx context.Context, archivePath, dir string, fullURI bool) ([]string, error) {
	entries, err := s.ListEntries(ctx, archivePath, dir)
	if err != nil {
		return nil, err
	}
	base := normalizeInner(dir)
	modules := make([]string, 0, len(entries))
	for _, name := range entries {
		if !strings.HasSuffix(name, ".tla") || strings.HasPrefix(name, "_") {
			continue
		}
		if fullURI {
			modules = append(modules, NewURI(archivePath, path.Join(base, name)).String())
			continue
		}
		modules = append(modules, name)
	}
	return modules, nil
}

// =============================================================================
// EXTRACTION
// =============================================================================

// ExtractEntry extracts one file and returns its path in the cache.
func (s *Store) ExtractEntry(ctx context.Context, archivePath, inner string) (string, error) {
	return s.extract(ctx, archivePath, inner, false)
}

// ExtractDirectory extracts the subtree under inner ("" for the whole
// archive) and returns the directory path in the cache.
func (s *Store) ExtractDirectory(ctx context.Context, archivePath, inner string) (string, error) {
	return s.extract(ctx, archivePath, inner, true)
}

// Resolve maps an archive URI to a real file.
//
// Description:
//
//	Extracts the directory containing the module, not just the module,
//	so modules it EXTENDS from the same directory resolve too. Repeated
//	calls for an unchanged archive return the same path without
//	extracting again.
//
// Errors:
//
//	fault.KindInvalidURI - malformed URI.
//	fault.KindPathTraversal - inner path escapes the archive root.
//	fault.KindEntryNotFound - the directory or file is not in the archive.
func (s *Store) Resolve(ctx context.Context, uri string) (string, error) {
	u, err := ParseURI(uri)
	if err != nil {
		return "", err
	}
	if err := checkInner(u.Inner); err != nil {
		return "", err
	}
	inner := normalizeInner(u.Inner)
	if inner == "" {
		return s.ExtractDirectory(ctx, u.Archive, "")
	}

	dir, name := path.Split(inner)
	extracted, err := s.ExtractDirectory(ctx, u.Archive, strings.TrimSuffix(dir, "/"))
	if err != nil {
		return "", err
	}

	p := filepath.Join(extracted, filepath.FromSlash(name))
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fault.Newf(fault.KindEntryNotFound,
				"Module %q not found in jar %s", inner, u.Archive).
				WithContext("uri", uri)
		}
		return "", fault.Wrap(fault.Classify(err), err, "")
	}
	return p, nil
}

// ResolvePath returns p unchanged unless it is an archive URI, in which
// case it is resolved.
func (s *Store) ResolvePath(ctx context.Context, p string) (string, error) {
	if !IsURI(p) {
		return p, nil
	}
	return s.Resolve(ctx, p)
}

// Evict drops index entries for an archive and removes their extracted
// directories. Keys embed the archive mtime, so evicted directories are
// never reused.
func (s *Store) Evict(ctx context.Context, archivePath string) (int, error) {
	abs, err := filepath.Abs(archivePath)
	if err != nil {
		return 0, err
	}
	entries, err := s.index.Entries(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.Archive != abs {
			continue
		}
		if err := s.index.Delete(ctx, e.Key); err != nil {
			return n, err
		}
		s.removeKeyDir(e.Key)
		n++
	}
	return n, nil
}

// removeKeyDir deletes an evicted key's directory. Failures are logged;
// the index row is already gone.
func (s *Store) removeKeyDir(key string) {
	keyDir := filepath.Join(s.root, key)
	if key == "" || ensureWithin(s.root, keyDir) != nil {
		return
	}
	if err := os.RemoveAll(keyDir); err != nil {
		s.logger.Warn("Failed to remove evicted extraction",
			slog.String("key", key),
			slog.String("dir", keyDir),
			slog.String("error", err.Error()),
		)
	}
}

// Clear removes the cache root and empties the index.
func (s *Store) Clear(ctx context.Context) error {
	if err := os.RemoveAll(s.root); err != nil {
		return fault.Wrap(fault.Classify(err), err, "Failed to clear archive cache "+s.root)
	}
	if err := s.index.Clear(ctx); err != nil {
		return fmt.Errorf("clear archive index: %w", err)
	}
	s.logger.Info("Archive cache cleared", slog.String("root", s.root))
	return nil
}

func (s *Store) extract(ctx context.Context, archivePath, inner string, dir bool) (string, error) {
	if err := checkInner(inner); err != nil {
		return "", err
	}
	inner = normalizeInner(inner)
	if !dir && inner == "" {
		return "", fault.Newf(fault.KindEntryNotFound, "Entry \"\" not found in jar %s", archivePath)
	}

	abs, info, err := statArchive(archivePath)
	if err != nil {
		return "", err
	}
	key := cacheKey(abs, info.ModTime(), inner)

	ctx, span := startExtractSpan(ctx, abs, inner, dir)
	defer span.End()

	if p, ok := s.lookup(ctx, key); ok {
		s.hits.Add(1)
		recordLookup(ctx, true)
		return p, nil
	}
	s.misses.Add(1)
	recordLookup(ctx, false)

	policy := s.policy
	policy.OnRetry = func(attempt int, err *fault.Error, delay time.Duration) {
		s.logger.Warn("Retrying archive extraction",
			slog.String("archive", abs),
			slog.String("inner", inner),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	// The extraction is shared by every caller on key, so it must not
	// inherit the cancellation of whichever caller started it.
	shared := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key, func() (any, error) {
		target, err := fault.Do(shared, policy, func(ctx context.Context, _ int) (string, error) {
			return s.extractOnce(ctx, abs, inner, key, dir)
		})
		if err != nil {
			return "", err
		}
		entry := CacheEntry{
			Key:         key,
			Archive:     abs,
			ModTime:     info.ModTime(),
			Inner:       inner,
			Path:        target,
			Dir:         dir,
			ExtractedAt: time.Now(),
		}
		if err := s.index.Put(shared, entry); err != nil {
			s.logger.Warn("Failed to index extraction",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return target, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		return "", ctx.Err()
	}
	if res.Err != nil {
		span.RecordError(res.Err)
		return "", fault.Enhance(res.Err, map[string]any{
			"jarPath":   abs,
			"innerPath": inner,
		})
	}
	return res.Val.(string), nil
}

// lookup returns an indexed path that still exists. Entries whose files
// were removed externally are dropped.
func (s *Store) lookup(ctx context.Context, key string) (string, bool) {
	e, ok, err := s.index.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Archive index lookup failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return "", false
	}
	if !ok {
		return "", false
	}
	if _, err := os.Stat(e.Path); err != nil {
		s.logger.Debug("Cached extraction missing, re-extracting",
			slog.String("key", key),
			slog.String("path", e.Path),
		)
		_ = s.index.Delete(ctx, key)
		return "", false
	}
	return e.Path, true
}

// extractOnce performs one extraction attempt under the key lock.
func (s *Store) extractOnce(ctx context.Context, abs, inner, key string, dir bool) (string, error) {
	keyDir := filepath.Join(s.root, key)
	if err := os.MkdirAll(keyDir, 0o755); err != nil {
		return "", fault.Wrap(fault.KindExtractionFailed, err,
			fmt.Sprintf("Failed to create cache directory %s: %v", keyDir, err))
	}

	lk, err := acquireKeyLock(s.locker, filepath.Join(keyDir, lockFileName))
	if err != nil {
		return "", err
	}
	defer func() {
		if err := lk.release(); err != nil {
			s.logger.Warn("Failed to release extraction lock",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}()

	target := keyDir
	if inner != "" {
		target = filepath.Join(keyDir, filepath.FromSlash(inner))
	}
	if err := ensureWithin(s.root, target); err != nil {
		return "", err
	}

	// Another process may have finished this key while we waited.
	if exists(filepath.Join(keyDir, completeMarker)) && exists(target) {
		return target, nil
	}

	start := time.Now()
	n, err := s.unpack(ctx, abs, inner, keyDir, dir)
	recordExtraction(ctx, time.Since(start), n, err == nil)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(keyDir, completeMarker), nil, 0o644); err != nil {
		return "", fault.Wrap(fault.KindExtractionFailed, err, "Failed to mark extraction complete")
	}
	s.extractions.Add(1)

	s.logger.Debug("Extracted archive content",
		slog.String("archive", abs),
		slog.String("inner", inner),
		slog.Int("files", n),
		slog.Duration("duration", time.Since(start)),
	)
	return target, nil
}

// unpack writes the matching entries below keyDir and returns how many
// files were written.
func (s *Store) unpack(ctx context.Context, abs, inner, keyDir string, dir bool) (int, error) {
	zr, err := openZip(abs)
	if err != nil {
		return 0, err
	}
	defer zr.Close()

	prefix := ""
	if dir && inner != "" {
		prefix = inner + "/"
	}

	n := 0
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		if dir && !strings.HasPrefix(f.Name, prefix) || !dir && f.Name != inner {
			continue
		}
		if err := checkInner(f.Name); err != nil {
			return n, err
		}
		dst := filepath.Join(keyDir, filepath.FromSlash(f.Name))
		if err := ensureWithin(s.root, dst); err != nil {
			return n, err
		}
		if err := writeEntry(f, dst); err != nil {
			return n, fault.Wrap(fault.KindExtractionFailed, err,
				fmt.Sprintf("Failed to extract %s from %s: %v", f.Name, abs, err))
		}
		n++
	}

	if n == 0 {
		what := "Entry"
		if dir {
			what = "Directory"
		}
		return 0, fault.Newf(fault.KindEntryNotFound, "%s %q not found in jar %s", what, inner, abs)
	}
	return n, nil
}

// writeEntry copies one zip entry to dst through a temp file so readers
// never see a partial file.
func writeEntry(f *zip.File, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".extract-*")
	if err != nil {
		return err
	}
	_, copyErr := tmp.ReadFrom(rc)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

func statArchive(archivePath string) (string, os.FileInfo, error) {
	abs, err := filepath.Abs(archivePath)
	if err != nil {
		return "", nil, fault.Wrap(fault.KindInvalidConfigPath, err, "")
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil, fault.Wrap(fault.KindFileNotFound, err, "Jar file not found: "+abs).
				WithContext("jarPath", abs)
		}
		return "", nil, fault.Wrap(fault.Classify(err), err, "")
	}
	if info.IsDir() {
		return "", nil, fault.Newf(fault.KindArchiveCorrupted, "Not a jar file: %s is a directory", abs)
	}
	return abs, info, nil
}

func openZip(abs string) (*zip.ReadCloser, error) {
	zr, err := zip.OpenReader(abs)
	if err == nil {
		return zr, nil
	}
	switch {
	case errors.Is(err, zip.ErrInsecurePath):
		if zr != nil {
			zr.Close()
		}
		return nil, fault.Wrap(fault.KindPathTraversal, err,
			"Path traversal detected: jar "+abs+" contains entries outside its root")
	case errors.Is(err, fs.ErrNotExist):
		return nil, fault.Wrap(fault.KindFileNotFound, err, "Jar file not found: "+abs)
	case errors.Is(err, fs.ErrPermission):
		return nil, fault.Wrap(fault.KindAccessDenied, err, "Permission denied reading jar "+abs)
	default:
		return nil, fault.Wrap(fault.KindArchiveCorrupted, err,
			fmt.Sprintf("Failed to read jar %s: %v", abs, err)).WithContext("jarPath", abs)
	}
}

func normalizeInner(p string) string {
	return strings.Trim(strings.ReplaceAll(p, `\`, "/"), "/")
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
