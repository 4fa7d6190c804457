// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package archive resolves TLA+ modules that live inside the tool jars.
//
// # URIs
//
// A module inside an archive is addressed as
//
//	jarfile:<absolute-archive-path>!/<inner-path>
//
// The inner path may be empty ("jarfile:/t.jar!/" or "jarfile:/t.jar!")
// which denotes the archive root.
//
// # Extraction Cache
//
// SANY and TLC need real files, so Resolve extracts the directory holding
// the requested module into a private cache root:
//
//	<cacheRoot>/<key>/<inner-path>
//
// where key is the first 16 hex digits of
// sha256(archive | mtime | inner). A rebuilt archive gets a new key, so
// stale content is never served. The key directory also holds a ".lock"
// file used to serialize extraction across processes and a ".complete"
// marker written once extraction has finished.
//
// # Safety
//
// Inner paths containing ".." segments or absolute forms are rejected
// with fault.KindPathTraversal before the archive is opened. Every file
// written is checked to be inside the cache root.
//
// # Concurrency
//
//	| Scope          | Mechanism                      |
//	|----------------|--------------------------------|
//	| same process   | singleflight per cache key     |
//	| other process  | flock / LockFileEx on .lock    |
//
// A lock held elsewhere surfaces as fault.KindArchiveLocked, which the
// store retries under its policy.
//
// # Index
//
// The index maps cache keys to extracted paths. MemoryIndex is the
// default; BadgerIndex persists it between runs. Entries whose path was
// removed by temp-directory cleanup are re-extracted transparently.
package archive
