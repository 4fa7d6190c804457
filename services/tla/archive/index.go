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
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"sync"
	"time"
)

// CacheEntry records one extraction.
type CacheEntry struct {
	Key         string    `json:"key"`
	Archive     string    `json:"archive"`
	ModTime     time.Time `json:"modTime"`
	Inner       string    `json:"inner"`
	Path        string    `json:"path"`
	Dir         bool      `json:"dir"`
	ExtractedAt time.Time `json:"extractedAt"`
}

// Index stores cache entries by key.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Index interface {
	// Get returns the entry for key. ok is false when absent.
	Get(ctx context.Context, key string) (entry CacheEntry, ok bool, err error)

	// Put inserts or replaces an entry.
	Put(ctx context.Context, entry CacheEntry) error

	// Delete removes key. Absent keys are not an error.
	Delete(ctx context.Context, key string) error

	// Entries returns every entry sorted by key.
	Entries(ctx context.Context) ([]CacheEntry, error)

	// Clear removes every entry.
	Clear(ctx context.Context) error
}

// cacheKey derives the content address of an extraction.
func cacheKey(archive string, modTime time.Time, inner string) string {
	sum := sha256.Sum256([]byte(archive + "|" + strconv.FormatInt(modTime.UnixNano(), 10) + "|" + inner))
	return hex.EncodeToString(sum[:])[:16]
}

// MemoryIndex is an in-process Index.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
}

// NewMemoryIndex returns an empty MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]CacheEntry)}
}

func (m *MemoryIndex) Get(_ context.Context, key string) (CacheEntry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok, nil
}

func (m *MemoryIndex) Put(_ context.Context, entry CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.Key] = entry
	return nil
}

func (m *MemoryIndex) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryIndex) Entries(_ context.Context) ([]CacheEntry, error) {
	m.mu.RLock()
	out := make([]CacheEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryIndex) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]CacheEntry)
	return nil
}
