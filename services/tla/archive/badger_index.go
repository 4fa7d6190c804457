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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/photoszzt/vscode-tlaplus/services/tla/storage/badger"
)

var indexPrefix = []byte("archive/")

// BadgerIndex persists cache entries in BadgerDB so a new process can
// reuse extractions made by an earlier one.
type BadgerIndex struct {
	db *badger.DB
}

// NewBadgerIndex wraps an open store. The caller keeps ownership of db.
func NewBadgerIndex(db *badger.DB) *BadgerIndex {
	return &BadgerIndex{db: db}
}

func indexKey(key string) []byte {
	return append(append([]byte{}, indexPrefix...), key...)
}

func (b *BadgerIndex) Get(ctx context.Context, key string) (CacheEntry, bool, error) {
	raw, err := b.db.Get(ctx, indexKey(key))
	if errors.Is(err, badger.ErrNotFound) {
		return CacheEntry{}, false, nil
	}
	if err != nil {
		return CacheEntry{}, false, err
	}
	var e CacheEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return CacheEntry{}, false, fmt.Errorf("decode index entry %s: %w", key, err)
	}
	return e, true, nil
}

func (b *BadgerIndex) Put(ctx context.Context, entry CacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode index entry %s: %w", entry.Key, err)
	}
	return b.db.Put(ctx, indexKey(entry.Key), raw)
}

func (b *BadgerIndex) Delete(ctx context.Context, key string) error {
	return b.db.Delete(ctx, indexKey(key))
}

func (b *BadgerIndex) Entries(ctx context.Context) ([]CacheEntry, error) {
	var (
		out     []CacheEntry
		decoErr error
	)
	err := b.db.Scan(ctx, indexPrefix, func(key, value []byte) bool {
		var e CacheEntry
		if err := json.Unmarshal(value, &e); err != nil {
			decoErr = fmt.Errorf("decode index entry %s: %w", key, err)
			return false
		}
		out = append(out, e)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, decoErr
}

func (b *BadgerIndex) Clear(ctx context.Context) error {
	return b.db.DropPrefix(ctx, indexPrefix)
}
