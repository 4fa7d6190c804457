// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badger opens the embedded BadgerDB store that persists the
// archive extraction index between runs.
//
// The store is optional. Without it the index lives in memory and is
// rebuilt lazily from the on-disk cache on the next run.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("key not found")

// Config holds configuration for the store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string `yaml:"path"`

	// InMemory keeps everything in RAM. Used by tests.
	InMemory bool `yaml:"in_memory"`

	// SyncWrites fsyncs every commit.
	SyncWrites bool `yaml:"sync_writes"`

	// GCInterval is how often value log GC runs. 0 disables it.
	GCInterval time.Duration `yaml:"gc_interval"`

	// GCDiscardRatio is the garbage ratio that triggers a rewrite.
	GCDiscardRatio float64 `yaml:"gc_discard_ratio" validate:"gte=0,lte=1"`

	// Logger receives BadgerDB's internal messages. nil silences them.
	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns the configuration used for the persistent index.
func DefaultConfig() Config {
	return Config{
		SyncWrites:     false,
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// DB is an open store with an optional background GC loop.
//
// Thread Safety: Safe for concurrent use.
type DB struct {
	db       *badger.DB
	path     string
	inMemory bool

	stopGC chan struct{}
	gcDone chan struct{}
	logger *slog.Logger
}

// Open opens the store.
//
// Description:
//
//	Creates the directory when needed and starts value log GC when
//	GCInterval is positive and the store is persistent.
//
// Inputs:
//
//	cfg - Store configuration. Path is required unless InMemory is true.
//
// Outputs:
//
//	*DB - The open store. Caller must call Close.
//	error - Non-nil if the path is missing or BadgerDB fails to open.
func Open(cfg Config) (*DB, error) {
	var opts badger.Options
	switch {
	case cfg.InMemory:
		opts = badger.DefaultOptions("").WithInMemory(true)
	case cfg.Path == "":
		return nil, errors.New("path is required for persistent database")
	default:
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	d := &DB{
		db:       bdb,
		path:     cfg.Path,
		inMemory: cfg.InMemory,
		logger:   cfg.Logger,
	}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		d.stopGC = make(chan struct{})
		d.gcDone = make(chan struct{})
		go d.gcLoop(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return d, nil
}

func (d *DB) gcLoop(interval time.Duration, ratio float64) {
	defer close(d.gcDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stopGC:
			return
		case <-ticker.C:
			err := d.db.RunValueLogGC(ratio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) && d.logger != nil {
				d.logger.Warn("badger value log GC error", slog.String("error", err.Error()))
			}
		}
	}
}

// Close stops GC and closes the database.
func (d *DB) Close() error {
	if d.stopGC != nil {
		close(d.stopGC)
		<-d.gcDone
		d.stopGC = nil
	}
	return d.db.Close()
}

// Path returns the database directory, empty for in-memory stores.
func (d *DB) Path() string { return d.path }

// InMemory reports whether the store is memory backed.
func (d *DB) InMemory() bool { return d.inMemory }

// Get returns a copy of the value stored under key.
//
// Errors: ErrNotFound when the key is absent.
func (d *DB) Get(ctx context.Context, key []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	return out, err
}

// Put stores value under key.
func (d *DB) Put(ctx context.Context, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Delete removes key. Deleting an absent key is not an error.
func (d *DB) Delete(ctx context.Context, key []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// Scan calls fn for every key with the given prefix, in key order.
// Returning false from fn stops the scan.
func (d *DB) Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if !fn(item.KeyCopy(nil), val) {
				return nil
			}
		}
		return nil
	})
}

// DropPrefix deletes every key with the given prefix.
func (d *DB) DropPrefix(ctx context.Context, prefix []byte) error {
	var keys [][]byte
	err := d.Scan(ctx, prefix, func(key, _ []byte) bool {
		keys = append(keys, key)
		return true
	})
	if err != nil {
		return err
	}

	wb := d.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return err
		}
	}
	return wb.Flush()
}
