// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/photoszzt/vscode-tlaplus/services/tla/archive"
	"github.com/photoszzt/vscode-tlaplus/services/tla/config"
	"github.com/photoszzt/vscode-tlaplus/services/tla/fault"
	"github.com/photoszzt/vscode-tlaplus/services/tla/kb"
	"github.com/photoszzt/vscode-tlaplus/services/tla/process"
	"github.com/photoszzt/vscode-tlaplus/services/tla/sany"
	badgerstore "github.com/photoszzt/vscode-tlaplus/services/tla/storage/badger"
	"github.com/photoszzt/vscode-tlaplus/services/tla/symbols"
	"github.com/photoszzt/vscode-tlaplus/services/tla/tlc"
	"github.com/photoszzt/vscode-tlaplus/services/tla/tools"
	"github.com/photoszzt/vscode-tlaplus/services/tla/workspace"
)

// Backend is what the HTTP handlers need. *Service implements it.
type Backend interface {
	Check(ctx context.Context, file string) (*CheckReport, error)
	Symbols(ctx context.Context, file string, includeExtended bool) (*symbols.Result, error)
	Modules(ctx context.Context, fullURI bool) ([]tools.SearchPathModules, error)
	RunTLC(ctx context.Context, req tlc.Request) (*tlc.Result, error)
	StreamTLC(ctx context.Context, req tlc.Request, fn func(line string)) (*tlc.SpecFiles, int, error)
	Articles() ([]kb.Article, error)
	Article(name string) (kb.Article, string, error)
	ClearCache(ctx context.Context) error
	Health() Health
}

var _ Backend = (*Service)(nil)

// CheckReport is a SANY result for one resolved file.
type CheckReport struct {
	File   string       `json:"file"`
	Result *sany.Result `json:"result"`
	Text   string       `json:"text"`
}

// Health reports which optional parts are available.
type Health struct {
	Status        string        `json:"status"`
	ToolsDir      string        `json:"toolsDir,omitempty"`
	ToolsError    string        `json:"toolsError,omitempty"`
	KnowledgeBase string        `json:"knowledgeBase,omitempty"`
	CacheIndex    string        `json:"cacheIndex"`
	Cache         archive.Stats `json:"cache"`
}

// Service wires the components for one configuration.
//
// Description:
//
//	Missing TLA+ tools do not prevent construction; operations that need
//	them return the location error instead, so `kb` and `cache` commands
//	keep working. The same holds for the knowledge base.
//
// Thread Safety: Safe for concurrent use after NewService returns.
type Service struct {
	cfg    *config.Config
	logger *slog.Logger

	runner     *process.Runner
	store      *archive.Store
	db         *badgerstore.DB
	indexKind  string
	install    *tools.Install
	installErr error

	checker   *sany.Checker
	extractor *symbols.Extractor
	tlc       *tlc.Runner

	kb    *kb.Catalog
	kbErr error
}

// NewService builds the components described by cfg. cfg must have been
// validated.
func NewService(cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{cfg: cfg, logger: logger}

	s.runner = process.NewRunner(
		process.WithLogger(logger),
		process.WithRetryPolicy(cfg.Retry),
		process.WithKillGrace(cfg.Process.KillGrace),
	)

	if err := s.openStore(); err != nil {
		return nil, err
	}

	s.locateTools()
	s.openKnowledgeBase()
	return s, nil
}

func (s *Service) openStore() error {
	cacheDir, err := s.cfg.CacheDir()
	if err != nil {
		return err
	}

	var index archive.Index = archive.NewMemoryIndex()
	s.indexKind = config.IndexMemory
	if s.cfg.Cache.Index == config.IndexBadger {
		dbCfg := badgerstore.DefaultConfig()
		dbCfg.Path = filepath.Join(cacheDir, "index")
		dbCfg.Logger = s.logger
		db, err := badgerstore.Open(dbCfg)
		if err != nil {
			// Another process may hold the directory lock.
			s.logger.Warn("Persistent cache index unavailable, using memory index",
				slog.String("path", dbCfg.Path),
				slog.String("error", err.Error()),
			)
		} else {
			s.db = db
			index = archive.NewBadgerIndex(db)
			s.indexKind = config.IndexBadger
		}
	}

	store, err := archive.NewStore(
		archive.WithCacheRoot(filepath.Join(cacheDir, "archives")),
		archive.WithIndex(index),
		archive.WithLogger(s.logger),
		archive.WithRetryPolicy(s.cfg.Retry),
	)
	if err != nil {
		if s.db != nil {
			_ = s.db.Close()
		}
		return fmt.Errorf("open archive store: %w", err)
	}
	s.store = store
	return nil
}

func (s *Service) locateTools() {
	dir := s.cfg.ToolsDir
	if dir == "" {
		if found, ok := tools.AutoDetect(tools.DefaultCandidates()...); ok {
			dir = found
			s.logger.Info("Auto-detected TLA+ tools", slog.String("dir", dir))
		}
	}

	install, err := tools.Locate(dir)
	if err != nil {
		s.installErr = err
		s.logger.Warn("TLA+ tools unavailable", slog.String("error", err.Error()))
		return
	}
	s.install = install

	s.checker = sany.NewChecker(s.runner, install,
		sany.WithStore(s.store),
		sany.WithTimeout(s.cfg.Process.Timeout),
		sany.WithLogger(s.logger),
	)
	s.extractor = symbols.NewExtractor(
		symbols.NewExporter(s.runner, install, s.cfg.Process.Timeout),
		symbols.WithStore(s.store),
		symbols.WithLogger(s.logger),
	)
	s.tlc = tlc.NewRunner(s.runner, install,
		tlc.WithTimeout(s.cfg.Process.TLCTimeout),
		tlc.WithLogger(s.logger),
	)
}

func (s *Service) openKnowledgeBase() {
	dir := s.cfg.KBDir
	if dir == "" {
		found, ok := kb.AutoDetectDir(kb.DefaultCandidates()...)
		if !ok {
			s.kbErr = fault.New(fault.KindInvalidConfigPath,
				"Knowledge base directory not configured. Use --kb-dir to specify the location.")
			return
		}
		dir = found
	}
	cat, err := kb.Open(dir, kb.WithLogger(s.logger))
	if err != nil {
		s.kbErr = err
		s.logger.Warn("Knowledge base unavailable", slog.String("error", err.Error()))
		return
	}
	s.kb = cat
}

// Config returns the configuration the service was built from.
func (s *Service) Config() *config.Config { return s.cfg }

// Install returns the located tools or the reason they are missing.
func (s *Service) Install() (*tools.Install, error) {
	if s.install == nil {
		return nil, s.installErr
	}
	return s.install, nil
}

// Store returns the archive store.
func (s *Service) Store() *archive.Store { return s.store }

// Watch starts the background watchers: archive changes evict cache
// entries and knowledge base edits reload the catalog.
func (s *Service) Watch(ctx context.Context) error {
	var errs []error
	if s.install != nil {
		errs = append(errs, s.store.Watch(ctx, s.install.ToolsArchive, s.install.CommunityArchive))
	}
	if s.kb != nil {
		errs = append(errs, s.kb.Watch(ctx, nil))
	}
	return errors.Join(errs...)
}

// Close releases the persistent index.
func (s *Service) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// =============================================================================
// OPERATIONS
// =============================================================================

// resolve confines file to the working directory. An archive URI must
// name one of the installed tool archives or an archive inside the
// working directory; its inner path is validated by the archive store.
//
// Errors:
//
//	fault.KindInvalidURI - malformed archive URI.
//	fault.KindPathTraversal - the file or archive is outside the working directory.
//	fault.KindFileNotFound - a plain file does not exist.
func (s *Service) resolve(file string) (string, error) {
	if !archive.IsURI(file) {
		return workspace.ResolveFile(file, s.cfg.WorkingDir)
	}
	u, err := archive.ParseURI(file)
	if err != nil {
		return "", err
	}
	if s.install != nil {
		a := filepath.Clean(u.Archive)
		if a == s.install.ToolsArchive || a == s.install.CommunityArchive {
			return file, nil
		}
	}
	abs, err := workspace.Resolve(u.Archive, s.cfg.WorkingDir)
	if err != nil {
		return "", fault.Enhance(err, map[string]any{"uri": file})
	}
	return archive.NewURI(abs, u.Inner).String(), nil
}

// Check runs SANY on file.
func (s *Service) Check(ctx context.Context, file string) (*CheckReport, error) {
	if s.checker == nil {
		return nil, s.installErr
	}
	path, err := s.resolve(file)
	if err != nil {
		return nil, err
	}
	res, err := s.checker.Check(ctx, path, s.cfg.JavaHome)
	if err != nil {
		return nil, fault.Enhance(err, map[string]any{"file": path})
	}
	return &CheckReport{File: path, Result: res, Text: sany.FormatText(path, res)}, nil
}

// Symbols extracts the symbol candidates of file.
func (s *Service) Symbols(ctx context.Context, file string, includeExtended bool) (*symbols.Result, error) {
	if s.extractor == nil {
		return nil, s.installErr
	}
	path, err := s.resolve(file)
	if err != nil {
		return nil, err
	}
	return s.extractor.Extract(ctx, path, includeExtended, s.cfg.JavaHome)
}

// Modules lists the modules on every search path.
func (s *Service) Modules(ctx context.Context, fullURI bool) ([]tools.SearchPathModules, error) {
	if s.install == nil {
		return nil, s.installErr
	}
	return tools.ListModules(ctx, s.store, s.install, fullURI)
}

func (s *Service) prepareTLC(req tlc.Request) (tlc.Request, error) {
	if s.tlc == nil {
		return req, s.installErr
	}
	file, err := workspace.ResolveFile(req.File, s.cfg.WorkingDir)
	if err != nil {
		return req, err
	}
	req.File = file
	if req.CfgFile != "" {
		cfg, err := workspace.Resolve(req.CfgFile, s.cfg.WorkingDir)
		if err != nil {
			return req, err
		}
		req.CfgFile = cfg
	}
	req.JavaHome = s.cfg.JavaHome
	return req, nil
}

// RunTLC runs TLC to completion.
func (s *Service) RunTLC(ctx context.Context, req tlc.Request) (*tlc.Result, error) {
	req, err := s.prepareTLC(req)
	if err != nil {
		return nil, err
	}
	return s.tlc.Run(ctx, req)
}

// StreamTLC runs TLC and forwards output lines as they arrive.
func (s *Service) StreamTLC(ctx context.Context, req tlc.Request, fn func(line string)) (*tlc.SpecFiles, int, error) {
	req, err := s.prepareTLC(req)
	if err != nil {
		return nil, 0, err
	}
	return s.tlc.Stream(ctx, req, fn)
}

// Articles lists the knowledge base.
func (s *Service) Articles() ([]kb.Article, error) {
	if s.kb == nil {
		return nil, s.kbErr
	}
	return s.kb.List(), nil
}

// Article reads one knowledge base article.
func (s *Service) Article(name string) (kb.Article, string, error) {
	if s.kb == nil {
		return kb.Article{}, "", s.kbErr
	}
	return s.kb.Read(name)
}

// ClearCache removes all extracted archive content.
func (s *Service) ClearCache(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// Health summarizes the service state.
func (s *Service) Health() Health {
	h := Health{Status: "ok", CacheIndex: s.indexKind, Cache: s.store.Stats()}
	if s.install != nil {
		h.ToolsDir = s.install.Dir
	} else if s.installErr != nil {
		h.Status = "degraded"
		h.ToolsError = s.installErr.Error()
	}
	if s.kb != nil {
		h.KnowledgeBase = s.kb.Dir()
	}
	return h
}
