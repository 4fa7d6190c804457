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
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/photoszzt/vscode-tlaplus/services/tla/archive"
	"github.com/photoszzt/vscode-tlaplus/services/tla/fault"
)

// Extractor turns a module into grouped symbols and a best guess.
//
// Thread Safety: Safe for concurrent use when the Source is.
type Extractor struct {
	source  Source
	store   *archive.Store
	scoring Scoring
	logger  *slog.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithStore lets Extract accept archive URIs.
func WithStore(s *archive.Store) ExtractorOption {
	return func(e *Extractor) {
		e.store = s
	}
}

// WithScoring replaces DefaultScoring.
func WithScoring(sc Scoring) ExtractorOption {
	return func(e *Extractor) {
		e.scoring = sc
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExtractor creates an Extractor reading XML from source.
func NewExtractor(source Source, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		source:  source,
		scoring: DefaultScoring,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs the export and builds the result.
//
// Description:
//
//	The root module is the file name without ".tla". Candidates hold the
//	root module's symbols only. With includeExtended each other module
//	gets its own groups in ExtendedModules. The best guess always ranks
//	every exported symbol.
//
// Errors:
//
//	fault.KindMalformedXML - the export was empty or not XML.
//	Anything the Source or archive resolution returns.
func (e *Extractor) Extract(ctx context.Context, file string, includeExtended bool, javaHome string) (*Result, error) {
	ctx, span := startExtractSpan(ctx, file, includeExtended)
	defer span.End()

	path := file
	if archive.IsURI(file) {
		if e.store == nil {
			return nil, fault.Newf(fault.KindInvalidURI, "Archive URIs are not supported without an archive store: %s", file)
		}
		resolved, err := e.store.Resolve(ctx, file)
		if err != nil {
			return nil, err
		}
		path = resolved
	}

	xml, stderr, err := e.source.Export(ctx, path, includeExtended, javaHome)
	if err != nil {
		recordExtraction(ctx, 0, false)
		return nil, err
	}
	if len(bytes.TrimSpace(xml)) == 0 {
		recordExtraction(ctx, 0, false)
		return nil, fault.Newf(fault.KindMalformedXML, "XMLExporter produced no output. stderr: %s", stderr).
			WithContext("file", path)
	}

	all, err := ParseXML(xml)
	if err != nil {
		recordExtraction(ctx, 0, false)
		return nil, fault.Enhance(err, map[string]any{"file": path})
	}

	root := strings.TrimSuffix(filepath.Base(path), ".tla")
	var rootSyms []Symbol
	others := map[string][]Symbol{}
	for _, s := range all {
		if s.Module == root {
			rootSyms = append(rootSyms, s)
		} else {
			others[s.Module] = append(others[s.Module], s)
		}
	}

	extended := map[string]ModuleCandidates{}
	if includeExtended {
		names := make([]string, 0, len(others))
		for m := range others {
			names = append(names, m)
		}
		sort.Strings(names)
		for _, m := range names {
			extended[m] = ModuleCandidates{Candidates: Group(others[m])}
		}
	}

	res := &Result{
		SchemaVersion:          SchemaVersion,
		RootModule:             root,
		File:                   path,
		IncludeExtendedModules: includeExtended,
		Candidates:             Group(rootSyms),
		BestGuess:              e.scoring.BestGuess(all, root),
		ExtendedModules:        extended,
	}

	recordExtraction(ctx, len(all), true)
	e.logger.Debug("Symbols extracted",
		slog.String("file", path),
		slog.String("root_module", root),
		slog.Int("symbols", len(all)),
		slog.Int("extended_modules", len(extended)),
	)
	return res, nil
}
