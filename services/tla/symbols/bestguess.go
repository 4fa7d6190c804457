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
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// TIERS
// =============================================================================

// MatchTier describes how a name matched its target.
type MatchTier string

const (
	MatchExact                MatchTier = "exact"
	MatchCaseInsensitiveExact MatchTier = "case_insensitive_exact"
	MatchPrefix               MatchTier = "prefix"
	MatchContains             MatchTier = "contains"
	MatchFallback             MatchTier = "fallback_first_candidate"
)

// ModuleTier is where a symbol is defined relative to the root module.
type ModuleTier string

const (
	ModuleRoot     ModuleTier = "root"
	ModuleExtended ModuleTier = "extended"
	ModuleStdlib   ModuleTier = "stdlib"
)

// Confidence summarises a pick for callers that do not inspect tiers.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Pick is one best-guess choice.
type Pick struct {
	Name       string     `json:"name"`
	Match      MatchTier  `json:"match"`
	Confidence Confidence `json:"confidence"`
	Reason     string     `json:"reason"`
}

// BestGuess is the ranked guess at the roles symbols play.
type BestGuess struct {
	Init       *Pick  `json:"init"`
	Next       *Pick  `json:"next"`
	Spec       *Pick  `json:"spec"`
	Invariants []Pick `json:"invariants"`
	Properties []Pick `json:"properties"`
}

// =============================================================================
// SCORING TABLE
// =============================================================================

// Target is a role to find: the exact name and the prefixes and
// substrings that also count.
type Target struct {
	Label    string
	Exact    string
	Prefixes []string
	Contains []string
}

// Scoring holds every weight and pattern used for ranking. Lower scores
// win; a candidate's score is its module penalty plus its name penalty.
type Scoring struct {
	ModulePenalty map[ModuleTier]int
	NamePenalty   map[MatchTier]int
	StdlibModules map[string]struct{}

	Init Target
	Next Target
	Spec Target

	InvariantPatterns []string
	PropertyPatterns  []string
}

// DefaultScoring is the ranking used by ComputeBestGuess.
var DefaultScoring = Scoring{
	ModulePenalty: map[ModuleTier]int{
		ModuleRoot:     0,
		ModuleExtended: 20,
		ModuleStdlib:   200,
	},
	NamePenalty: map[MatchTier]int{
		MatchExact:                0,
		MatchCaseInsensitiveExact: 1,
		MatchPrefix:               5,
		MatchContains:             10,
		MatchFallback:             100,
	},
	StdlibModules: setOf(
		"Integers", "Naturals", "Sequences", "FiniteSets", "TLC", "Bags",
		"Reals", "RealTime", "Randomization", "Json", "IOUtils", "CSV",
		"TLCExt", "SequencesExt", "FiniteSetsExt", "Functions", "Folds",
		"BagsExt", "Relation", "Graphs",
	),
	Init: Target{Label: "Init", Exact: "Init", Prefixes: []string{"Init"}},
	Next: Target{Label: "Next", Exact: "Next", Prefixes: []string{"Next", "Step"}},
	Spec: Target{Label: "Spec", Exact: "Spec", Prefixes: []string{"Spec", "Behavior"}},

	InvariantPatterns: []string{"Inv", "Invariant", "TypeOK", "TypeInv"},
	PropertyPatterns:  []string{"Prop", "Property", "Live", "Liveness", "Safety"},
}

func setOf(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

// IsStdlib reports whether module ships with the tools.
func (sc Scoring) IsStdlib(module string) bool {
	_, ok := sc.StdlibModules[module]
	return ok
}

func (sc Scoring) moduleTier(module, root string) ModuleTier {
	switch {
	case module == root:
		return ModuleRoot
	case sc.IsStdlib(module):
		return ModuleStdlib
	default:
		return ModuleExtended
	}
}

func (sc Scoring) matchName(name string, t Target) MatchTier {
	lower := strings.ToLower(name)
	switch {
	case name == t.Exact:
		return MatchExact
	case strings.EqualFold(name, t.Exact):
		return MatchCaseInsensitiveExact
	}
	for _, p := range t.Prefixes {
		if strings.HasPrefix(lower, strings.ToLower(p)) {
			return MatchPrefix
		}
	}
	for _, c := range t.Contains {
		if strings.Contains(lower, strings.ToLower(c)) {
			return MatchContains
		}
	}
	return MatchFallback
}

// =============================================================================
// RANKING
// =============================================================================

// ComputeBestGuess ranks symbols with DefaultScoring.
func ComputeBestGuess(symbols []Symbol, root string) BestGuess {
	return DefaultScoring.BestGuess(symbols, root)
}

// BestGuess picks Init, Next and Spec and lists invariant and property
// candidates.
//
// Description:
//
//	Init is chosen among state predicates, Next among action predicates
//	and Spec among temporal formulas (all without arguments). The lowest
//	score wins; ties are broken by name and then module, so the result
//	does not depend on input order. When no name pattern matches the
//	first remaining candidate is still returned, tagged
//	fallback_first_candidate with low confidence.
//
//	Invariants are state predicates and properties are temporal formulas
//	whose name contains one of the patterns, case-insensitively. Both
//	lists put root module symbols first and stdlib symbols last. The Spec
//	formula itself is never listed as a property.
func (sc Scoring) BestGuess(symbols []Symbol, root string) BestGuess {
	var states, actions, temporals []Symbol
	for _, s := range symbols {
		if s.RawKind != KindOperator || s.takesArguments() {
			continue
		}
		switch {
		case s.hasLevel(LevelState):
			states = append(states, s)
		case s.hasLevel(LevelAction):
			actions = append(actions, s)
		case s.hasLevel(LevelTemporal):
			temporals = append(temporals, s)
		}
	}

	props := make([]Symbol, 0, len(temporals))
	for _, s := range temporals {
		if !strings.EqualFold(s.Name, sc.Spec.Exact) {
			props = append(props, s)
		}
	}

	return BestGuess{
		Init:       sc.best(states, root, sc.Init),
		Next:       sc.best(actions, root, sc.Next),
		Spec:       sc.best(temporals, root, sc.Spec),
		Invariants: sc.matching(states, root, sc.InvariantPatterns, "invariant"),
		Properties: sc.matching(props, root, sc.PropertyPatterns, "property"),
	}
}

type scored struct {
	sym   Symbol
	score int
	match MatchTier
	tier  ModuleTier
}

func (sc Scoring) best(candidates []Symbol, root string, t Target) *Pick {
	if len(candidates) == 0 {
		return nil
	}

	ranked := make([]scored, 0, len(candidates))
	for _, s := range candidates {
		tier := sc.moduleTier(s.Module, root)
		match := sc.matchName(s.Name, t)
		ranked = append(ranked, scored{
			sym:   s,
			score: sc.ModulePenalty[tier] + sc.NamePenalty[match],
			match: match,
			tier:  tier,
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.score != b.score {
			return a.score < b.score
		}
		if a.sym.Name != b.sym.Name {
			return a.sym.Name < b.sym.Name
		}
		return a.sym.Module < b.sym.Module
	})

	top := ranked[0]
	return &Pick{
		Name:       top.sym.Name,
		Match:      top.match,
		Confidence: confidence(top.match, top.tier),
		Reason:     reason(top.tier, top.match, top.sym.Name, t.Label),
	}
}

func (sc Scoring) matching(candidates []Symbol, root string, patterns []string, role string) []Pick {
	type hit struct {
		pick   Pick
		tier   ModuleTier
		module string
	}
	var hits []hit
	for _, s := range candidates {
		lower := strings.ToLower(s.Name)
		for _, p := range patterns {
			if !strings.Contains(lower, strings.ToLower(p)) {
				continue
			}
			tier := sc.moduleTier(s.Module, root)
			hits = append(hits, hit{
				pick: Pick{
					Name:       s.Name,
					Match:      MatchContains,
					Confidence: confidence(MatchContains, tier),
					Reason:     fmt.Sprintf("%s module %s, name contains '%s'", tier, role, p),
				},
				tier:   tier,
				module: s.Module,
			})
			break
		}
	}

	rank := map[ModuleTier]int{ModuleRoot: 0, ModuleExtended: 1, ModuleStdlib: 2}
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if rank[a.tier] != rank[b.tier] {
			return rank[a.tier] < rank[b.tier]
		}
		if a.pick.Name != b.pick.Name {
			return a.pick.Name < b.pick.Name
		}
		return a.module < b.module
	})

	out := make([]Pick, len(hits))
	for i, h := range hits {
		out[i] = h.pick
	}
	return out
}

func confidence(m MatchTier, tier ModuleTier) Confidence {
	if m == MatchFallback || tier == ModuleStdlib {
		return ConfidenceLow
	}
	if m == MatchExact || m == MatchCaseInsensitiveExact {
		return ConfidenceHigh
	}
	return ConfidenceMedium
}

var matchDescriptions = map[MatchTier]string{
	MatchExact:                "exact match",
	MatchCaseInsensitiveExact: "case-insensitive exact match",
	MatchPrefix:               "prefix match",
	MatchContains:             "contains match",
	MatchFallback:             "fallback (first available candidate)",
}

func reason(tier ModuleTier, m MatchTier, name, label string) string {
	desc := matchDescriptions[m]
	if tier == ModuleStdlib {
		return fmt.Sprintf("%s '%s' in stdlib module (used as last resort for %s)", desc, name, label)
	}
	return fmt.Sprintf("%s module %s '%s' for %s", tier, desc, name, label)
}
