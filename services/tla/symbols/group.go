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
	"sort"
)

// Group partitions symbols into candidate groups.
//
// Description:
//
//	| kind                | level | arity | group             |
//	|---------------------|-------|-------|-------------------|
//	| OpDeclNode          | 0     |       | Constants         |
//	| OpDeclNode          | 1     |       | Variables         |
//	| UserDefinedOpKind   | any   | > 0   | OperatorsWithArgs |
//	| UserDefinedOpKind   | 1     | 0/nil | StatePredicates   |
//	| UserDefinedOpKind   | 2     | 0/nil | ActionPredicates  |
//	| UserDefinedOpKind   | 3     | 0/nil | TemporalFormulas  |
//	| TheoremDefNode      |       |       | Theorems          |
//	| AssumeDef           |       |       | Assumptions       |
//
//	The arity row is checked before the level rows. Symbols matching no
//	row (for example a level 0 operator without arguments) are dropped.
//	Duplicates by module, name and kind keep the first occurrence. Every
//	group is sorted by name and is never nil.
func Group(symbols []Symbol) CandidateGroups {
	g := CandidateGroups{
		Constants:         []OutputSymbol{},
		Variables:         []OutputSymbol{},
		StatePredicates:   []OutputSymbol{},
		ActionPredicates:  []OutputSymbol{},
		TemporalFormulas:  []OutputSymbol{},
		OperatorsWithArgs: []OutputSymbol{},
		Theorems:          []OutputSymbol{},
		Assumptions:       []OutputSymbol{},
	}

	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		key := s.Module + "!" + s.Name + "!" + string(s.RawKind)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if dst := g.slot(s); dst != nil {
			*dst = append(*dst, OutputSymbol{Name: s.Name, Location: s.Location, Comment: s.Comment})
		}
	}

	for _, list := range g.all() {
		sort.SliceStable(*list, func(i, j int) bool { return (*list)[i].Name < (*list)[j].Name })
	}
	return g
}

// slot returns the group s belongs to, or nil.
func (g *CandidateGroups) slot(s Symbol) *[]OutputSymbol {
	switch s.RawKind {
	case KindTheorem:
		return &g.Theorems
	case KindAssumption:
		return &g.Assumptions
	case KindDeclaration:
		switch {
		case s.hasLevel(LevelConstant):
			return &g.Constants
		case s.hasLevel(LevelState):
			return &g.Variables
		}
	case KindOperator:
		switch {
		case s.takesArguments():
			return &g.OperatorsWithArgs
		case s.hasLevel(LevelState):
			return &g.StatePredicates
		case s.hasLevel(LevelAction):
			return &g.ActionPredicates
		case s.hasLevel(LevelTemporal):
			return &g.TemporalFormulas
		}
	}
	return nil
}

func (g *CandidateGroups) all() []*[]OutputSymbol {
	return []*[]OutputSymbol{
		&g.Constants, &g.Variables,
		&g.StatePredicates, &g.ActionPredicates, &g.TemporalFormulas,
		&g.OperatorsWithArgs, &g.Theorems, &g.Assumptions,
	}
}

// Len returns the number of symbols across all groups.
func (g CandidateGroups) Len() int {
	n := 0
	for _, list := range g.all() {
		n += len(*list)
	}
	return n
}
