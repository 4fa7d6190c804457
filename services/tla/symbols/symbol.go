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

// RawKind is the XMLExporter element a symbol came from.
type RawKind string

const (
	// KindOperator is an operator definition with a body.
	KindOperator RawKind = "UserDefinedOpKind"

	// KindDeclaration is a CONSTANT or VARIABLE declaration.
	KindDeclaration RawKind = "OpDeclNode"

	// KindTheorem is a THEOREM.
	KindTheorem RawKind = "TheoremDefNode"

	// KindAssumption is an ASSUME.
	KindAssumption RawKind = "AssumeDef"
)

// Semantic levels.
const (
	LevelConstant = 0
	LevelState    = 1
	LevelAction   = 2
	LevelTemporal = 3
)

// Position is a line and column in a module.
type Position struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

// Location is a source range.
type Location struct {
	File  string   `json:"file,omitempty"`
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Symbol is one declared or defined name.
//
// Level and Arity are nil when the export does not carry them.
type Symbol struct {
	Name       string    `json:"name"`
	Module     string    `json:"module"`
	UniqueName string    `json:"uniqueName"`
	Level      *int      `json:"level,omitempty"`
	Arity      *int      `json:"arity,omitempty"`
	Location   *Location `json:"location,omitempty"`
	Comment    string    `json:"comment,omitempty"`
	RawKind    RawKind   `json:"rawKind"`
}

func (s Symbol) hasLevel(l int) bool {
	return s.Level != nil && *s.Level == l
}

// takesArguments reports an arity above zero.
func (s Symbol) takesArguments() bool {
	return s.Arity != nil && *s.Arity > 0
}

// OutputSymbol is the reduced form used in candidate groups.
type OutputSymbol struct {
	Name     string    `json:"name"`
	Location *Location `json:"location,omitempty"`
	Comment  string    `json:"comment,omitempty"`
}

// CandidateGroups partitions one module's symbols by the role they can
// play in a TLC configuration. Every list is sorted by name.
type CandidateGroups struct {
	Constants         []OutputSymbol `json:"constants"`
	Variables         []OutputSymbol `json:"variables"`
	StatePredicates   []OutputSymbol `json:"statePredicates"`
	ActionPredicates  []OutputSymbol `json:"actionPredicates"`
	TemporalFormulas  []OutputSymbol `json:"temporalFormulas"`
	OperatorsWithArgs []OutputSymbol `json:"operatorsWithArgs"`
	Theorems          []OutputSymbol `json:"theorems"`
	Assumptions       []OutputSymbol `json:"assumptions"`
}

// ModuleCandidates wraps the groups of a non-root module.
type ModuleCandidates struct {
	Candidates CandidateGroups `json:"candidates"`
}

// Result is the outcome of one extraction.
type Result struct {
	SchemaVersion          int                         `json:"schemaVersion"`
	RootModule             string                      `json:"rootModule"`
	File                   string                      `json:"file"`
	IncludeExtendedModules bool                        `json:"includeExtendedModules"`
	Candidates             CandidateGroups             `json:"candidates"`
	BestGuess              BestGuess                   `json:"bestGuess"`
	ExtendedModules        map[string]ModuleCandidates `json:"extendedModules"`
}

// SchemaVersion changes only when Result changes incompatibly.
const SchemaVersion = 1
