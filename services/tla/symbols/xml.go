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
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/photoszzt/vscode-tlaplus/services/tla/fault"
)

type xmlDocument struct {
	XMLName xml.Name
	Entries []xmlEntry `xml:"context>entry"`
}

type xmlEntry struct {
	Operator    *xmlNode `xml:"UserDefinedOpKind"`
	Declaration *xmlNode `xml:"OpDeclNode"`
	Theorem     *xmlNode `xml:"TheoremDefNode"`
	Assumption  *xmlNode `xml:"AssumeDef"`
}

type xmlNode struct {
	UniqueName  string       `xml:"uniquename"`
	Level       *string      `xml:"level"`
	Arity       *string      `xml:"arity"`
	PreComments *string      `xml:"pre-comments"`
	Location    *xmlLocation `xml:"location"`
}

type xmlLocation struct {
	Filename string   `xml:"filename"`
	Line     xmlRange `xml:"line"`
	Column   xmlRange `xml:"column"`
}

type xmlRange struct {
	Begin string `xml:"begin"`
	End   string `xml:"end"`
}

// ParseXML reads XMLExporter output into a flat symbol list.
//
// Description:
//
//	Walks modules/context/entry. Each entry is dispatched on which of
//	UserDefinedOpKind, OpDeclNode, TheoremDefNode or AssumeDef it holds;
//	other entries and entries without a uniquename are skipped. The
//	uniquename is split at the first "!" into module and name. Missing
//	level, arity, comments or location are left empty. A document whose
//	root is not <modules> yields no symbols.
//
// Errors:
//
//	fault.KindMalformedXML - data is not well-formed XML.
func ParseXML(data []byte) ([]Symbol, error) {
	var doc xmlDocument
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, fault.Wrap(fault.KindMalformedXML, err, "Malformed XMLExporter output: "+err.Error())
	}
	if doc.XMLName.Local != "modules" {
		return []Symbol{}, nil
	}

	symbols := make([]Symbol, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		if s, ok := e.symbol(); ok {
			symbols = append(symbols, s)
		}
	}
	return symbols, nil
}

func (e xmlEntry) symbol() (Symbol, bool) {
	var (
		node *xmlNode
		kind RawKind
	)
	switch {
	case e.Operator != nil:
		node, kind = e.Operator, KindOperator
	case e.Declaration != nil:
		node, kind = e.Declaration, KindDeclaration
	case e.Theorem != nil:
		node, kind = e.Theorem, KindTheorem
	case e.Assumption != nil:
		node, kind = e.Assumption, KindAssumption
	default:
		return Symbol{}, false
	}

	unique := strings.TrimSpace(node.UniqueName)
	if unique == "" {
		return Symbol{}, false
	}
	module, name := splitUniqueName(unique)

	s := Symbol{
		Name:       name,
		Module:     module,
		UniqueName: unique,
		Level:      optionalInt(node.Level),
		Arity:      optionalInt(node.Arity),
		RawKind:    kind,
	}
	if node.PreComments != nil {
		s.Comment = strings.TrimSpace(*node.PreComments)
	}
	if loc := node.Location; loc != nil {
		s.Location = &Location{
			File:  strings.TrimSpace(loc.Filename),
			Start: Position{Line: intOrZero(loc.Line.Begin), Col: intOrZero(loc.Column.Begin)},
			End:   Position{Line: intOrZero(loc.Line.End), Col: intOrZero(loc.Column.End)},
		}
	}
	return s, true
}

func splitUniqueName(unique string) (module, name string) {
	i := strings.IndexByte(unique, '!')
	if i < 0 {
		return "", unique
	}
	return unique[:i], unique[i+1:]
}

func optionalInt(s *string) *int {
	if s == nil {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(*s))
	if err != nil {
		return nil
	}
	return &n
}

func intOrZero(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
