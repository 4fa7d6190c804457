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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoszzt/vscode-tlaplus/services/tla/fault"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<modules>
  <RootModule>Counter</RootModule>
  <context>
    <entry>
      <UID>1</UID>
      <OpDeclNode>
        <location>
          <column><begin>11</begin><end>13</end></column>
          <line><begin>3</begin><end>3</end></line>
          <filename>Counter</filename>
        </location>
        <uniquename>Counter!Max</uniquename>
        <arity>0</arity>
        <kind>2</kind>
        <level>0</level>
      </OpDeclNode>
    </entry>
    <entry>
      <UID>2</UID>
      <OpDeclNode>
        <uniquename>Counter!x</uniquename>
        <arity>0</arity>
        <level>1</level>
      </OpDeclNode>
    </entry>
    <entry>
      <UID>3</UID>
      <UserDefinedOpKind>
        <location>
          <column><begin>1</begin><end>10</end></column>
          <line><begin>5</begin><end>5</end></line>
          <filename>Counter</filename>
        </location>
        <pre-comments>
          \* start at zero
        </pre-comments>
        <level>1</level>
        <uniquename>Counter!Init</uniquename>
        <arity>0</arity>
        <body><OpApplNode><level>1</level><uniquename>ignored</uniquename></OpApplNode></body>
      </UserDefinedOpKind>
    </entry>
    <entry>
      <UID>4</UID>
      <UserDefinedOpKind>
        <level>0</level>
        <uniquename>Naturals!+</uniquename>
        <arity>2</arity>
      </UserDefinedOpKind>
    </entry>
    <entry>
      <UID>5</UID>
      <TheoremDefNode>
        <uniquename>Counter!Safe</uniquename>
      </TheoremDefNode>
    </entry>
    <entry>
      <UID>6</UID>
      <AssumeDef>
        <uniquename>Counter!MaxPositive</uniquename>
        <level>0</level>
      </AssumeDef>
    </entry>
    <entry>
      <UID>7</UID>
      <FormalParamNode>
        <uniquename>Counter!p</uniquename>
      </FormalParamNode>
    </entry>
    <entry>
      <UID>8</UID>
      <UserDefinedOpKind>
        <level>2</level>
      </UserDefinedOpKind>
    </entry>
  </context>
</modules>`

func TestParseXML(t *testing.T) {
	syms, err := ParseXML([]byte(sampleXML))
	require.NoError(t, err)
	require.Len(t, syms, 6)

	assert.Equal(t, "Max", syms[0].Name)
	assert.Equal(t, "Counter", syms[0].Module)
	assert.Equal(t, KindDeclaration, syms[0].RawKind)
	require.NotNil(t, syms[0].Level)
	assert.Equal(t, 0, *syms[0].Level)
	assert.Equal(t, &Location{File: "Counter", Start: Position{3, 11}, End: Position{3, 13}}, syms[0].Location)

	assert.Nil(t, syms[1].Location)

	initSym := syms[2]
	assert.Equal(t, "Init", initSym.Name)
	assert.Equal(t, "Counter!Init", initSym.UniqueName)
	assert.Equal(t, `\* start at zero`, initSym.Comment)
	require.NotNil(t, initSym.Level)
	assert.Equal(t, 1, *initSym.Level, "nested body levels must not leak")

	assert.Equal(t, "Naturals", syms[3].Module)
	assert.Equal(t, "+", syms[3].Name)
	require.NotNil(t, syms[3].Arity)
	assert.Equal(t, 2, *syms[3].Arity)

	assert.Equal(t, KindTheorem, syms[4].RawKind)
	assert.Nil(t, syms[4].Level)
	assert.Nil(t, syms[4].Arity)
	assert.Equal(t, KindAssumption, syms[5].RawKind)
}

func TestParseXML_NoModuleSeparator(t *testing.T) {
	syms, err := ParseXML([]byte(`<modules><context><entry><UserDefinedOpKind><uniquename>Lonely</uniquename><level>x</level></UserDefinedOpKind></entry></context></modules>`))
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "", syms[0].Module)
	assert.Equal(t, "Lonely", syms[0].Name)
	assert.Nil(t, syms[0].Level, "unparsable level is treated as absent")
}

func TestParseXML_Empty(t *testing.T) {
	for name, doc := range map[string]string{
		"other root": `<something/>`,
		"no context": `<modules><RootModule>A</RootModule></modules>`,
		"no entries": `<modules><context></context></modules>`,
	} {
		t.Run(name, func(t *testing.T) {
			syms, err := ParseXML([]byte(doc))
			require.NoError(t, err)
			assert.Empty(t, syms)
		})
	}
}

func TestParseXML_Malformed(t *testing.T) {
	_, err := ParseXML([]byte(`<modules><context><entry>`))
	require.Error(t, err)
	assert.Equal(t, fault.KindMalformedXML, fault.Classify(err))
}
