// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux renders human-facing CLI output.
//
// Results go to the Printer's stdout writer, notices to its stderr writer.
// PersonalityMachine drops styling so output can be piped into other
// tools.
package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorTealDeep    = lipgloss.Color("#16858E")
	ColorSlate       = lipgloss.Color("#2C4A54")

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title     lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style
	Box       lipgloss.Style
	ErrorBox  lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorTealPrimary).Bold(true),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 1),
}

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconBullet  Icon = "•"
)

func (i Icon) style() lipgloss.Style {
	switch i {
	case IconSuccess:
		return Styles.Success
	case IconWarning:
		return Styles.Warning
	case IconError:
		return Styles.Error
	default:
		return Styles.Muted
	}
}

// =============================================================================
// PRINTER
// =============================================================================

// Printer writes styled output for one personality level.
//
// Thread Safety: Not safe for concurrent use.
type Printer struct {
	out   io.Writer
	err   io.Writer
	level PersonalityLevel
}

// NewPrinter creates a Printer. nil writers default to os.Stdout and
// os.Stderr.
func NewPrinter(out, errOut io.Writer, level PersonalityLevel) *Printer {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &Printer{out: out, err: errOut, level: level}
}

// Level returns the personality level.
func (p *Printer) Level() PersonalityLevel {
	return p.level
}

// Out returns the result writer.
func (p *Printer) Out() io.Writer {
	return p.out
}

func (p *Printer) styled(s lipgloss.Style, text string) string {
	if p.level != PersonalityStandard {
		return text
	}
	return s.Render(text)
}

func (p *Printer) icon(i Icon) string {
	return p.styled(i.style(), string(i))
}

// JSON writes v as indented JSON to stdout.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Title prints a heading. Machine output omits it.
func (p *Printer) Title(text string) {
	if p.level == PersonalityMachine {
		return
	}
	fmt.Fprintln(p.out, p.styled(Styles.Title, text))
}

// Line prints text unchanged.
func (p *Printer) Line(text string) {
	fmt.Fprintln(p.out, text)
}

// Success prints a success line.
func (p *Printer) Success(text string) {
	if p.level == PersonalityMachine {
		fmt.Fprintf(p.out, "OK: %s\n", text)
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", p.icon(IconSuccess), p.styled(Styles.Success, text))
}

// Warning prints a warning line on stderr.
func (p *Printer) Warning(text string) {
	if p.level == PersonalityMachine {
		fmt.Fprintf(p.err, "WARN: %s\n", text)
		return
	}
	fmt.Fprintf(p.err, "%s %s\n", p.icon(IconWarning), p.styled(Styles.Warning, text))
}

// Error prints an error on stderr. Standard output frames multi-line
// messages in a box.
func (p *Printer) Error(text string) {
	switch {
	case p.level == PersonalityMachine:
		fmt.Fprintf(p.err, "ERROR: %s\n", text)
	case p.level == PersonalityStandard && strings.Contains(text, "\n"):
		fmt.Fprintln(p.err, Styles.ErrorBox.Render(text))
	default:
		fmt.Fprintf(p.err, "%s %s\n", p.icon(IconError), p.styled(Styles.Error, text))
	}
}

// Muted prints secondary text. Machine output omits it.
func (p *Printer) Muted(text string) {
	if p.level == PersonalityMachine {
		return
	}
	fmt.Fprintln(p.out, p.styled(Styles.Muted, text))
}

// Bullet prints an indented list item.
func (p *Printer) Bullet(text string) {
	if p.level == PersonalityMachine {
		fmt.Fprintln(p.out, text)
		return
	}
	fmt.Fprintf(p.out, "  %s %s\n", p.icon(IconBullet), text)
}

// KeyValue prints an aligned "key: value" pair.
func (p *Printer) KeyValue(key, value string) {
	if p.level == PersonalityMachine {
		fmt.Fprintf(p.out, "%s\t%s\n", key, value)
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", p.styled(Styles.Bold, fmt.Sprintf("%-14s", key+":")), value)
}

// Box prints content under a title inside a rounded border.
func (p *Printer) Box(title, content string) {
	if p.level != PersonalityStandard {
		fmt.Fprintf(p.out, "%s\n%s\n", title, content)
		return
	}
	fmt.Fprintln(p.out, Styles.Box.Render(Styles.Title.Render(title)+"\n"+content))
}
