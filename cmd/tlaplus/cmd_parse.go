// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/photoszzt/vscode-tlaplus/services/tla/server"
	"github.com/photoszzt/vscode-tlaplus/services/tla/symbols"
)

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file.tla | jarfile:URI>",
		Short: "Parse a module with SANY and report syntax and semantic errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}

			spin := a.printer.Spinner("Parsing " + args[0])
			spin.Start()
			report, err := svc.Check(cmd.Context(), args[0])
			spin.Stop()
			if err != nil {
				return err
			}

			if a.flags.json {
				if err := a.printer.JSON(report); err != nil {
					return err
				}
			} else {
				a.printCheck(report)
			}
			if !report.Result.Success {
				return &exitError{code: exitFailure}
			}
			return nil
		},
	}
}

func (a *app) printCheck(report *server.CheckReport) {
	res := report.Result
	if res.Success {
		a.printer.Success(report.Text)
	} else {
		for _, line := range strings.Split(report.Text, "\n") {
			a.printer.Error(line)
		}
	}
	for _, w := range res.Warnings {
		a.printer.Warning(fmt.Sprintf("%s:%d:%d: %s", w.File, w.Line, w.Column, w.Message))
	}
}

func (a *app) symbolsCmd() *cobra.Command {
	var extended bool
	cmd := &cobra.Command{
		Use:   "symbols <file.tla | jarfile:URI>",
		Short: "Extract constants, variables and predicates for a TLC configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}

			spin := a.printer.Spinner("Extracting symbols from " + args[0])
			spin.Start()
			res, err := svc.Symbols(cmd.Context(), args[0], extended)
			spin.Stop()
			if err != nil {
				return err
			}

			if a.flags.json {
				return a.printer.JSON(res)
			}
			a.printSymbols(res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&extended, "extended", false, "Include symbols of extended modules")
	return cmd
}

func (a *app) printSymbols(res *symbols.Result) {
	a.printer.Title("Module " + res.RootModule)
	groups := []struct {
		name string
		syms []symbols.OutputSymbol
	}{
		{"Constants", res.Candidates.Constants},
		{"Variables", res.Candidates.Variables},
		{"State predicates", res.Candidates.StatePredicates},
		{"Action predicates", res.Candidates.ActionPredicates},
		{"Temporal formulas", res.Candidates.TemporalFormulas},
		{"Operators with arguments", res.Candidates.OperatorsWithArgs},
		{"Theorems", res.Candidates.Theorems},
		{"Assumptions", res.Candidates.Assumptions},
	}
	for _, g := range groups {
		if len(g.syms) == 0 {
			continue
		}
		a.printer.Muted(g.name)
		for _, s := range g.syms {
			a.printer.Bullet(s.Name)
		}
	}

	bg := res.BestGuess
	a.printer.Muted("Best guess")
	a.printer.KeyValue("init", bestGuessName(bg.Init))
	a.printer.KeyValue("next", bestGuessName(bg.Next))
	a.printer.KeyValue("spec", bestGuessName(bg.Spec))
	for _, inv := range bg.Invariants {
		a.printer.KeyValue("invariant", bestGuessName(&inv))
	}
	for _, prop := range bg.Properties {
		a.printer.KeyValue("property", bestGuessName(&prop))
	}
}

func (a *app) modulesCmd() *cobra.Command {
	var fullURI bool
	cmd := &cobra.Command{
		Use:   "modules",
		Short: "List the modules on every search path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			paths, err := svc.Modules(cmd.Context(), fullURI)
			if err != nil {
				return err
			}
			if a.flags.json {
				return a.printer.JSON(server.ModulesResponse{SearchPaths: paths})
			}
			for _, sp := range paths {
				a.printer.Title(sp.SearchPath)
				for _, m := range sp.Modules {
					a.printer.Bullet(m)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fullURI, "uri", false, "Print modules as full jarfile: URIs")
	return cmd
}

func bestGuessName(p *symbols.Pick) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%s (%s)", p.Name, p.Confidence)
}
