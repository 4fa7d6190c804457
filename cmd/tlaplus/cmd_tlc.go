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

	"github.com/spf13/cobra"

	"github.com/photoszzt/vscode-tlaplus/services/tla/tlc"
)

// tlcFlags are shared by the tlc subcommands.
type tlcFlags struct {
	cfgFile     string
	options     []string
	javaOptions []string
	length      int
}

func (a *app) tlcCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tlc",
		Short: "Run the TLC model checker",
		Long: `Run TLC on a module. X.tla uses X.cfg when it exists, otherwise
MCX.tla with MCX.cfg from the same directory. Output is printed as it
arrives; the command exits with TLC's exit code.`,
	}
	cmd.AddCommand(
		a.tlcModeCmd(tlc.ModeCheck, "Exhaustively check the model"),
		a.tlcModeCmd(tlc.ModeSmoke, "Run a short random simulation"),
		a.tlcModeCmd(tlc.ModeExplore, "Simulate behaviors of a fixed length"),
	)
	return cmd
}

func (a *app) tlcModeCmd(mode tlc.Mode, short string) *cobra.Command {
	var f tlcFlags
	cmd := &cobra.Command{
		Use:   string(mode) + " <file.tla>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := mode.Options(f.length); err != nil {
				return err
			}
			req := tlc.Request{
				File:        args[0],
				Mode:        mode,
				CfgFile:     f.cfgFile,
				Depth:       f.length,
				Options:     f.options,
				JavaOptions: f.javaOptions,
			}
			return a.runTLC(cmd, req)
		},
	}
	cmd.Flags().StringVar(&f.cfgFile, "cfg", "", "Configuration file to use instead of the discovered one")
	cmd.Flags().StringArrayVar(&f.options, "opt", nil, "Extra TLC option (repeatable)")
	cmd.Flags().StringArrayVar(&f.javaOptions, "java-opt", nil, "Extra JVM option (repeatable)")
	if mode == tlc.ModeExplore {
		cmd.Flags().IntVar(&f.length, "length", 0, "Behavior length to explore")
		_ = cmd.MarkFlagRequired("length")
	}
	return cmd
}

func (a *app) runTLC(cmd *cobra.Command, req tlc.Request) error {
	svc, err := a.service()
	if err != nil {
		return err
	}

	var code int
	if a.flags.json {
		res, err := svc.RunTLC(cmd.Context(), req)
		if err != nil {
			return err
		}
		if err := a.printer.JSON(res); err != nil {
			return err
		}
		code = res.ExitCode
	} else {
		files, exit, err := svc.StreamTLC(cmd.Context(), req, a.printer.Line)
		if err != nil {
			return err
		}
		code = exit
		a.printer.Muted(fmt.Sprintf("%s (%s, %s) completed with exit code %d.",
			req.Mode.Title(), files.TLAFile, files.CfgFile, code))
	}

	if code != 0 {
		return &exitError{code: code}
	}
	return nil
}
