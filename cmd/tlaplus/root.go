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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/photoszzt/vscode-tlaplus/pkg/logging"
	"github.com/photoszzt/vscode-tlaplus/pkg/ux"
	"github.com/photoszzt/vscode-tlaplus/services/tla/config"
	"github.com/photoszzt/vscode-tlaplus/services/tla/fault"
	"github.com/photoszzt/vscode-tlaplus/services/tla/server"
)

// Process exit codes. A failing TLC run exits with TLC's own code.
const (
	exitOK      = 0
	exitFailure = 1
)

// exitError ends the process with code after the command has already
// reported the outcome.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// globalFlags are the persistent flags of the root command.
type globalFlags struct {
	configPath string
	toolsDir   string
	javaHome   string
	workingDir string
	kbDir      string
	cacheDir   string
	verbose    bool
	json       bool
}

// app holds per-invocation state shared by the commands.
type app struct {
	flags  globalFlags
	out    io.Writer
	errOut io.Writer

	cfg     *config.Config
	logger  *logging.Logger
	printer *ux.Printer
	svc     *server.Service
}

func newApp(out, errOut io.Writer) *app {
	return &app{out: out, errOut: errOut}
}

// run executes one command line and returns the process exit code.
func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	a := newApp(out, errOut)
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	a.close()
	if err == nil {
		return exitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	a.reportError(err)
	return exitFailure
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tlaplus",
		Short: "Run the TLA+ tools and serve their results",
		Long: `tlaplus drives SANY, the XML exporter and TLC from the TLA+ tools
archive. It parses modules, extracts symbols for model configuration,
runs the model checker and serves the TLA+ knowledge base.`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	f := root.PersistentFlags()
	f.StringVar(&a.flags.configPath, "config", "", "Configuration file (default $TLAPLUS_CONFIG)")
	f.StringVar(&a.flags.toolsDir, "tools-dir", "", "Directory containing tla2tools.jar and CommunityModules-deps.jar")
	f.StringVar(&a.flags.javaHome, "java-home", "", "Java installation to use instead of JAVA_HOME")
	f.StringVar(&a.flags.workingDir, "working-dir", "", "Confine file arguments to this directory")
	f.StringVar(&a.flags.kbDir, "kb-dir", "", "Knowledge base directory")
	f.StringVar(&a.flags.cacheDir, "cache-dir", "", "Cache directory for extracted archive modules")
	f.BoolVarP(&a.flags.verbose, "verbose", "v", false, "Enable debug logging")
	f.BoolVar(&a.flags.json, "json", false, "Print results as JSON")

	root.AddCommand(
		a.checkCmd(),
		a.symbolsCmd(),
		a.modulesCmd(),
		a.tlcCmd(),
		a.kbCmd(),
		a.cacheCmd(),
		a.serveCmd(),
	)
	return root
}

// setup loads configuration and builds the logger and printer.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}
	cfg.Apply(config.Overrides{
		ToolsDir:   a.flags.toolsDir,
		JavaHome:   a.flags.javaHome,
		WorkingDir: a.flags.workingDir,
		KBDir:      a.flags.kbDir,
		CacheDir:   a.flags.cacheDir,
		Verbose:    a.flags.verbose,
	})
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	a.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "tlaplus",
		JSON:    cfg.Logging.JSON,
		Output:  a.errOut,
	})
	slog.SetDefault(a.logger.Slog())

	a.printer = ux.NewPrinter(a.out, a.errOut, a.personality())
	a.logger.Debug("Configuration loaded",
		slog.String("command", cmd.CommandPath()),
		slog.String("source", cfg.Source),
	)
	return nil
}

func (a *app) personality() ux.PersonalityLevel {
	if a.flags.json {
		return ux.PersonalityMachine
	}
	if f, ok := a.out.(*os.File); ok {
		return ux.DetectPersonality(f)
	}
	return ux.PersonalityMachine
}

// service builds the Service on first use.
func (a *app) service() (*server.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	svc, err := server.NewService(a.cfg, a.logger.Slog())
	if err != nil {
		return nil, err
	}
	a.svc = svc
	return svc, nil
}

func (a *app) close() {
	if a.svc != nil {
		if err := a.svc.Close(); err != nil && a.logger != nil {
			a.logger.Warn("Failed to close service", slog.String("error", err.Error()))
		}
	}
	if a.logger != nil {
		_ = a.logger.Close()
	}
}

// reportError prints err with its suggestions. Taxonomy errors carry
// remediation hints; anything else prints as is.
func (a *app) reportError(err error) {
	p := a.printer
	if p == nil {
		p = ux.NewPrinter(a.out, a.errOut, ux.PersonalityMachine)
	}
	if a.flags.json {
		_ = p.JSON(server.NewErrorResponse(err, ""))
		return
	}
	var fe *fault.Error
	if errors.As(err, &fe) {
		p.Error(fault.Format(err, a.flags.verbose))
		return
	}
	p.Error(err.Error())
}
