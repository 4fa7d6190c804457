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
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/photoszzt/vscode-tlaplus/services/tla/server"
	"github.com/photoszzt/vscode-tlaplus/services/tla/telemetry"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the TLA+ tools over HTTP",
		Long: `Serve the HTTP API under /v1 and Prometheus metrics on /metrics.
The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			if a.flags.verbose {
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}

			ctx := cmd.Context()
			shutdown, err := telemetry.Init(ctx, a.cfg.Telemetry)
			if err != nil {
				return err
			}
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(sctx); err != nil {
					a.logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
				}
			}()

			svc, err := a.service()
			if err != nil {
				return err
			}
			return server.ListenAndServe(ctx, a.cfg.Server.Addr, svc, a.logger.Slog())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from configuration, 127.0.0.1:3000)")
	return cmd
}
