// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// ShutdownTimeout bounds how long in-flight requests get after the
// context is cancelled.
const ShutdownTimeout = 10 * time.Second

// Serve runs the HTTP API on ln until ctx is cancelled, then shuts down
// gracefully. Background watchers run for the lifetime of the server.
func Serve(ctx context.Context, ln net.Listener, svc *Service, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &http.Server{
		Handler:           NewRouter(svc, svc.Config().Server, logger),
		ReadHeaderTimeout: 10 * time.Second,
			}

	g, gctx := errgroup.WithContext(ctx)
	if err := svc.Watch(gctx); err != nil {
		logger.Warn("File watching unavailable", slog.String("error", err.Error()))
	}
	g.Go(func() error {
		logger.Info("Starting TLA+ API server", slog.String("address", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down TLA+ API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// ListenAndServe listens on addr and calls Serve.
func ListenAndServe(ctx context.Context, addr string, svc *Service, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, svc, logger)
}
