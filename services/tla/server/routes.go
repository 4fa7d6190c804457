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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/photoszzt/vscode-tlaplus/services/tla/config"
	"github.com/photoszzt/vscode-tlaplus/services/tla/telemetry"
)

// RegisterRoutes registers the API endpoints.
//
// Description:
//
//	Registers all endpoints on the given group, typically /v1. The group
//	should already carry any middleware.
//
// Endpoints:
//
//	POST   /v1/check            - Parse a module with SANY
//	POST   /v1/symbols          - Extract symbol candidates
//	GET    /v1/modules          - List modules on the search paths
//	POST   /v1/tlc/:mode        - Run TLC (check, smoke, explore) to completion
//	GET    /v1/tlc/stream       - Run TLC over a websocket
//	GET    /v1/knowledge        - List knowledge base articles
//	GET    /v1/knowledge/:name  - Read one article
//	DELETE /v1/cache            - Clear extracted archive content
//	GET    /v1/health           - Service state
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	registerValidators()

	rg.POST("/check", h.HandleCheck)
	rg.POST("/symbols", h.HandleSymbols)
	rg.GET("/modules", h.HandleModules)
	rg.POST("/tlc/:mode", h.HandleTLC)
	rg.GET("/tlc/stream", h.HandleTLCStream)
	rg.GET("/knowledge", h.HandleListArticles)
	rg.GET("/knowledge/:name", h.HandleGetArticle)
	rg.DELETE("/cache", h.HandleClearCache)
	rg.GET("/health", h.HandleHealth)
}

// NewRouter builds the complete engine: recovery, tracing, request logging
// and the rate limit, the API under /v1 and Prometheus metrics on
// /metrics.
func NewRouter(backend Backend, cfg config.ServerConfig, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("tlaplus"))
	router.Use(requestLogger(logger))

	metrics := telemetry.MetricsHandler()
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	router.GET("/metrics", gin.WrapH(metrics))

	v1 := router.Group("/v1")
	v1.Use(rateLimit(rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst)))
	RegisterRoutes(v1, NewHandlers(backend, logger))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Kind:      KindInvalidRequest,
			Message:   "No route for " + c.Request.Method + " " + c.Request.URL.Path,
			RequestID: getOrCreateRequestID(c),
		})
	})
	return router
}
