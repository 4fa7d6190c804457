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
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/photoszzt/vscode-tlaplus/services/tla/archive"
	"github.com/photoszzt/vscode-tlaplus/services/tla/fault"
	"github.com/photoszzt/vscode-tlaplus/services/tla/kb"
	"github.com/photoszzt/vscode-tlaplus/services/tla/tlc"
	"github.com/photoszzt/vscode-tlaplus/services/tla/tools"
)

// =============================================================================
// REQUESTS AND RESPONSES
// =============================================================================

// FileRequest names one module, either a path under the working directory
// or a jarfile: URI.
type FileRequest struct {
	File string `json:"file" binding:"required,tlafile"`
}

// SymbolsRequest is the body of POST /v1/symbols.
type SymbolsRequest struct {
	File                   string `json:"file" binding:"required,tlafile"`
	IncludeExtendedModules bool   `json:"includeExtendedModules"`
}

// TLCRequest is the body of POST /v1/tlc/:mode and the first websocket
// message of /v1/tlc/stream. On the POST route the path selects the mode.
// The Java runtime is always taken from server configuration.
type TLCRequest struct {
	File           string   `json:"file" binding:"required,tlafile"`
	Mode           string   `json:"mode" binding:"omitempty,oneof=check smoke explore"`
	CfgFile        string   `json:"cfgFile"`
	BehaviorLength int      `json:"behaviorLength" binding:"min=0"`
	ExtraOpts      []string `json:"extraOpts"`
	ExtraJavaOpts  []string `json:"extraJavaOpts"`
}

func (r TLCRequest) toRequest() (tlc.Request, error) {
	req := tlc.Request{
		File:        r.File,
		CfgFile:     r.CfgFile,
		Depth:       r.BehaviorLength,
		Options:     r.ExtraOpts,
		JavaOptions: r.ExtraJavaOpts,
	}
	if r.Mode != "" {
		m, err := tlc.ParseMode(r.Mode)
		if err != nil {
			return req, fault.Wrap(KindInvalidRequest, err, err.Error())
		}
		req.Mode = m
		if _, _, err := m.Options(req.Depth); err != nil {
			return req, fault.Wrap(KindInvalidRequest, err, err.Error())
		}
	}
	return req, nil
}

// ModulesResponse lists modules per search path.
type ModulesResponse struct {
	SearchPaths []tools.SearchPathModules `json:"searchPaths"`
}

// ArticlesResponse lists the knowledge base.
type ArticlesResponse struct {
	Articles []kb.Article `json:"articles"`
}

// ArticleResponse is one knowledge base article.
type ArticleResponse struct {
	kb.Article
	Content string `json:"content"`
}

var registerValidation sync.Once

// registerValidators adds the "tlafile" rule to gin's validator: a .tla
// path or an archive URI.
func registerValidators() {
	registerValidation.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("tlafile", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return archive.IsURI(s) || strings.HasSuffix(s, ".tla")
		})
	})
}

// =============================================================================
// HANDLERS
// =============================================================================

// Handlers serves the HTTP API over a Backend.
type Handlers struct {
	backend Backend
	logger  *slog.Logger
}

// NewHandlers creates handlers. A nil logger uses slog.Default().
func NewHandlers(backend Backend, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{backend: backend, logger: logger}
}

func (h *Handlers) fail(c *gin.Context, err error) {
	requestID := getOrCreateRequestID(c)
	resp := NewErrorResponse(err, requestID)
	status := StatusFor(resp.Kind)
	if status >= http.StatusInternalServerError {
		h.logger.Warn("Request failed",
			slog.String("request_id", requestID),
			slog.String("kind", resp.Kind.String()),
			slog.String("error", err.Error()),
		)
	}
	c.JSON(status, resp)
}

func (h *Handlers) badRequest(c *gin.Context, err error) {
	h.fail(c, fault.Wrap(KindInvalidRequest, err, "Invalid request: "+err.Error()))
}

// HandleCheck handles POST /v1/check.
//
// Description:
//
//	Parses the module with SANY. A module with syntax errors is a
//	successful request whose result has Success false.
//
// Response: 200 CheckReport.
func (h *Handlers) HandleCheck(c *gin.Context) {
	var req FileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	report, err := h.backend.Check(c.Request.Context(), req.File)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// HandleSymbols handles POST /v1/symbols.
func (h *Handlers) HandleSymbols(c *gin.Context) {
	var req SymbolsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	res, err := h.backend.Symbols(c.Request.Context(), req.File, req.IncludeExtendedModules)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// HandleModules handles GET /v1/modules?fullUri=true.
func (h *Handlers) HandleModules(c *gin.Context) {
	fullURI, err := strconv.ParseBool(c.DefaultQuery("fullUri", "false"))
	if err != nil {
		h.badRequest(c, err)
		return
	}
	paths, err := h.backend.Modules(c.Request.Context(), fullURI)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ModulesResponse{SearchPaths: paths})
}

// HandleTLC handles POST /v1/tlc/:mode. The run is bound to the request
// context; a disconnecting client stops TLC.
func (h *Handlers) HandleTLC(c *gin.Context) {
	var body TLCRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, err)
		return
	}
	body.Mode = c.Param("mode")
	req, err := body.toRequest()
	if err != nil {
		h.fail(c, err)
		return
	}
	res, err := h.backend.RunTLC(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// HandleListArticles handles GET /v1/knowledge.
func (h *Handlers) HandleListArticles(c *gin.Context) {
	articles, err := h.backend.Articles()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ArticlesResponse{Articles: articles})
}

// HandleGetArticle handles GET /v1/knowledge/:name. Accept: text/markdown
// returns the body without front matter as raw markdown.
func (h *Handlers) HandleGetArticle(c *gin.Context) {
	article, content, err := h.backend.Article(c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if c.NegotiateFormat(gin.MIMEJSON, kb.MimeType) == kb.MimeType {
		c.Data(http.StatusOK, kb.MimeType+"; charset=utf-8", []byte(content))
		return
	}
	c.JSON(http.StatusOK, ArticleResponse{Article: article, Content: content})
}

// HandleClearCache handles DELETE /v1/cache.
func (h *Handlers) HandleClearCache(c *gin.Context) {
	if err := h.backend.ClearCache(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleHealth handles GET /v1/health. A missing tools installation
// reports "degraded" with 200 so the knowledge base stays reachable.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, h.backend.Health())
}
