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
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/gorilla/websocket"

	"github.com/photoszzt/vscode-tlaplus/services/tla/fault"
	"github.com/photoszzt/vscode-tlaplus/services/tla/tlc"
)

// Stream message types, in the order a client sees them.
const (
	StreamStart = "start"
	StreamLine  = "line"
	StreamExit  = "exit"
	StreamError = "error"
)

const streamWriteTimeout = 10 * time.Second

// StreamMessage is one server-to-client websocket frame.
type StreamMessage struct {
	Type     string         `json:"type"`
	Files    *tlc.SpecFiles `json:"files,omitempty"`
	Line     string         `json:"line,omitempty"`
	ExitCode *int           `json:"exitCode,omitempty"`
	Error    *ErrorResponse `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 64 * 1024,
	// The API binds to loopback; editors connect from webview origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func sendJSON(ws *websocket.Conn, v any) error {
	_ = ws.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	err := ws.WriteJSON(v)
	if err != nil {
		slog.Warn("Failed to write WebSocket JSON", slog.String("error", err.Error()))
	}
	return err
}

// HandleTLCStream handles GET /v1/tlc/stream.
//
// Description:
//
//	Upgrades to a websocket. The client sends one TLCRequest; the server
//	answers with a "start" frame, a "line" frame per cleaned TLC output
//	line, then exactly one "exit" frame carrying the resolved files or one
//	"error" frame, and closes. Closing the socket early stops TLC.
func (h *Handlers) HandleTLCStream(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade the websocket",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return
	}
	defer ws.Close()
	logger := h.logger.With(slog.String("request_id", requestID))

	sendErr := func(err error) {
		resp := NewErrorResponse(err, requestID)
		_ = sendJSON(ws, StreamMessage{Type: StreamError, Error: &resp})
	}

	var body TLCRequest
	if err := ws.ReadJSON(&body); err != nil {
		sendErr(fault.Wrap(KindInvalidRequest, err, "Invalid request: "+err.Error()))
		return
	}
	if err := binding.Validator.ValidateStruct(&body); err != nil {
		sendErr(fault.Wrap(KindInvalidRequest, err, "Invalid request: "+err.Error()))
		return
	}
	req, err := body.toRequest()
	if err != nil {
		sendErr(err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Later client messages are ignored; a read error means the client
	// went away.
	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	logger.Info("TLC stream started", slog.String("file", req.File), slog.String("mode", string(req.Mode)))
	if err := sendJSON(ws, StreamMessage{Type: StreamStart}); err != nil {
		return
	}
	files, code, err := h.backend.StreamTLC(ctx, req, func(line string) {
		if err := sendJSON(ws, StreamMessage{Type: StreamLine, Line: line}); err != nil {
			cancel()
		}
	})
	if err != nil {
		sendErr(err)
		return
	}
	_ = sendJSON(ws, StreamMessage{Type: StreamExit, Files: files, ExitCode: &code})
	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	logger.Info("TLC stream finished", slog.Int("exit_code", code))
}
