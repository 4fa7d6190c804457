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
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoszzt/vscode-tlaplus/services/tla/fault"
)

func dialStream(t *testing.T, backend Backend) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(setupTestRouter(backend))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/tlc/stream"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	return ws
}

func readFrames(t *testing.T, ws *websocket.Conn) []StreamMessage {
	t.Helper()
	var frames []StreamMessage
	for {
		var msg StreamMessage
		if err := ws.ReadJSON(&msg); err != nil {
			return frames
		}
		frames = append(frames, msg)
		if msg.Type == StreamExit || msg.Type == StreamError {
			return frames
		}
	}
}

func TestHandleTLCStream(t *testing.T) {
	backend := &fakeBackend{lines: []string{"Starting...", "Finished."}}
	ws := dialStream(t, backend)

	require.NoError(t, ws.WriteJSON(TLCRequest{File: "/ws/Spec.tla", Mode: "smoke"}))
	frames := readFrames(t, ws)

	require.Len(t, frames, 4)
	assert.Equal(t, StreamStart, frames[0].Type)
	assert.Equal(t, "Starting...", frames[1].Line)
	assert.Equal(t, "Finished.", frames[2].Line)

	exit := frames[3]
	assert.Equal(t, StreamExit, exit.Type)
	require.NotNil(t, exit.ExitCode)
	assert.Equal(t, 12, *exit.ExitCode)
	require.NotNil(t, exit.Files)
	assert.Equal(t, "/ws/Spec.cfg", exit.Files.CfgFile)
}

func TestHandleTLCStream_InvalidRequest(t *testing.T) {
	ws := dialStream(t, &fakeBackend{})

	require.NoError(t, ws.WriteJSON(TLCRequest{File: "Spec.txt"}))
	frames := readFrames(t, ws)

	require.Len(t, frames, 1)
	assert.Equal(t, StreamError, frames[0].Type)
	require.NotNil(t, frames[0].Error)
	assert.Equal(t, KindInvalidRequest, frames[0].Error.Kind)
}

func TestHandleTLCStream_BackendError(t *testing.T) {
	ws := dialStream(t, &fakeBackend{err: fault.New(fault.KindJavaNotFound, "no java")})

	require.NoError(t, ws.WriteJSON(TLCRequest{File: "Spec.tla"}))
	frames := readFrames(t, ws)

	require.Len(t, frames, 2)
	assert.Equal(t, StreamStart, frames[0].Type)
	assert.Equal(t, StreamError, frames[1].Type)
	assert.Equal(t, fault.KindJavaNotFound, frames[1].Error.Kind)
	assert.Equal(t, "no java", frames[1].Error.Message)
}
