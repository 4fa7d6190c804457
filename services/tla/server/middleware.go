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
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/photoszzt/vscode-tlaplus/services/tla/fault"
)

const (
	headerRequestID = "X-Request-ID"
	ctxRequestID    = "request_id"
)

// getOrCreateRequestID returns the caller's X-Request-ID or a new one and
// echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	if id, ok := c.Get(ctxRequestID); ok {
		return id.(string)
	}
	requestID := c.GetHeader(headerRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header(headerRequestID, requestID)
	c.Set(ctxRequestID, requestID)
	return requestID
}

// requestLogger logs one line per request at debug level, or warn for
// server errors.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := getOrCreateRequestID(c)
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelDebug
		if status >= 500 {
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "HTTP request",
			slog.String("request_id", requestID),
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		)
	}
}

// rateLimit rejects requests beyond the token bucket with 429. Every
// request spawns a JVM, so the limit is global rather than per client.
func rateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter.Allow() {
			c.Next()
			return
		}
		err := fault.New(KindRateLimited, "Too many requests; retry shortly")
		c.AbortWithStatusJSON(StatusFor(KindRateLimited), NewErrorResponse(err, getOrCreateRequestID(c)))
	}
}
