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
	"net/http"

	"github.com/photoszzt/vscode-tlaplus/services/tla/fault"
)

// Kinds that only exist at the HTTP boundary.
const (
	KindInvalidRequest fault.Kind = "INVALID_REQUEST"
	KindRateLimited    fault.Kind = "RATE_LIMITED"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Kind             fault.Kind `json:"kind"`
	Message          string     `json:"message"`
	RetryAttempt     int        `json:"retryAttempt,omitempty"`
	RetriesExhausted bool       `json:"retriesExhausted,omitempty"`
	Suggestions      []string   `json:"suggestions,omitempty"`
	RequestID        string     `json:"requestId,omitempty"`
}

// NewErrorResponse converts err into a response body.
func NewErrorResponse(err error, requestID string) ErrorResponse {
	fe := fault.Enhance(err, nil)
	return ErrorResponse{
		Kind:             fe.Kind,
		Message:          fe.Error(),
		RetryAttempt:     fe.Attempt,
		RetriesExhausted: fe.RetriesExhausted,
		Suggestions:      fault.Suggestions(fe.Kind),
		RequestID:        requestID,
	}
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(k fault.Kind) int {
	switch k {
	case fault.KindFileNotFound, fault.KindEntryNotFound:
		return http.StatusNotFound
	case fault.KindPathTraversal, fault.KindAccessDenied:
		return http.StatusForbidden
	case fault.KindInvalidURI, KindInvalidRequest:
		return http.StatusBadRequest
	case fault.KindJavaTimeout, fault.KindProcessTimeout:
		return http.StatusGatewayTimeout
	case fault.KindToolsNotFound, fault.KindJavaNotFound, fault.KindInvalidConfigPath:
		return http.StatusServiceUnavailable
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
