// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package server wires the TLA+ components into one Service and exposes it
// over HTTP.
//
// # Service
//
// Service is the composition root shared by the CLI and the HTTP API. It
// owns the process runner, the archive store with its persistent index,
// the located tools and the knowledge base catalog. Plain file arguments
// are confined to the configured working directory; jarfile: URIs are
// resolved through the archive store.
//
// # HTTP API
//
//	POST   /v1/check            {file}
//	POST   /v1/symbols          {file, includeExtendedModules}
//	GET    /v1/modules          ?fullUri=true
//	POST   /v1/tlc/:mode        {file, cfgFile, behaviorLength, extraOpts, extraJavaOpts}
//	GET    /v1/tlc/stream       websocket
//	GET    /v1/knowledge
//	GET    /v1/knowledge/:name
//	DELETE /v1/cache
//	GET    /v1/health
//	GET    /metrics
//
// Failures use ErrorResponse with a status derived from the error kind:
//
//	| Kind                                        | Status |
//	|---------------------------------------------|--------|
//	| FILE_NOT_FOUND, JAR_ENTRY_NOT_FOUND         | 404    |
//	| FILE_PATH_TRAVERSAL, FILE_ACCESS_DENIED     | 403    |
//	| JAR_INVALID_URI, INVALID_REQUEST            | 400    |
//	| RATE_LIMITED                                | 429    |
//	| JAVA_TIMEOUT, PROCESS_TIMEOUT               | 504    |
//	| CONFIG_TOOLS_NOT_FOUND, JAVA_NOT_FOUND,     | 503    |
//	| CONFIG_INVALID_PATH                         |        |
//	| anything else                               | 500    |
package server
