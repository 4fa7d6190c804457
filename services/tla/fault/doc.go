// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fault classifies failures of the TLA+ tool adapter and retries
// the transient ones.
//
// Every failure that leaves the adapter carries exactly one Kind from a
// closed set. Callers use the kind to decide presentation (status codes,
// remediation hints) without parsing messages.
//
// # Classification Order
//
// Classify prefers the most specific signal available:
//
//  1. An existing *Error anywhere in the wrap chain.
//  2. Operating system error codes (ENOENT, EACCES/EPERM, EBUSY).
//  3. Message substrings produced by the adapter itself.
//  4. KindIOError as the generic fallback.
//
// # Retryability
//
//	| Kind                   | Retryable |
//	|------------------------|-----------|
//	| JAVA_SPAWN_FAILED      | yes       |
//	| PROCESS_SPAWN_FAILED   | yes       |
//	| FILE_BUSY              | yes       |
//	| FILE_IO_ERROR          | yes       |
//	| JAR_LOCKED             | yes       |
//	| JAR_EXTRACTION_FAILED  | yes       |
//	| everything else        | no        |
//
// # Usage
//
//	pid, err := fault.Do(ctx, fault.DefaultPolicy(), func(ctx context.Context, attempt int) (int, error) {
//	    return spawn(ctx)
//	})
//	if err != nil {
//	    var fe *fault.Error
//	    if errors.As(err, &fe) && fe.RetriesExhausted {
//	        // transient failure that never cleared
//	    }
//	}
//
// # Thread Safety
//
// All functions are safe for concurrent use. *Error values are immutable
// after construction.
package fault
