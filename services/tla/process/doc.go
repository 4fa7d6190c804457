// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package process launches the Java based TLA+ tools as subprocesses.
//
// A Runner locates a Java runtime, builds the JVM option vector, starts
// the process (retrying only the spawn itself) and returns a Handle. The
// Handle owns the process: it exposes one merged output stream, enforces
// the optional timeout, and offers Cancel with the same termination
// semantics as a timeout.
//
// # Java Lookup
//
//  1. Explicit home override: <home>/bin/java[.exe]. Missing is permanent.
//  2. Environment homes: JAVA_HOME, JDK_HOME, JAVA_HOME_{21,17,11}_ARM64,
//     JAVA_HOME_{21,17,11,8}_X64. ARM64 variants are tried first on
//     darwin/arm64. Duplicates are skipped.
//  3. The bare "java" command resolved through PATH.
//
// # Option Merging
//
//	caller options  →  -cp merge  →  default GC flag  →  main class  →  args
//
// A caller classpath that already references tla2tools.jar by name is left
// untouched. -XX:+UseParallelGC is added unless any -XX:+Use...GC flag is
// present.
//
// # Termination
//
//	| Platform | Timeout / Cancel                                        |
//	|----------|---------------------------------------------------------|
//	| windows  | taskkill /pid N /T /F, falling back to Process.Kill     |
//	| others   | SIGTERM to the process group, SIGKILL after a grace     |
//
// # Resource Ownership
//
// Callers must either drain Output until EOF and then call Wait, or call
// Close. Close is idempotent and safe on every exit path:
//
//	h, err := runner.Run(ctx, spec)
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
package process
