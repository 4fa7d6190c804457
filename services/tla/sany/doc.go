// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sany runs the SANY parser and turns its free-form output into
// diagnostics.
//
// # Output Markers
//
//	| Line                                    | Effect                            |
//	|-----------------------------------------|-----------------------------------|
//	| Parsing file <path>                     | current file                      |
//	| *** Errors:                             | error block                       |
//	| ***Parse Error*** / Fatal errors ...    | error block, line starts message  |
//	| *** Warnings:                           | warning block                     |
//	| *** Abort messages:                     | error block                       |
//	| Residual stack trace follows:           | leave block, discard until marker |
//	| Lexical error at line L, column C. msg  | error, committed immediately      |
//	| SANY finished.                          | flush pending message, stop       |
//
// Inside a block "line L, col C to line L2, col C2 of module M" and
// "... at line L, col C ..." set the location. A message that never gets a
// location is reported at line 1, column 1 rather than dropped.
//
// # Example
//
//	Parsing file /x/M.tla
//	  Lexical error at line 5, column 3. Unexpected token
//	SANY finished.
//
// yields one error {/x/M.tla 5 3 "Unexpected token"}.
package sany
