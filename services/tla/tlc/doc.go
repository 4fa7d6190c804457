// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tlc runs the TLC model checker.
//
// # Modes
//
//	| Mode    | TLC options                        | JVM options                |
//	|---------|------------------------------------|----------------------------|
//	| check   | -cleanup -modelcheck               |                            |
//	| smoke   | -cleanup -simulate                 | -Dtlc2.TLC.stopAfter=3     |
//	| explore | -cleanup -simulate -invlevel N     | -Dtlc2.TLC.stopAfter=3     |
//
// The command line is
//
//	tlc2.TLC <module> -tool -modelcheck -config <cfg> <mode options> <extra options>
//
// run in the module's directory. Tool-mode message markers are removed
// from the output by CleanLine.
package tlc
