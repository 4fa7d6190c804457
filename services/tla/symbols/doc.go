// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package symbols extracts the symbols of a TLA+ module and guesses which
// of them a TLC configuration needs.
//
// # Pipeline
//
//	Exporter (XMLExporter -o -u [-r])  →  ParseXML  →  Group  →  BestGuess
//
// # Scoring
//
// score = module penalty + name penalty, lowest wins, ties by name.
//
//	| Module tier | Penalty |   | Name match             | Penalty |
//	|-------------|---------|---|------------------------|---------|
//	| root        | 0       |   | exact                  | 0       |
//	| extended    | 20      |   | case_insensitive_exact | 1       |
//	| stdlib      | 200     |   | prefix                 | 5       |
//	|             |         |   | contains               | 10      |
//	|             |         |   | fallback               | 100     |
//
// The weights and patterns live in Scoring; DefaultScoring holds the
// values above.
package symbols
