// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command tlaplus runs the TLA+ tools (SANY, the XML exporter and TLC)
// and serves their results to editors.
//
// Usage:
//
//	tlaplus check Spec.tla
//	tlaplus symbols Spec.tla --extended --json
//	tlaplus modules --uri
//	tlaplus tlc check Spec.tla --opt -workers --opt 4
//	tlaplus tlc explore Spec.tla --length 10
//	tlaplus kb list
//	tlaplus kb show tlaplus_basics.md
//	tlaplus cache clear
//	tlaplus serve --addr 127.0.0.1:3000
//
// Every command reads configuration from --config or TLAPLUS_CONFIG, then
// TLAPLUS_* environment variables, then flags.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
