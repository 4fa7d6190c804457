// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry installs the OpenTelemetry providers for the TLA+
// tools adapter.
//
// Each component package declares its own tracer and meter through
// otel.Tracer and otel.Meter; Init only decides where the data goes.
//
// # Exporters
//
//	| Signal  | Values                   | Default    |
//	|---------|--------------------------|------------|
//	| traces  | otlp, stdout, none       | none       |
//	| metrics | prometheus, stdout, none | prometheus |
//
// stdout exporters write to stderr so that command output on stdout stays
// machine readable.
//
// # Usage
//
//	shutdown, err := telemetry.Init(ctx, cfg.Telemetry)
//	if err != nil {
//	    return fmt.Errorf("init telemetry: %w", err)
//	}
//	defer shutdown(context.Background())
//
//	router.GET("/metrics", gin.WrapH(telemetry.MetricsHandler()))
package telemetry
