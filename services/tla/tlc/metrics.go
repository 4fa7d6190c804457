// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tlc

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("tlaplus.tlc")
	meter  = otel.Meter("tlaplus.tlc")
)

var (
	runTotal    metric.Int64Counter
	runDuration metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		runTotal, err = meter.Int64Counter(
			"tlc_runs_total",
			metric.WithDescription("TLC runs by mode and exit code"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		runDuration, err = meter.Float64Histogram(
			"tlc_run_duration_seconds",
			metric.WithDescription("TLC run wall time"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startRunSpan(ctx context.Context, mode Mode, file string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Runner.Run",
		trace.WithAttributes(
			attribute.String("tlc.mode", string(mode)),
			attribute.String("tlc.file", file),
		),
	)
}

func recordRun(ctx context.Context, mode Mode, d time.Duration, exitCode int, completed bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("mode", string(mode)),
		attribute.Int("exit_code", exitCode),
		attribute.Bool("completed", completed),
	)
	runTotal.Add(ctx, 1, attrs)
	runDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("mode", string(mode))))
}
