// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sany

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
	tracer = otel.Tracer("tlaplus.sany")
	meter  = otel.Meter("tlaplus.sany")
)

var (
	checkTotal      metric.Int64Counter
	checkDuration   metric.Float64Histogram
	diagnosticTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		checkTotal, err = meter.Int64Counter(
			"sany_checks_total",
			metric.WithDescription("SANY checks by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		checkDuration, err = meter.Float64Histogram(
			"sany_check_duration_seconds",
			metric.WithDescription("SANY check wall time"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		diagnosticTotal, err = meter.Int64Counter(
			"sany_diagnostics_total",
			metric.WithDescription("Diagnostics reported by severity"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startCheckSpan(ctx context.Context, file string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Checker.Check",
		trace.WithAttributes(attribute.String("sany.file", file)),
	)
}

func recordCheck(ctx context.Context, d time.Duration, r Result) {
	if err := initMetrics(); err != nil {
		return
	}
	checkTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", r.Success)))
	checkDuration.Record(ctx, d.Seconds())
	if n := len(r.Errors); n > 0 {
		diagnosticTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String("severity", string(SeverityError))))
	}
	if n := len(r.Warnings); n > 0 {
		diagnosticTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String("severity", string(SeverityWarning))))
	}
}
