// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package process

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
	tracer = otel.Tracer("tlaplus.process")
	meter  = otel.Meter("tlaplus.process")
)

var (
	spawnTotal      metric.Int64Counter
	processDuration metric.Float64Histogram
	timeoutTotal    metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		spawnTotal, err = meter.Int64Counter(
			"tool_process_spawn_total",
			metric.WithDescription("Tool process launches by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		processDuration, err = meter.Float64Histogram(
			"tool_process_duration_seconds",
			metric.WithDescription("Wall time from launch to exit"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		timeoutTotal, err = meter.Int64Counter(
			"tool_process_timeout_total",
			metric.WithDescription("Tool processes terminated by timeout"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startRunSpan(ctx context.Context, mainClass string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Runner.Run",
		trace.WithAttributes(attribute.String("process.main_class", mainClass)),
	)
}

func setRunSpanResult(span trace.Span, pid int, id string) {
	span.SetAttributes(
		attribute.Int("process.pid", pid),
		attribute.String("process.id", id),
	)
}

func recordSpawn(ctx context.Context, mainClass string, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	spawnTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("main_class", mainClass),
		attribute.Bool("success", success),
	))
}

func recordExit(ctx context.Context, mainClass string, d time.Duration, exitCode int, timedOut bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("main_class", mainClass),
		attribute.Int("exit_code", exitCode),
	)
	processDuration.Record(ctx, d.Seconds(), attrs)
	if timedOut {
		timeoutTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("main_class", mainClass)))
	}
}
