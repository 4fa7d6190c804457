// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package symbols

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("tlaplus.symbols")
	meter  = otel.Meter("tlaplus.symbols")
)

var (
	extractionTotal metric.Int64Counter
	symbolCount     metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		extractionTotal, err = meter.Int64Counter(
			"symbols_extractions_total",
			metric.WithDescription("Symbol extractions by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		symbolCount, err = meter.Int64Histogram(
			"symbols_per_extraction",
			metric.WithDescription("Symbols parsed from one export"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startExtractSpan(ctx context.Context, file string, extended bool) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Extractor.Extract",
		trace.WithAttributes(
			attribute.String("symbols.file", file),
			attribute.Bool("symbols.extended", extended),
		),
	)
}

func recordExtraction(ctx context.Context, symbols int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	extractionTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
	if success {
		symbolCount.Record(ctx, int64(symbols))
	}
}
