// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package archive

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
	tracer = otel.Tracer("tlaplus.archive")
	meter  = otel.Meter("tlaplus.archive")
)

var (
	cacheHits          metric.Int64Counter
	cacheMisses        metric.Int64Counter
	extractionTotal    metric.Int64Counter
	extractionDuration metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		cacheHits, err = meter.Int64Counter(
			"archive_cache_hits_total",
			metric.WithDescription("Extraction requests served from the cache"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cacheMisses, err = meter.Int64Counter(
			"archive_cache_misses_total",
			metric.WithDescription("Extraction requests that needed extraction"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		extractionTotal, err = meter.Int64Counter(
			"archive_extractions_total",
			metric.WithDescription("Archive extractions by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		extractionDuration, err = meter.Float64Histogram(
			"archive_extraction_duration_seconds",
			metric.WithDescription("Time spent extracting archive content"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startExtractSpan(ctx context.Context, archive, inner string, dir bool) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Store.extract",
		trace.WithAttributes(
			attribute.String("archive.path", archive),
			attribute.String("archive.inner", inner),
			attribute.Bool("archive.dir", dir),
		),
	)
}

func recordLookup(ctx context.Context, hit bool) {
	if err := initMetrics(); err != nil {
		return
	}
	if hit {
		cacheHits.Add(ctx, 1)
	} else {
		cacheMisses.Add(ctx, 1)
	}
}

func recordExtraction(ctx context.Context, d time.Duration, files int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	extractionTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
	extractionDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.Int("files", files)))
}
