// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

var (
	// ErrNilContext is returned when Init is called with a nil context.
	ErrNilContext = errors.New("telemetry: nil context")

	// ErrUnknownExporter is returned for an unrecognised exporter name.
	ErrUnknownExporter = errors.New("telemetry: unknown exporter type")
)

// Exporter names.
const (
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterPrometheus = "prometheus"
	ExporterNone       = "none"
)

// Config controls telemetry behavior.
type Config struct {
	// ServiceName identifies this process in traces and metrics.
	ServiceName string `yaml:"service_name" json:"service_name"`

	// ServiceVersion is the build version.
	ServiceVersion string `yaml:"service_version" json:"service_version"`

	// TraceExporter is "otlp", "stdout" or "none".
	TraceExporter string `yaml:"trace_exporter" json:"trace_exporter" validate:"omitempty,oneof=otlp stdout none"`

	// MetricExporter is "prometheus", "stdout" or "none".
	MetricExporter string `yaml:"metric_exporter" json:"metric_exporter" validate:"omitempty,oneof=prometheus stdout none"`

	// OTLPEndpoint is the OTLP gRPC receiver for traces.
	OTLPEndpoint string `yaml:"otlp_endpoint" json:"otlp_endpoint"`

	// OTLPInsecure disables TLS for the OTLP connection.
	OTLPInsecure bool `yaml:"otlp_insecure" json:"otlp_insecure"`
}

// DefaultConfig returns defaults for a local CLI: no trace export and
// Prometheus metrics.
//
// OTEL_TRACES_EXPORTER, OTEL_METRICS_EXPORTER and
// OTEL_EXPORTER_OTLP_ENDPOINT override the defaults.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "tlaplus",
		ServiceVersion: "dev",
		TraceExporter:  getEnvOr("OTEL_TRACES_EXPORTER", ExporterNone),
		MetricExporter: getEnvOr("OTEL_METRICS_EXPORTER", ExporterPrometheus),
		OTLPEndpoint:   getEnvOr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTLPInsecure:   true,
	}
}

// Init initializes the OTel providers.
//
// Description:
//
//	Installs a TracerProvider and a MeterProvider for the configured
//	exporters. Afterwards the package-level tracers and meters used by
//	the archive, process, sany, symbols and tlc packages report through
//	them. An exporter set to "none" leaves the global no-op provider in
//	place.
//
// Outputs:
//
//	shutdown - Flushes and stops the providers. Must be called.
//	error - Non-nil if an exporter cannot be created.
//
// Thread Safety: Call once at startup.
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	var shutdownFuncs []func(context.Context) error
	shutdown = func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdownFuncs {
			if err := fn(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	if cfg.TraceExporter != "" && cfg.TraceExporter != ExporterNone {
		tp, err := initTracer(ctx, cfg, res)
		if err != nil {
			return nil, fmt.Errorf("init tracer: %w", err)
		}
		otel.SetTracerProvider(tp)
		shutdownFuncs = append(shutdownFuncs, tp.Shutdown)
	}

	if cfg.MetricExporter != "" && cfg.MetricExporter != ExporterNone {
		mp, err := initMeter(cfg, res)
		if err != nil {
			_ = shutdown(ctx)
			return nil, fmt.Errorf("init meter: %w", err)
		}
		otel.SetMeterProvider(mp)
		shutdownFuncs = append(shutdownFuncs, mp.Shutdown)
	}

	return shutdown, nil
}

func initTracer(ctx context.Context, cfg Config, res *resource.Resource) (*trace.TracerProvider, error) {
	var (
		exporter trace.SpanExporter
		err      error
	)

	switch cfg.TraceExporter {
	case ExporterOTLP:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	case ExporterStdout:
		// stdout carries command results; spans go to stderr.
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(os.Stderr), stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.TraceExporter)
	}
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
	), nil
}

var (
	prometheusHandler   http.Handler
	prometheusHandlerMu sync.RWMutex
)

// MetricsHandler returns the /metrics handler, or nil unless the
// Prometheus exporter is active.
//
// Thread Safety: Safe for concurrent use.
func MetricsHandler() http.Handler {
	prometheusHandlerMu.RLock()
	defer prometheusHandlerMu.RUnlock()
	return prometheusHandler
}

func initMeter(cfg Config, res *resource.Resource) (*metric.MeterProvider, error) {
	switch cfg.MetricExporter {
	case ExporterPrometheus:
		exporter, err := promexporter.New()
		if err != nil {
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}

		// The exporter registers with the default registry, which also
		// carries the promauto counters of the config package.
		prometheusHandlerMu.Lock()
		prometheusHandler = promhttp.Handler()
		prometheusHandlerMu.Unlock()

		return metric.NewMeterProvider(
			metric.WithResource(res),
			metric.WithReader(exporter),
		), nil

	case ExporterStdout:
		exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stderr), stdoutmetric.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout metric exporter: %w", err)
		}
		return metric.NewMeterProvider(
			metric.WithResource(res),
			metric.WithReader(metric.NewPeriodicReader(exporter)),
		), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.MetricExporter)
	}
}

func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
