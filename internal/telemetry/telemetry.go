// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package telemetry installs the OpenTelemetry tracer provider that the
// loader's spans are recorded with.
package telemetry

import (
	"context"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/vk/depload/internal/ctxlog"
	stacked "github.com/vk/depload/internal/errors"
)

const defaultServiceName = "depload"

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(ctx context.Context) error

// Options selects where spans are exported.
type Options struct {
	// Endpoint is the OTLP HTTP endpoint, either host:port or a URL.
	// Export is disabled when empty.
	Endpoint    string
	ServiceName string
}

// OptionsFromEnv reads OTEL_EXPORTER_OTLP_ENDPOINT and OTEL_SERVICE_NAME.
func OptionsFromEnv() Options {
	return Options{
		Endpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName: os.Getenv("OTEL_SERVICE_NAME"),
	}
}

// Setup installs a global tracer provider exporting over OTLP HTTP. Without an
// endpoint it installs nothing and returns a no-op ShutdownFunc.
func Setup(ctx context.Context, opts Options) (ShutdownFunc, error) {
	logger := ctxlog.FromContext(ctx)
	if opts.Endpoint == "" {
		logger.Debug("Trace export disabled, no OTLP endpoint configured.")
		return func(context.Context) error { return nil }, nil
	}

	var exporterOpts []otlptracehttp.Option
	if strings.Contains(opts.Endpoint, "://") {
		exporterOpts = append(exporterOpts, otlptracehttp.WithEndpointURL(opts.Endpoint))
	} else {
		exporterOpts = append(exporterOpts, otlptracehttp.WithEndpoint(opts.Endpoint), otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, stacked.WithStackTraceAndPrefix(err, "create OTLP exporter")
	}

	serviceName := opts.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	logger.Debug("Trace export enabled.", "endpoint", opts.Endpoint, "service", serviceName)

	return provider.Shutdown, nil
}
