// Package otel configures opt-in OpenTelemetry tracing for service processes.
package otel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	endpointEnv = "WARM_TRANSFER_OTEL_ENDPOINT"
	enabledEnv  = "WARM_TRANSFER_OTEL_ENABLED"
)

// Setup wires OpenTelemetry tracing for the named service.
//
// Tracing is opt-in: without an OTLP endpoint, or with the enabled switch set
// to "false", Setup registers no global provider and returns a no-op shutdown
// function. The returned shutdown flushes pending spans and should be
// deferred by the caller.
func Setup(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	serviceName = strings.TrimSpace(serviceName)
	if serviceName == "" {
		return noop, errors.New("service name is required")
	}

	endpoint, enabled := exportTarget()
	if !enabled {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(endpoint),
	)
	if err != nil {
		return noop, fmt.Errorf("init trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return noop, fmt.Errorf("build trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

// exportTarget resolves the OTLP endpoint, reporting false when tracing is
// switched off or no endpoint is configured.
func exportTarget() (string, bool) {
	if strings.EqualFold(os.Getenv(enabledEnv), "false") {
		return "", false
	}
	endpoint := strings.TrimSpace(os.Getenv(endpointEnv))
	return endpoint, endpoint != ""
}
