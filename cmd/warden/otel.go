package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hearthchat/moderation/pkg/env"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// Exports spans over OTLP/HTTP when OTEL_EXPORTER_OTLP_ENDPOINT is set (eg, http://localhost:4318); the other
// OTEL_EXPORTER_OTLP_* variables are honored by the exporter itself.
//
// Returns a function that flushes and stops the exporter. Both are no-ops when tracing is not configured.
func configOTEL(serviceName string) func() {
	ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if ep == "" {
		return func() {}
	}
	slog.Info("setting up trace exporter", "endpoint", ep)

	exp, err := otlptracehttp.New(context.Background())
	if err != nil {
		slog.Error("failed to create trace exporter, tracing disabled", "error", err)
		return func() {}
	}

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(env.Version),
			attribute.String("environment", env.Environment()),
		)),
	)
	otel.SetTracerProvider(tp)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown trace provider", "error", err)
		}
	}
}
