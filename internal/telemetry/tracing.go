package telemetry

import (
	"context"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// InitTracer configures a global tracer provider with an OTLP gRPC
// exporter. A failed exporter dial degrades to a no-op shutdown
// rather than blocking scheduler startup on telemetry availability.
func InitTracer(ctx context.Context, service string) func(context.Context) error {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:4317"
	}
	dialOpts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithDialOption(dialOpts...))
	if err != nil {
		slog.Warn("otel tracer exporter init failed", "error", err)
		return func(context.Context) error { return nil }
	}
	res, _ := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(service),
	))
	tp := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	slog.Info("otel tracer initialized", "endpoint", endpoint)
	return tp.Shutdown
}

// WithSpan starts a span named name on the scheduler's tracer.
func WithSpan(ctx context.Context, name string) (context.Context, func()) {
	tr := otel.Tracer("redengine-scheduler")
	ctx, span := tr.Start(ctx, name)
	return ctx, func() { span.End() }
}

// Flush gives the tracer provider a bounded window to drain buffered
// spans on shutdown.
func Flush(ctx context.Context, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_ = shutdown(ctx)
}
