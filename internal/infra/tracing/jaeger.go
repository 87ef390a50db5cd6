package tracing

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// InitTracer installs a global provider exporting to the OTLP/HTTP endpoint.
// Without a call to InitTracer every span is a no-op.
func InitTracer(ctx context.Context, endpoint, serviceName, serviceVersion string) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(Resource(serviceName, serviceVersion)),
	)

	otel.SetTracerProvider(tp)
	return tp, nil
}

// Resource describes one gallery process. Spans of concurrent CLI runs and
// worker replicas are told apart by the pid.
func Resource(serviceName, serviceVersion string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
		semconv.ServiceVersionKey.String(serviceVersion),
		semconv.ServiceNamespaceKey.String("media-gallery"),
		semconv.ProcessPIDKey.Int(os.Getpid()),
	)
}
