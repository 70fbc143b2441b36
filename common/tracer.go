package common

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/config"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/log"
)

// InitGlobalTracer installs an OTLP/HTTP exporter as the global provider.
// The returned func flushes and shuts it down.
func InitGlobalTracer(cfg *config.TracingConfig) func() {
	if cfg == nil {
		return func() {}
	}

	exporter, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		log.Print("Could not create trace exporter: " + err.Error())
		return func() {}
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("exporter", "otlp"),
		)),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			log.Warnf("tracer shutdown failed: %v", err)
		}
	}
}

func CreateTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
