package controllers

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/common"
)

// spanFromRequest continues the caller's trace when the request carries a traceparent header.
func spanFromRequest(r *http.Request, spanName string) (context.Context, trace.Span) {
	tracer := common.CreateTracer("qrpay/controller")
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	return tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.target", r.URL.Path),
		),
	)
}
