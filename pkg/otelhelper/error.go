package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetError marks the span failed and records the error as an event.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent("flowgraph.error", trace.WithAttributes(attrs...))
}

// SetExecutionError tags the failure with the execution it belongs to.
func SetExecutionError(span trace.Span, executionID string, err error) {
	SetError(span, err, attribute.String(ExecutionIDKey, executionID))
}
