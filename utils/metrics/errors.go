package metrics

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Error type constants for structured error recording
const (
	ErrorTypeRouter     = "router"
	ErrorTypeValidation = "validation"
	ErrorTypeCanceled   = "canceled"
)

// RecordError records an error on a span and sets the span status to Error.
func RecordError(span trace.Span, err error, errorType string) {
	span.RecordError(err, trace.WithAttributes(
		attribute.String("error.type", errorType),
	))
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanOk sets the span status to Ok.
func SetSpanOk(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
