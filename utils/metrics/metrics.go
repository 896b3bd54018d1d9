package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/tsinghua-fib-lab/tripcore"

var (
	// Meter is the meter every instrument is created from
	Meter metric.Meter
	// Tracer wraps router requests in spans
	Tracer trace.Tracer
)

func init() {
	// the global providers delegate to whatever provider is installed later
	if err := Init(otel.GetMeterProvider(), otel.GetTracerProvider()); err != nil {
		otel.Handle(err)
	}
}

// Init (re)creates all instruments from the given providers.
// Call it before any session is constructed.
func Init(mp metric.MeterProvider, tp trace.TracerProvider) error {
	Meter = mp.Meter(instrumentationName)
	Tracer = tp.Tracer(instrumentationName)
	return initializeInstruments()
}

// RecordRouteRequest counts a finished route request by outcome
func RecordRouteRequest(ctx context.Context, kind, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("request.kind", kind),
		attribute.String("request.outcome", outcome),
	)
	RouteRequestsTotal.Add(ctx, 1, attrs)
	RouteRequestDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordRoutesSet counts route list replacements by update reason
func RecordRoutesSet(ctx context.Context, reason string, routes int) {
	RoutesSetTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("routes.reason", reason),
		attribute.Bool("routes.empty", routes == 0),
	))
}

// RecordRerouteState counts reroute state transitions
func RecordRerouteState(ctx context.Context, state string) {
	RerouteStatesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reroute.state", state)))
}

// RecordRefresh counts refresh attempts by result
func RecordRefresh(ctx context.Context, result string) {
	RouteRefreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("refresh.result", result)))
}

// RecordStatus counts processed native status ticks
func RecordStatus(ctx context.Context, routeState string) {
	StatusTicksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("route.state", routeState)))
}

// RecordOffRoute counts off-route edges
func RecordOffRoute(ctx context.Context, offRoute bool) {
	OffRouteEventsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("off_route", offRoute)))
}
