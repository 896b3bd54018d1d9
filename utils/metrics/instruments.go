package metrics

import (
	"go.opentelemetry.io/otel/metric"
)

// Router Metrics
var (
	// RouteRequestsTotal counts route and refresh requests by outcome
	RouteRequestsTotal metric.Int64Counter

	// RouteRequestDuration measures time from request to callback
	RouteRequestDuration metric.Float64Histogram
)

// Session Metrics
var (
	// RoutesSetTotal counts route list replacements
	RoutesSetTotal metric.Int64Counter

	// StatusTicksTotal counts processed navigator status ticks
	StatusTicksTotal metric.Int64Counter

	// OffRouteEventsTotal counts off-route state changes
	OffRouteEventsTotal metric.Int64Counter
)

// Controller Metrics
var (
	// RerouteStatesTotal counts reroute state transitions
	RerouteStatesTotal metric.Int64Counter

	// RouteRefreshTotal counts refresh attempts by result
	RouteRefreshTotal metric.Int64Counter
)

// initializeInstruments creates all metric instruments
func initializeInstruments() error {
	var err error

	RouteRequestsTotal, err = Meter.Int64Counter(
		"router.requests.total",
		metric.WithDescription("Total route and refresh requests by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	RouteRequestDuration, err = Meter.Float64Histogram(
		"router.request.duration",
		metric.WithDescription("Time from request to callback"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return err
	}

	RoutesSetTotal, err = Meter.Int64Counter(
		"directions.routes.set.total",
		metric.WithDescription("Route list replacements by reason"),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		return err
	}

	StatusTicksTotal, err = Meter.Int64Counter(
		"trip.status.ticks.total",
		metric.WithDescription("Processed navigator status ticks"),
		metric.WithUnit("{tick}"),
	)
	if err != nil {
		return err
	}

	OffRouteEventsTotal, err = Meter.Int64Counter(
		"trip.off_route.events.total",
		metric.WithDescription("Off-route state changes"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	RerouteStatesTotal, err = Meter.Int64Counter(
		"reroute.states.total",
		metric.WithDescription("Reroute state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return err
	}

	RouteRefreshTotal, err = Meter.Int64Counter(
		"route_refresh.attempts.total",
		metric.WithDescription("Route refresh attempts by result"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return err
	}

	return nil
}
