package metrics_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/tripcore/utils/metrics"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/trace/noop"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	total := int64(0)
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestInstrumentsRecord(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	require.NoError(t, metrics.Init(provider, noop.NewTracerProvider()))
	t.Cleanup(func() {
		_ = metrics.Init(otel.GetMeterProvider(), otel.GetTracerProvider())
	})

	ctx := context.Background()
	metrics.RecordRouteRequest(ctx, "route", "ready", 20*time.Millisecond)
	metrics.RecordRouteRequest(ctx, "refresh", "failure", time.Second)
	metrics.RecordRoutesSet(ctx, "NEW", 2)
	metrics.RecordRerouteState(ctx, "FetchingRoute")
	metrics.RecordRefresh(ctx, "success")
	metrics.RecordStatus(ctx, "TRACKING")
	metrics.RecordOffRoute(ctx, true)

	got := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, got["router.requests.total"]))
	assert.Equal(t, int64(1), sumOf(t, got["directions.routes.set.total"]))
	assert.Equal(t, int64(1), sumOf(t, got["reroute.states.total"]))
	assert.Equal(t, int64(1), sumOf(t, got["route_refresh.attempts.total"]))
	assert.Equal(t, int64(1), sumOf(t, got["trip.status.ticks.total"]))
	assert.Equal(t, int64(1), sumOf(t, got["trip.off_route.events.total"]))

	hist, ok := got["router.request.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	count := uint64(0)
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(2), count)
}
