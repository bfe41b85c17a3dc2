package exporter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/GriffinCanCode/metricsvc/internal/infrastructure/config"
	"github.com/GriffinCanCode/metricsvc/internal/infrastructure/monitoring"
)

func newTestRegistry(t *testing.T) *monitoring.Registry {
	t.Helper()
	reg := monitoring.NewRegistry()
	reg.MustRegister(
		monitoring.Descriptor{Name: "jobs_total", Help: "Jobs", Kind: monitoring.KindCounter, Labels: []string{"queue"}},
		monitoring.Descriptor{Name: "queue_depth", Help: "Depth", Kind: monitoring.KindGauge},
		monitoring.Descriptor{Name: "job_seconds", Help: "Job time", Kind: monitoring.KindHistogram, Buckets: []float64{0.1, 1}},
	)
	return reg
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestExporterObservesRegistry(t *testing.T) {
	reg := newTestRegistry(t)
	reader := sdkmetric.NewManualReader()

	exp, err := NewWithReader(context.Background(), reader, reg, monitoring.AppInfo{Name: "svc", Version: "1.2.3"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = exp.Shutdown(context.Background()) })

	jobs, err := reg.Series("jobs_total", "default")
	require.NoError(t, err)
	require.NoError(t, jobs.Add(4))

	depth, err := reg.Series("queue_depth")
	require.NoError(t, err)
	require.NoError(t, depth.Set(7))

	hist, err := reg.Series("job_seconds")
	require.NoError(t, err)
	require.NoError(t, hist.Observe(0.5))
	require.NoError(t, hist.Observe(1.5))

	metrics := collect(t, reader)

	sum, ok := metrics["jobs_total"].Data.(metricdata.Sum[float64])
	require.True(t, ok)
	assert.True(t, sum.IsMonotonic)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, 4.0, sum.DataPoints[0].Value)
	queue, ok := sum.DataPoints[0].Attributes.Value(attribute.Key("queue"))
	require.True(t, ok)
	assert.Equal(t, "default", queue.AsString())

	gauge, ok := metrics["queue_depth"].Data.(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, 7.0, gauge.DataPoints[0].Value)

	count, ok := metrics["job_seconds_count"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, count.DataPoints, 1)
	assert.Equal(t, int64(2), count.DataPoints[0].Value)

	total, ok := metrics["job_seconds_sum"].Data.(metricdata.Sum[float64])
	require.True(t, ok)
	require.Len(t, total.DataPoints, 1)
	assert.InDelta(t, 2.0, total.DataPoints[0].Value, 1e-9)
}

func TestExporterFollowsUpdates(t *testing.T) {
	reg := newTestRegistry(t)
	reader := sdkmetric.NewManualReader()

	exp, err := NewWithReader(context.Background(), reader, reg, monitoring.AppInfo{Name: "svc"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = exp.Shutdown(context.Background()) })

	jobs, err := reg.Series("jobs_total", "default")
	require.NoError(t, err)

	require.NoError(t, jobs.Inc())
	first := collect(t, reader)["jobs_total"].Data.(metricdata.Sum[float64])
	require.Len(t, first.DataPoints, 1)
	assert.Equal(t, 1.0, first.DataPoints[0].Value)

	require.NoError(t, jobs.Inc())
	second := collect(t, reader)["jobs_total"].Data.(metricdata.Sum[float64])
	require.Len(t, second.DataPoints, 1)
	assert.Equal(t, 2.0, second.DataPoints[0].Value)
}

func TestExporterResource(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	exp, err := NewWithReader(context.Background(), reader, newTestRegistry(t), monitoring.AppInfo{Name: "svc", Version: "1.2.3"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = exp.Shutdown(context.Background()) })

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	name, ok := rm.Resource.Set().Value(attribute.Key("service.name"))
	require.True(t, ok)
	assert.Equal(t, "svc", name.AsString())
}

func TestNewRejectsUnknownTransport(t *testing.T) {
	_, err := New(context.Background(), config.OTelConfig{
		Transport:    "carrier-pigeon",
		Endpoint:     "localhost:4317",
		PushInterval: 1,
	}, newTestRegistry(t), monitoring.AppInfo{Name: "svc"}, nil)
	assert.ErrorIs(t, err, ErrUnknownTransport)
}

func TestNewTransports(t *testing.T) {
	for _, transport := range []string{TransportGRPC, TransportHTTP} {
		t.Run(transport, func(t *testing.T) {
			exp, err := New(context.Background(), config.OTelConfig{
				Transport:    transport,
				Endpoint:     "127.0.0.1:1",
				Insecure:     true,
				PushInterval: 60,
			}, newTestRegistry(t), monitoring.AppInfo{Name: "svc"}, nil)
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()
			// Nothing listens on the endpoint, so the final flush may fail
			_ = exp.Shutdown(ctx)
		})
	}
}
