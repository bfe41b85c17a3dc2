package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHTTPCollector(t *testing.T) (*Registry, *HTTPCollector) {
	t.Helper()
	reg := NewRegistry()
	c, err := NewHTTPCollector(reg, DefaultDurationBuckets, zap.NewNop())
	require.NoError(t, err)
	return reg, c
}

func TestNewHTTPCollectorRegistersFamilies(t *testing.T) {
	reg, _ := newTestHTTPCollector(t)

	names := make([]string, 0)
	for _, d := range reg.Descriptors() {
		names = append(names, d.Name)
	}
	assert.ElementsMatch(t, []string{
		MetricHTTPRequestDuration,
		MetricHTTPRequestSize,
		MetricHTTPRequestsActive,
		MetricHTTPRequestsTotal,
		MetricHTTPResponseSize,
	}, names)
}

func TestNewHTTPCollectorTwiceSameBuckets(t *testing.T) {
	reg := NewRegistry()
	_, err := NewHTTPCollector(reg, DefaultDurationBuckets, nil)
	require.NoError(t, err)
	_, err = NewHTTPCollector(reg, DefaultDurationBuckets, nil)
	assert.NoError(t, err)

	_, err = NewHTTPCollector(reg, []float64{1, 2}, nil)
	assert.ErrorIs(t, err, ErrDuplicateMetric)
}

func TestNewHTTPCollectorRejectsBadBuckets(t *testing.T) {
	_, err := NewHTTPCollector(NewRegistry(), []float64{2, 1}, nil)
	assert.ErrorIs(t, err, ErrInvalidDescriptor)
}

func TestRecordRequest(t *testing.T) {
	reg, c := newTestHTTPCollector(t)

	c.RecordRequest("GET", "/users/123", 200, 0.02, 0, 512)
	c.RecordRequest("GET", "/users/456?full=1", 200, 0.04, 0, 100)
	c.RecordRequest("POST", "/users", 201, 0.1, 2048, 64)

	get := map[string]string{"method": "GET", "endpoint": "/users/{id}"}
	assert.Equal(t, 2.0, counterValue(t, reg, MetricHTTPRequestsTotal,
		map[string]string{"method": "GET", "endpoint": "/users/{id}", "status_code": "200"}))
	assert.Equal(t, uint64(2), histogramCount(t, reg, MetricHTTPRequestDuration, get))
	assert.Equal(t, uint64(0), histogramCount(t, reg, MetricHTTPRequestSize, get))
	assert.Equal(t, uint64(2), histogramCount(t, reg, MetricHTTPResponseSize,
		map[string]string{"method": "GET", "endpoint": "/users/{id}", "status_code": "200"}))

	post := map[string]string{"method": "POST", "endpoint": "/users"}
	assert.Equal(t, uint64(1), histogramCount(t, reg, MetricHTTPRequestSize, post))
	m := findSeries(t, reg, MetricHTTPRequestSize, post)
	require.NotNil(t, m)
	assert.Equal(t, 2048.0, m.GetHistogram().GetSampleSum())
}

func TestRecordRequestSkipsZeroSizes(t *testing.T) {
	reg, c := newTestHTTPCollector(t)
	c.RecordRequest("GET", "/empty", 204, 0.001, 0, 0)

	assert.Equal(t, 1.0, counterValue(t, reg, MetricHTTPRequestsTotal,
		map[string]string{"method": "GET", "endpoint": "/empty", "status_code": "204"}))
	assert.Nil(t, findSeries(t, reg, MetricHTTPResponseSize,
		map[string]string{"method": "GET", "endpoint": "/empty", "status_code": "204"}))
	assert.Nil(t, findSeries(t, reg, MetricHTTPRequestSize,
		map[string]string{"method": "GET", "endpoint": "/empty"}))
}

func TestActiveGauge(t *testing.T) {
	reg, c := newTestHTTPCollector(t)
	labels := map[string]string{"method": "GET", "endpoint": "/items/{id}"}

	c.IncrementActive("GET", "/items/1")
	c.IncrementActive("GET", "/items/2")
	assert.Equal(t, 2.0, gaugeValue(t, reg, MetricHTTPRequestsActive, labels))

	c.DecrementActive("GET", "/items/1")
	c.DecrementActive("GET", "/items/2")
	assert.Equal(t, 0.0, gaugeValue(t, reg, MetricHTTPRequestsActive, labels))
}

func TestDurationBucketsCumulative(t *testing.T) {
	reg, c := newTestHTTPCollector(t)

	durations := []float64{0.0005, 0.003, 0.003, 0.02, 0.09, 0.3, 0.3, 0.8, 2, 6, 9.9, 10}
	for _, d := range durations {
		c.RecordRequest("GET", "/spread", 200, d, 0, 0)
	}
	c.RecordRequest("GET", "/overflow", 200, 0.01, 0, 0)
	c.RecordRequest("GET", "/overflow", 200, 42, 0, 0)

	m := findSeries(t, reg, MetricHTTPRequestDuration, map[string]string{"method": "GET", "endpoint": "/spread"})
	require.NotNil(t, m)
	h := m.GetHistogram()
	buckets := h.GetBucket()
	require.Len(t, buckets, len(DefaultDurationBuckets))

	var prev uint64
	for i, b := range buckets {
		assert.Equal(t, DefaultDurationBuckets[i], b.GetUpperBound())
		assert.GreaterOrEqual(t, b.GetCumulativeCount(), prev, "bucket le=%v", b.GetUpperBound())
		prev = b.GetCumulativeCount()
	}
	assert.Equal(t, uint64(len(durations)), h.GetSampleCount())
	assert.Equal(t, h.GetSampleCount(), buckets[len(buckets)-1].GetCumulativeCount())

	// Observations above the largest bound only show up in the +Inf count.
	m = findSeries(t, reg, MetricHTTPRequestDuration, map[string]string{"method": "GET", "endpoint": "/overflow"})
	require.NotNil(t, m)
	h = m.GetHistogram()
	last := h.GetBucket()[len(h.GetBucket())-1]
	assert.Equal(t, uint64(1), last.GetCumulativeCount())
	assert.Equal(t, uint64(2), h.GetSampleCount())
}
