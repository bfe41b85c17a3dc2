package monitoring

import (
	"strconv"

	"go.uber.org/zap"
)

// HTTP metric names
const (
	MetricHTTPRequestsTotal   = "http_requests_total"
	MetricHTTPRequestDuration = "http_request_duration_seconds"
	MetricHTTPRequestSize     = "http_request_size_bytes"
	MetricHTTPResponseSize    = "http_response_size_bytes"
	MetricHTTPRequestsActive  = "http_requests_active"
)

// DefaultDurationBuckets are the request latency buckets in seconds
var DefaultDurationBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 7.5, 10,
}

// SizeBuckets are the payload size buckets in bytes
var SizeBuckets = []float64{100, 1000, 10000, 100000, 1000000, 10000000}

// HTTPCollector records per-request HTTP metrics into a Registry
type HTTPCollector struct {
	reg    *Registry
	logger *zap.Logger
}

// NewHTTPCollector registers the HTTP metric families
func NewHTTPCollector(reg *Registry, durationBuckets []float64, logger *zap.Logger) (*HTTPCollector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(durationBuckets) == 0 {
		durationBuckets = DefaultDurationBuckets
	}

	descs := []Descriptor{
		{
			Name:   MetricHTTPRequestsTotal,
			Help:   "Total number of HTTP requests",
			Kind:   KindCounter,
			Labels: []string{"method", "endpoint", "status_code"},
		},
		{
			Name:    MetricHTTPRequestDuration,
			Help:    "HTTP request duration in seconds",
			Kind:    KindHistogram,
			Labels:  []string{"method", "endpoint"},
			Buckets: durationBuckets,
		},
		{
			Name:    MetricHTTPRequestSize,
			Help:    "HTTP request size in bytes",
			Kind:    KindHistogram,
			Labels:  []string{"method", "endpoint"},
			Buckets: SizeBuckets,
		},
		{
			Name:    MetricHTTPResponseSize,
			Help:    "HTTP response size in bytes",
			Kind:    KindHistogram,
			Labels:  []string{"method", "endpoint", "status_code"},
			Buckets: SizeBuckets,
		},
		{
			Name:   MetricHTTPRequestsActive,
			Help:   "Number of HTTP requests currently being served",
			Kind:   KindGauge,
			Labels: []string{"method", "endpoint"},
		},
	}
	for _, d := range descs {
		if err := reg.Register(d); err != nil {
			return nil, err
		}
	}

	return &HTTPCollector{reg: reg, logger: logger}, nil
}

// RecordRequest records one completed request. Sizes are observed only when
// positive. Registry errors are logged, never returned to the request path.
func (h *HTTPCollector) RecordRequest(method, rawPath string, status int, durationSeconds float64, requestBytes, responseBytes int64) {
	endpoint := NormalizePath(rawPath)
	code := strconv.Itoa(status)

	h.apply(MetricHTTPRequestsTotal, func(s *Series) error { return s.Inc() }, method, endpoint, code)
	h.apply(MetricHTTPRequestDuration, func(s *Series) error { return s.Observe(durationSeconds) }, method, endpoint)

	if requestBytes > 0 {
		h.apply(MetricHTTPRequestSize, func(s *Series) error { return s.Observe(float64(requestBytes)) }, method, endpoint)
	}
	if responseBytes > 0 {
		h.apply(MetricHTTPResponseSize, func(s *Series) error { return s.Observe(float64(responseBytes)) }, method, endpoint, code)
	}
}

// IncrementActive marks a request as in flight
func (h *HTTPCollector) IncrementActive(method, rawPath string) {
	h.apply(MetricHTTPRequestsActive, func(s *Series) error { return s.Inc() }, method, NormalizePath(rawPath))
}

// DecrementActive marks an in-flight request as finished
func (h *HTTPCollector) DecrementActive(method, rawPath string) {
	h.apply(MetricHTTPRequestsActive, func(s *Series) error { return s.Dec() }, method, NormalizePath(rawPath))
}

func (h *HTTPCollector) apply(name string, op func(*Series) error, labelValues ...string) {
	s, err := h.reg.Series(name, labelValues...)
	if err == nil {
		err = op(s)
	}
	if err != nil {
		h.logger.Warn("Failed to record HTTP metric",
			zap.String("metric", name),
			zap.Strings("labels", labelValues),
			zap.Error(err))
	}
}
