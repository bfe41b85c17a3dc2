package exporter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/metricsvc/internal/infrastructure/config"
	"github.com/GriffinCanCode/metricsvc/internal/infrastructure/monitoring"
)

const (
	TransportGRPC = "grpc"
	TransportHTTP = "http"

	meterName       = "github.com/GriffinCanCode/metricsvc"
	shutdownTimeout = 5 * time.Second
)

// ErrUnknownTransport is returned for a transport other than grpc or http
var ErrUnknownTransport = errors.New("unknown OTLP transport")

// Exporter pushes the registry's families to an OTLP collector
type Exporter struct {
	provider *sdkmetric.MeterProvider
	endpoint string
	interval time.Duration
	logger   *zap.Logger
}

// New creates an exporter pushing reg to the collector described by cfg.
// Only families registered before New are exported.
func New(ctx context.Context, cfg config.OTelConfig, reg *monitoring.Registry, info monitoring.AppInfo, logger *zap.Logger) (*Exporter, error) {
	exp, err := newMetricExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(cfg.Interval()))
	e, err := NewWithReader(ctx, reader, reg, info, logger)
	if err != nil {
		return nil, err
	}
	e.endpoint = cfg.Endpoint
	e.interval = cfg.Interval()
	return e, nil
}

// NewWithReader creates an exporter that feeds reader, which owns delivery
func NewWithReader(ctx context.Context, reader sdkmetric.Reader, reg *monitoring.Registry, info monitoring.AppInfo, logger *zap.Logger) (*Exporter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", info.Name),
		attribute.String("service.version", info.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)

	if err := registerInstruments(provider.Meter(meterName), reg, logger); err != nil {
		_ = provider.Shutdown(ctx)
		return nil, err
	}

	return &Exporter{provider: provider, logger: logger}, nil
}

func newMetricExporter(ctx context.Context, cfg config.OTelConfig) (sdkmetric.Exporter, error) {
	switch cfg.Transport {
	case TransportGRPC:
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlpmetricgrpc.WithHeaders(cfg.Headers))
		}
		exp, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP gRPC exporter: %w", err)
		}
		return exp, nil

	case TransportHTTP:
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlpmetrichttp.WithHeaders(cfg.Headers))
		}
		exp, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP HTTP exporter: %w", err)
		}
		return exp, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.Transport)
	}
}

// Run blocks until ctx is cancelled, then flushes and shuts the provider down
func (e *Exporter) Run(ctx context.Context) error {
	e.logger.Info("Starting OTLP exporter",
		zap.String("endpoint", e.endpoint),
		zap.Duration("push_interval", e.interval),
	)

	<-ctx.Done()
	return e.Shutdown(context.WithoutCancel(ctx))
}

// Shutdown flushes pending data and stops the exporter
func (e *Exporter) Shutdown(ctx context.Context) error {
	e.logger.Info("Shutting down OTLP exporter")

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := e.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down meter provider: %w", err)
	}
	return nil
}

// instrumentSet maps family names to the instruments observing them
type instrumentSet struct {
	values map[string]otelmetric.Float64Observable
	counts map[string]otelmetric.Int64ObservableCounter
	sums   map[string]otelmetric.Float64ObservableCounter
}

func registerInstruments(meter otelmetric.Meter, reg *monitoring.Registry, logger *zap.Logger) error {
	set := instrumentSet{
		values: make(map[string]otelmetric.Float64Observable),
		counts: make(map[string]otelmetric.Int64ObservableCounter),
		sums:   make(map[string]otelmetric.Float64ObservableCounter),
	}
	var observables []otelmetric.Observable

	for _, d := range reg.Descriptors() {
		desc := otelmetric.WithDescription(d.Help)

		switch d.Kind {
		case monitoring.KindCounter:
			c, err := meter.Float64ObservableCounter(d.Name, desc)
			if err != nil {
				return fmt.Errorf("failed to create counter %q: %w", d.Name, err)
			}
			set.values[d.Name] = c
			observables = append(observables, c)

		case monitoring.KindGauge, monitoring.KindInfo:
			g, err := meter.Float64ObservableGauge(d.Name, desc)
			if err != nil {
				return fmt.Errorf("failed to create gauge %q: %w", d.Name, err)
			}
			set.values[d.Name] = g
			observables = append(observables, g)

		case monitoring.KindHistogram:
			// Bucket counts cannot be observed; count and sum are pushed as counters
			count, err := meter.Int64ObservableCounter(d.Name+"_count", desc)
			if err != nil {
				return fmt.Errorf("failed to create counter %q: %w", d.Name+"_count", err)
			}
			sum, err := meter.Float64ObservableCounter(d.Name+"_sum", desc)
			if err != nil {
				return fmt.Errorf("failed to create counter %q: %w", d.Name+"_sum", err)
			}
			set.counts[d.Name] = count
			set.sums[d.Name] = sum
			observables = append(observables, count, sum)
		}

		logger.Debug("Registered OTLP instrument",
			zap.String("name", d.Name),
			zap.Stringer("kind", d.Kind),
		)
	}

	if len(observables) == 0 {
		return nil
	}

	_, err := meter.RegisterCallback(func(_ context.Context, o otelmetric.Observer) error {
		families, err := reg.Snapshot()
		if err != nil {
			logger.Warn("Partial registry snapshot for OTLP export", zap.Error(err))
		}
		set.observe(o, monitoring.Summarize(families))
		return nil
	}, observables...)
	if err != nil {
		return fmt.Errorf("failed to register callback: %w", err)
	}
	return nil
}

func (s instrumentSet) observe(o otelmetric.Observer, families []monitoring.FamilySummary) {
	for _, f := range families {
		for _, series := range f.Series {
			attrs := otelmetric.WithAttributes(labelAttributes(series.Labels)...)

			if inst, ok := s.values[f.Name]; ok && series.Value != nil {
				o.ObserveFloat64(inst, *series.Value, attrs)
				continue
			}
			if count, ok := s.counts[f.Name]; ok && series.Count != nil {
				o.ObserveInt64(count, int64(*series.Count), attrs)
			}
			if sum, ok := s.sums[f.Name]; ok && series.Sum != nil {
				o.ObserveFloat64(sum, *series.Sum, attrs)
			}
		}
	}
}

func labelAttributes(labels map[string]string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}
